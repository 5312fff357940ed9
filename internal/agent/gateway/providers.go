package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/jobchat-core/server/internal/agent/model"
	logx "github.com/jobchat-core/server/pkg/logger"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	NLUGateway      = "nlu"
	ResponseGateway = "response"
)

// ModelsConfig holds the configuration for chat model creation.
type ModelsConfig struct {
	Provider model.ProviderConfig
	NLU      model.NLUModelConfig
	Response model.ResponseModelConfig
}

// Models holds both the classifier and the reply gateways.
type Models struct {
	NLU      *Gateway
	Response *Gateway
	Provider string
	BaseURL  string
	// Available is nil for providers without a model listing endpoint.
	Available *BackendModels
}

// NewModels creates the NLU and Response gateways for the configured provider.
func NewModels(ctx context.Context, cfg ModelsConfig) (*Models, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider.Name))
	var (
		nlu, resp einomodel.ToolCallingChatModel
		baseURL   string
		available *BackendModels
		err       error
	)
	switch provider {
	case ProviderGemini:
		baseURL = cfg.Provider.GeminiBaseURL
		nlu, resp, err = newGeminiModels(ctx, cfg)
	case ProviderOpenAI, ProviderOllama:
		baseURL = cfg.Provider.OpenAIBaseURL
		nlu, resp, err = newOpenAIModels(ctx, cfg)
		available = NewBackendModels(cfg.Provider.OpenAIBaseURL, cfg.Provider.OpenAIAPIKey)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider.Name)
	}
	if err != nil {
		return nil, err
	}

	logx.Info().Str("provider", provider).Str("nlu_model", cfg.NLU.Model).Str("response_model", cfg.Response.Model).Msg("chat models ready")
	return &Models{
		NLU:       New(NLUGateway, cfg.NLU.Model, nlu, cfg.Provider.CallTimeout),
		Response:  New(ResponseGateway, cfg.Response.Model, resp, cfg.Provider.CallTimeout),
		Provider:  provider,
		BaseURL:   baseURL,
		Available: available,
	}, nil
}

// WarmUp pings both gateways. Failures are logged only.
func (m *Models) WarmUp(ctx context.Context) {
	_ = m.NLU.Ping(ctx)
	if m.Response.ModelName() != m.NLU.ModelName() {
		_ = m.Response.Ping(ctx)
	}
}

func newGeminiModels(ctx context.Context, cfg ModelsConfig) (einomodel.ToolCallingChatModel, einomodel.ToolCallingChatModel, error) {
	if cfg.Provider.GeminiAPIKey == "" {
		return nil, nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.Provider.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Provider.GeminiBaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.Provider.GeminiBaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	// The classifier answers with a single tag, so it gets a small thinking budget.
	nlu, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.NLU.Model,
		Temperature: &cfg.NLU.Temperature,
		MaxTokens:   &cfg.NLU.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating NLU model")
		return nil, nil, fmt.Errorf("error creating NLU model: %w", err)
	}

	resp, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Response.Model,
		Temperature: &cfg.Response.Temperature,
		MaxTokens:   &cfg.Response.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(int32(2000)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Response model")
		return nil, nil, fmt.Errorf("error creating Response model: %w", err)
	}
	return nlu, resp, nil
}

// newOpenAIModels serves both roles from an OpenAI-compatible endpoint, which
// is how Ollama is reached through its /v1 API.
func newOpenAIModels(ctx context.Context, cfg ModelsConfig) (einomodel.ToolCallingChatModel, einomodel.ToolCallingChatModel, error) {
	nlu, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		APIKey:      cfg.Provider.OpenAIAPIKey,
		BaseURL:     cfg.Provider.OpenAIBaseURL,
		Model:       cfg.NLU.Model,
		MaxTokens:   &cfg.NLU.MaxTokens,
		Temperature: &cfg.NLU.Temperature,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating NLU model")
		return nil, nil, fmt.Errorf("error creating NLU model: %w", err)
	}

	resp, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		APIKey:      cfg.Provider.OpenAIAPIKey,
		BaseURL:     cfg.Provider.OpenAIBaseURL,
		Model:       cfg.Response.Model,
		MaxTokens:   &cfg.Response.MaxTokens,
		Temperature: &cfg.Response.Temperature,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Response model")
		return nil, nil, fmt.Errorf("error creating Response model: %w", err)
	}
	return nlu, resp, nil
}
