package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	errx "github.com/jobchat-core/server/internal/core/error"
	"github.com/jobchat-core/server/internal/metrics"
	logx "github.com/jobchat-core/server/pkg/logger"
)

// ChatGateway is the chat capability the agent needs from a model backend.
type ChatGateway interface {
	Generate(ctx context.Context, msgs []*schema.Message) (string, error)
	GenerateWithTools(ctx context.Context, msgs []*schema.Message, tools []*schema.ToolInfo) (*Response, error)
}

// Response is the outcome of a tool-enabled generation.
type Response struct {
	Content   string
	ToolCalls []schema.ToolCall
	Usage     *schema.TokenUsage
}

// Gateway wraps one eino chat model with a per-call timeout, callbacks and metrics.
// It holds no per-call state and is safe for concurrent use.
type Gateway struct {
	name      string
	modelName string
	chat      model.ToolCallingChatModel
	timeout   time.Duration
}

var _ ChatGateway = (*Gateway)(nil)

// New builds a gateway. A non-positive timeout disables the per-call deadline.
func New(name, modelName string, chat model.ToolCallingChatModel, timeout time.Duration) *Gateway {
	return &Gateway{name: name, modelName: modelName, chat: chat, timeout: timeout}
}

func (g *Gateway) Name() string      { return g.name }
func (g *Gateway) ModelName() string { return g.modelName }

// Generate runs a plain chat completion and returns the reply text.
func (g *Gateway) Generate(ctx context.Context, msgs []*schema.Message) (string, error) {
	msg, err := g.call(ctx, "generate", g.chat, msgs, nil)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// GenerateWithTools offers tools to the model and returns its content and tool requests.
func (g *Gateway) GenerateWithTools(ctx context.Context, msgs []*schema.Message, tools []*schema.ToolInfo) (*Response, error) {
	chat := g.chat
	if len(tools) > 0 {
		bound, err := g.chat.WithTools(tools)
		if err != nil {
			return nil, errx.Transport(fmt.Errorf("%s bind tools: %w", g.name, err))
		}
		chat = bound
	}
	msg, err := g.call(ctx, "generate_with_tools", chat, msgs, tools)
	if err != nil {
		return nil, err
	}
	resp := &Response{Content: msg.Content, ToolCalls: msg.ToolCalls}
	if msg.ResponseMeta != nil {
		resp.Usage = msg.ResponseMeta.Usage
	}
	return resp, nil
}

// Ping sends a one-word prompt so the backend loads the model before the first user turn.
func (g *Gateway) Ping(ctx context.Context) error {
	started := time.Now()
	_, err := g.Generate(ctx, []*schema.Message{schema.UserMessage("ping")})
	if err != nil {
		logx.Warn().Err(err).Str("gateway", g.name).Str("model", g.modelName).Msg("model warm-up failed")
		return err
	}
	logx.Info().Str("gateway", g.name).Str("model", g.modelName).Dur("took", time.Since(started)).Msg("model warmed up")
	return nil
}

func (g *Gateway) call(ctx context.Context, method string, chat model.BaseChatModel, msgs []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      g.modelName,
		Type:      g.name,
		Component: components.ComponentOfChatModel,
	})
	selfReporting := components.IsCallbacksEnabled(chat)
	if !selfReporting {
		ctx = callbacks.OnStart(ctx, &model.CallbackInput{Messages: msgs, Tools: tools})
	}

	started := time.Now()
	msg, err := chat.Generate(ctx, msgs)
	if err == nil && msg == nil {
		err = errors.New("empty response")
	}
	metrics.ObserveGatewayCall(g.name, method, started, err)

	if err != nil {
		if !selfReporting {
			callbacks.OnError(ctx, err)
		}
		logx.Error().Err(err).Str("gateway", g.name).Str("model", g.modelName).Str("method", method).Msg("model call failed")
		return nil, errx.Transport(fmt.Errorf("%s %s: %w", g.name, method, err))
	}
	if !selfReporting {
		out := &model.CallbackOutput{Message: msg}
		if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
			u := msg.ResponseMeta.Usage
			out.TokenUsage = &model.TokenUsage{
				PromptTokens:     u.PromptTokens,
				CompletionTokens: u.CompletionTokens,
				TotalTokens:      u.TotalTokens,
			}
		}
		callbacks.OnEnd(ctx, out)
	}
	return msg, nil
}

// StripReasoning drops a leading reasoning block closed by </think>.
func StripReasoning(text string) string {
	const marker = "</think>"
	if i := strings.LastIndex(text, marker); i >= 0 {
		text = text[i+len(marker):]
	}
	return strings.TrimSpace(text)
}
