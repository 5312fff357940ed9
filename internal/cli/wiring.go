package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/jobchat-core/server/internal/agent/conversations"
	"github.com/jobchat-core/server/internal/agent/gateway"
	"github.com/jobchat-core/server/internal/agent/intent"
	"github.com/jobchat-core/server/internal/agent/model"
	"github.com/jobchat-core/server/internal/agent/observers"
	"github.com/jobchat-core/server/internal/agent/orchestrator"
	"github.com/jobchat-core/server/internal/agent/prompts"
	"github.com/jobchat-core/server/internal/agent/repo"
	"github.com/jobchat-core/server/internal/agent/toolloop"
	"github.com/jobchat-core/server/internal/agent/tools"
	"github.com/jobchat-core/server/internal/api"
	"github.com/jobchat-core/server/internal/core"
	logx "github.com/jobchat-core/server/pkg/logger"
)

const (
	modeSlot   = "slot"
	modeSimple = "simple"
)

// App holds every constructed component. Build it once per process.
type App struct {
	Config   *AppConfig
	Models   *gateway.Models
	Prompts  *prompts.Catalog
	Tools    *tools.Registry
	Loop     *toolloop.Loop
	Bot      orchestrator.Chatbot
	Store    model.ConversationStore
	Sessions *conversations.Manager
	Service  *orchestrator.Service

	redis *redis.Client
}

type buildOpts struct {
	quiet bool
}

func initLogger(cfg *AppConfig, quiet bool) {
	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment), Quiet: quiet})
}

// Build wires the agent from cfg.
func Build(ctx context.Context, cfg *AppConfig, opts buildOpts) (*App, error) {
	initLogger(cfg, opts.quiet)
	observers.Register()

	app := &App{Config: cfg}

	catalog, err := prompts.Load(cfg.Prompt.File)
	if err != nil {
		return nil, err
	}
	app.Prompts = catalog

	models, err := gateway.NewModels(ctx, gateway.ModelsConfig{Provider: cfg.Provider, NLU: cfg.NLU, Response: cfg.Response})
	if err != nil {
		return nil, err
	}
	app.Models = models
	if cfg.Provider.WarmUp {
		models.WarmUp(ctx)
	}

	registry, err := tools.NewDefaultRegistry(ctx, tools.Deps{
		Prompts:  catalog,
		NLU:      models.NLU,
		Response: models.Response,
		Timeout:  cfg.Tools.Timeout,
	})
	if err != nil {
		return nil, err
	}
	app.Tools = registry
	logx.Info().Strs("tools", registry.Names()).Msg("tools registered")
	app.Loop = toolloop.New(models.Response, registry, cfg.Tools.MaxSteps)

	switch strings.ToLower(strings.TrimSpace(cfg.Agent.Mode)) {
	case modeSlot, "":
		bot, err := orchestrator.New(orchestrator.Deps{
			Prompts:    catalog,
			Classifier: intent.NewClassifier(catalog, models.NLU),
			LLM:        models.Response,
			Loop:       app.Loop,
		}, orchestrator.Config{
			SlotPriority: cfg.Agent.SlotPriority,
			MaxSteps:     cfg.Tools.MaxSteps,
			MaxHistory:   cfg.Conversation.MaxHistory,
			ServiceName:  cfg.Prompt.ServiceName,
			ToolsEnabled: cfg.Tools.Enabled,
		})
		if err != nil {
			return nil, err
		}
		app.Bot = bot
	case modeSimple:
		app.Bot = orchestrator.NewSimpleBot(catalog, models.Response, cfg.Prompt.ServiceName, cfg.Conversation.MaxHistory)
	default:
		return nil, fmt.Errorf("unknown AGENT_MODE %q", cfg.Agent.Mode)
	}

	if err := app.buildStore(ctx); err != nil {
		return nil, err
	}
	app.Sessions = conversations.NewManager(app.Store, cfg.Conversation)
	app.Service = orchestrator.NewService(app.Bot, app.Sessions)
	return app, nil
}

func (a *App) buildStore(ctx context.Context) error {
	ttl, err := a.Config.ConversationTTL()
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(a.Config.Conversation.Store)) {
	case "memory", "":
		a.Store = conversations.NewMemoryStore(ttl)
	case "redis":
		rdb, err := a.Config.Redis.New(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialise Redis client: %w", err)
		}
		logx.Info().Msg("connected to redis")
		a.redis = rdb
		a.Store = repo.NewRedisConversationStore(rdb, ttl)
	default:
		return fmt.Errorf("unknown CONVERSATION_STORE %q", a.Config.Conversation.Store)
	}
	return nil
}

// Router builds the HTTP front door for the app.
func (a *App) Router() (api.Config, *gin.Engine) {
	cfg := api.Config{
		Addr:        a.Config.Server.Addr,
		ServiceName: a.Config.Prompt.ServiceName,
		Version:     a.Config.Server.Version,
		RateLimit:   a.Config.Server.RateLimit,
		RateBurst:   a.Config.Server.RateBurst,
		MaxSteps:    a.Config.Tools.MaxSteps,
	}
	deps := api.Deps{
		Service: a.Service,
		Tools:   a.Tools,
		Loop:    a.Loop,
		Prompts: a.Prompts,
		Models: api.ModelInfo{
			Provider:      a.Models.Provider,
			NLUModel:      a.Models.NLU.ModelName(),
			ResponseModel: a.Models.Response.ModelName(),
			BaseURL:       a.Models.BaseURL,
			AgentMode:     a.Config.Agent.Mode,
		},
	}
	if a.Models.Available != nil {
		deps.Backend = a.Models.Available
	}
	return cfg, api.NewRouter(cfg, deps)
}

// Close releases external connections.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logx.Warn().Err(err).Msg("closing redis client")
		}
	}
}
