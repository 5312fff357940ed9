package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jobchat-core/server/internal/agent/orchestrator"
	logx "github.com/jobchat-core/server/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// ToolCatalog lists the registered tools.
type ToolCatalog interface {
	List() []*schema.ToolInfo
	Names() []string
}

// ModelInfo describes the configured backends for GET /api/models.
type ModelInfo struct {
	Provider      string `json:"provider"`
	NLUModel      string `json:"nlu_model"`
	ResponseModel string `json:"response_model"`
	BaseURL       string `json:"base_url,omitempty"`
	AgentMode     string `json:"agent_mode"`
}

// ModelLister lists the models the backend can serve.
type ModelLister interface {
	List(ctx context.Context) ([]string, error)
}

type Config struct {
	Addr        string
	ServiceName string
	Version     string
	RateLimit   float64
	RateBurst   int
	MaxSteps    int
}

type Deps struct {
	Service *orchestrator.Service
	Tools   ToolCatalog
	Loop    orchestrator.LoopRunner
	Prompts orchestrator.Renderer
	Models  ModelInfo
	// Backend is optional; without it /api/models reports configuration only.
	Backend ModelLister
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg Config, deps Deps) *gin.Engine {
	h := &Handlers{cfg: cfg, deps: deps}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	router.GET("/", h.HandleHealth)
	router.GET("/health", h.HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(RateLimit(cfg.RateLimit, cfg.RateBurst))
	{
		api.POST("/chat", h.HandleChat)
		api.GET("/session/info", h.HandleSessionInfo)
		api.DELETE("/session", h.HandleSessionReset)
		api.GET("/sessions", h.HandleSessions)
		api.GET("/models", h.HandleModels)
		api.GET("/tools", h.HandleTools)
		api.POST("/tools/run", h.HandleToolsRun)
	}
	return router
}

// Serve runs the HTTP server until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, cfg Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", cfg.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logx.Info().Msg("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
