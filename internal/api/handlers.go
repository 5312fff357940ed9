package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jobchat-core/server/internal/agent/model"
	"github.com/jobchat-core/server/internal/agent/prompts"
	errx "github.com/jobchat-core/server/internal/core/error"
	logx "github.com/jobchat-core/server/pkg/logger"
)

// SessionHeader carries the session id when the body or query does not.
const SessionHeader = "X-Session-ID"

type Handlers struct {
	cfg  Config
	deps Deps
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

type SessionInfo struct {
	SessionID     string                `json:"session_id"`
	Phase         model.Phase           `json:"phase"`
	Slots         map[model.Slot]string `json:"slots"`
	Language      model.Language        `json:"language,omitempty"`
	HistoryLength int                   `json:"history_length"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters,omitempty"`
}

type ToolsRunRequest struct {
	Message  string   `json:"message" binding:"required"`
	Tools    []string `json:"tools"`
	MaxSteps int      `json:"max_steps"`
}

type ToolsRunResponse struct {
	FinalAnswer     string                 `json:"final_answer"`
	ToolCalls       []model.ToolCallRecord `json:"tool_calls"`
	Steps           int                    `json:"steps"`
	MaxStepsReached bool                   `json:"max_steps_reached"`
	Error           string                 `json:"error,omitempty"`
}

func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": h.cfg.ServiceName,
		"version": h.cfg.Version,
	})
}

func (h *Handlers) HandleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errx.InvalidInput(errors.New("message is required")))
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = strings.TrimSpace(c.GetHeader(SessionHeader))
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	reply, err := h.deps.Service.Handle(c.Request.Context(), sessionID, req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header(SessionHeader, sessionID)
	c.JSON(http.StatusOK, reply)
}

func (h *Handlers) HandleSessionInfo(c *gin.Context) {
	sessionID, ok := requireSession(c)
	if !ok {
		return
	}
	st, err := h.deps.Service.Info(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SessionInfo{
		SessionID:     st.SessionID,
		Phase:         st.Phase,
		Slots:         st.Slots,
		Language:      st.Language,
		HistoryLength: len(st.History),
		CreatedAt:     st.CreatedAt,
		UpdatedAt:     st.UpdatedAt,
	})
}

func (h *Handlers) HandleSessionReset(c *gin.Context) {
	sessionID, ok := requireSession(c)
	if !ok {
		return
	}
	if err := h.deps.Service.Reset(c.Request.Context(), sessionID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset", "session_id": sessionID})
}

func (h *Handlers) HandleSessions(c *gin.Context) {
	list, cleaned, err := h.deps.Service.Sessions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions":            list,
		"active_sessions":     len(list),
		"cleaned_up_sessions": cleaned,
	})
}

// ModelsResponse is the configured models plus what the backend serves.
type ModelsResponse struct {
	ModelInfo
	Available      []string `json:"available_models,omitempty"`
	AvailableError string   `json:"available_models_error,omitempty"`
}

func (h *Handlers) HandleModels(c *gin.Context) {
	resp := ModelsResponse{ModelInfo: h.deps.Models}
	if h.deps.Backend != nil {
		ids, err := h.deps.Backend.List(c.Request.Context())
		if err != nil {
			logx.Warn().Err(err).Msg("listing backend models failed")
			resp.AvailableError = err.Error()
		} else {
			resp.Available = ids
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) HandleTools(c *gin.Context) {
	infos := h.deps.Tools.List()
	out := make([]ToolInfo, 0, len(infos))
	for _, ti := range infos {
		item := ToolInfo{Name: ti.Name, Description: ti.Desc}
		if ti.ParamsOneOf != nil {
			if js, err := ti.ParamsOneOf.ToJSONSchema(); err == nil {
				item.Parameters = js
			} else {
				logx.Warn().Err(err).Str("tool", ti.Name).Msg("tool schema unavailable")
			}
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"tools": out, "count": len(out)})
}

// HandleToolsRun runs one stateless tool-calling loop over a single message.
func (h *Handlers) HandleToolsRun(c *gin.Context) {
	var req ToolsRunRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeError(c, errx.InvalidInput(errors.New("message is required")))
		return
	}
	names := req.Tools
	if len(names) == 0 {
		names = h.deps.Tools.Names()
	}
	maxSteps := req.MaxSteps
	if maxSteps <= 0 {
		maxSteps = h.cfg.MaxSteps
	}

	ctx := c.Request.Context()
	var history []*schema.Message
	if h.deps.Prompts != nil {
		if system, err := h.deps.Prompts.Render(ctx, prompts.RecruiterSystem, map[string]any{"service_name": h.cfg.ServiceName}); err == nil {
			history = append(history, schema.SystemMessage(system))
		}
	}
	history = append(history, schema.UserMessage(req.Message))

	res := h.deps.Loop.Run(ctx, history, names, maxSteps)
	resp := ToolsRunResponse{
		FinalAnswer:     res.FinalAnswer,
		ToolCalls:       res.ToolCalls,
		Steps:           res.Steps,
		MaxStepsReached: res.MaxStepsReached,
	}
	if resp.ToolCalls == nil {
		resp.ToolCalls = []model.ToolCallRecord{}
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func requireSession(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Query("session_id"))
	if id == "" {
		id = strings.TrimSpace(c.GetHeader(SessionHeader))
	}
	if id == "" {
		writeError(c, errx.InvalidInput(errors.New("session_id is required")))
		return "", false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	status := errx.StatusOf(err)
	if errors.Is(err, errx.ErrSessionNotFound) {
		status = http.StatusNotFound
	}
	msg := errx.SystemErrorMessage
	var ae *errx.AppError
	switch {
	case errors.As(err, &ae):
		msg = ae.Message
	case status == http.StatusNotFound:
		msg = err.Error()
	}
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}
