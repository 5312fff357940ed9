package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobchat-core/server/internal/agent/conversations"
	"github.com/jobchat-core/server/internal/agent/gateway"
	"github.com/jobchat-core/server/internal/agent/gateway/gatewaytest"
	"github.com/jobchat-core/server/internal/agent/model"
	"github.com/jobchat-core/server/internal/agent/orchestrator"
	"github.com/jobchat-core/server/internal/agent/prompts"
	"github.com/jobchat-core/server/internal/agent/toolloop"
	"github.com/jobchat-core/server/internal/agent/tools"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, chat *gatewaytest.ScriptedModel, cfg Config) *gin.Engine {
	t.Helper()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "JobChat"
	}
	return NewRouter(cfg, newTestDeps(t, chat))
}

func newTestDeps(t *testing.T, chat *gatewaytest.ScriptedModel) Deps {
	t.Helper()
	catalog, err := prompts.Default()
	require.NoError(t, err)
	registry, err := tools.NewDefaultRegistry(context.Background(), tools.Deps{Timeout: time.Second})
	require.NoError(t, err)

	llm := gateway.New(gateway.ResponseGateway, "test-model", chat, time.Second)
	manager := conversations.NewManager(conversations.NewMemoryStore(time.Hour), model.ConversationConfig{MaxHistory: 10})
	svc := orchestrator.NewService(orchestrator.NewSimpleBot(catalog, llm, "JobChat", 10), manager)

	return Deps{
		Service: svc,
		Tools:   registry,
		Loop:    toolloop.New(llm, registry, 3),
		Prompts: catalog,
		Models:  ModelInfo{Provider: "ollama", NLUModel: "n", ResponseModel: "test-model", AgentMode: "simple"},
	}
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, gatewaytest.NewScriptedModel(), Config{Version: "1.2.3"})
	for _, path := range []string{"/", "/health"} {
		w := do(r, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode[map[string]string](t, w)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "1.2.3", body["version"])
	}
}

func TestChatAssignsSessionAndKeepsHistory(t *testing.T) {
	r := newTestRouter(t, gatewaytest.NewScriptedModel().Always(gatewaytest.Text("Happy to help.")), Config{})

	w := do(r, http.MethodPost, "/api/chat", ChatRequest{Message: "Any job openings?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reply := decode[orchestrator.Reply](t, w)
	require.NotEmpty(t, reply.SessionID)
	assert.Equal(t, reply.SessionID, w.Header().Get(SessionHeader))
	assert.Equal(t, "Happy to help.", reply.Reply)
	assert.Equal(t, orchestrator.IntentJobInquiry, reply.Intent)

	w = do(r, http.MethodPost, "/api/chat", ChatRequest{Message: "thanks", SessionID: reply.SessionID})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/session/info?session_id="+reply.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[SessionInfo](t, w)
	assert.Equal(t, 4, info.HistoryLength)
	assert.Equal(t, model.PhaseIdle, info.Phase)

	w = do(r, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessions := decode[map[string]any](t, w)
	assert.EqualValues(t, 1, sessions["active_sessions"])
	assert.EqualValues(t, 0, sessions["cleaned_up_sessions"])

	w = do(r, http.MethodDelete, "/api/session?session_id="+reply.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodGet, "/api/session/info?session_id="+reply.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatValidation(t *testing.T) {
	r := newTestRouter(t, gatewaytest.NewScriptedModel(), Config{})

	w := do(r, http.MethodPost, "/api/chat", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/chat", ChatRequest{Message: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/session/info", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatSurvivesBackendOutage(t *testing.T) {
	r := newTestRouter(t, gatewaytest.NewScriptedModel(), Config{})
	w := do(r, http.MethodPost, "/api/chat", ChatRequest{Message: "hello", SessionID: "s1"})
	require.Equal(t, http.StatusOK, w.Code)
	reply := decode[orchestrator.Reply](t, w)
	assert.Contains(t, reply.Reply, "Error communicating with the model backend")
	assert.NotEmpty(t, reply.Detail)
}

type staticModels struct {
	ids []string
	err error
}

func (s staticModels) List(context.Context) ([]string, error) { return s.ids, s.err }

func TestModelsListsBackendModels(t *testing.T) {
	deps := newTestDeps(t, gatewaytest.NewScriptedModel())
	deps.Backend = staticModels{ids: []string{"llama3.2:3b", "qwen3:8b"}}
	r := NewRouter(Config{ServiceName: "JobChat"}, deps)

	w := do(r, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[ModelsResponse](t, w)
	assert.Equal(t, "ollama", body.Provider)
	assert.Equal(t, []string{"llama3.2:3b", "qwen3:8b"}, body.Available)
	assert.Empty(t, body.AvailableError)

	deps.Backend = staticModels{err: errors.New("connection refused")}
	r = NewRouter(Config{ServiceName: "JobChat"}, deps)
	w = do(r, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode[ModelsResponse](t, w)
	assert.Empty(t, body.Available)
	assert.Contains(t, body.AvailableError, "connection refused")
}

func TestModelsAndTools(t *testing.T) {
	r := newTestRouter(t, gatewaytest.NewScriptedModel(), Config{})

	w := do(r, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test-model", decode[ModelInfo](t, w).ResponseModel)

	w = do(r, http.MethodGet, "/api/tools", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Tools []ToolInfo `json:"tools"`
		Count int        `json:"count"`
	}](t, w)
	assert.Equal(t, 2, body.Count)
	names := []string{body.Tools[0].Name, body.Tools[1].Name}
	assert.ElementsMatch(t, []string{tools.ToolSearchJobInfo, tools.ToolGetJobDetails}, names)
}

func TestToolsRun(t *testing.T) {
	chat := gatewaytest.NewScriptedModel(
		gatewaytest.ToolCalls("", gatewaytest.Call("c1", tools.ToolGetJobDetails, `{"job_id":"J001"}`)),
		gatewaytest.Text("J001 is a Python role."),
	)
	r := newTestRouter(t, chat, Config{MaxSteps: 3})

	w := do(r, http.MethodPost, "/api/tools/run", ToolsRunRequest{Message: "tell me about J001"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[ToolsRunResponse](t, w)
	assert.Equal(t, "J001 is a Python role.", res.FinalAnswer)
	assert.Equal(t, 2, res.Steps)
	require.Len(t, res.ToolCalls, 1)
	assert.Empty(t, res.ToolCalls[0].Error)
	assert.Empty(t, res.Error)
}

func TestRateLimit(t *testing.T) {
	r := newTestRouter(t, gatewaytest.NewScriptedModel(), Config{RateLimit: 0.001, RateBurst: 1})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/models", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, "/api/models", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t, gatewaytest.NewScriptedModel(), Config{})
	w := do(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
