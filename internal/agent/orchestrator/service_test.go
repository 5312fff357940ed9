package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobchat-core/server/internal/agent/conversations"
	"github.com/jobchat-core/server/internal/agent/gateway"
	"github.com/jobchat-core/server/internal/agent/gateway/gatewaytest"
	"github.com/jobchat-core/server/internal/agent/model"
	"github.com/jobchat-core/server/internal/agent/prompts"
	errx "github.com/jobchat-core/server/internal/core/error"
)

func newSimpleService(t *testing.T, llm *gateway.Gateway) *Service {
	t.Helper()
	catalog, err := prompts.Default()
	require.NoError(t, err)
	manager := conversations.NewManager(conversations.NewMemoryStore(time.Hour), model.ConversationConfig{MaxHistory: 10})
	return NewService(NewSimpleBot(catalog, llm, "JobChat", 10), manager)
}

func TestServiceRejectsEmptyMessage(t *testing.T) {
	svc := newSimpleService(t, gateway.New("response", "m", always("hi"), time.Second))
	_, err := svc.Handle(context.Background(), "s1", "   ")
	require.Error(t, err)
	assert.Equal(t, errx.KindInvalidInput, errx.KindOf(err))
}

func TestServicePersistsHistory(t *testing.T) {
	svc := newSimpleService(t, gateway.New("response", "m", always("Sure, tell me more."), time.Second))
	ctx := context.Background()

	reply, err := svc.Handle(ctx, "s1", "I want to apply for a job")
	require.NoError(t, err)
	assert.Equal(t, "s1", reply.SessionID)
	assert.Equal(t, "Sure, tell me more.", reply.Reply)
	assert.Equal(t, IntentJobInquiry, reply.Intent)

	_, err = svc.Handle(ctx, "s1", "what about the interview?")
	require.NoError(t, err)

	st, err := svc.Info(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, st.History, 4)
	assert.Equal(t, "what about the interview?", st.History[2].Content)

	list, cleaned, err := svc.Sessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, cleaned)
	require.Len(t, list, 1)
	assert.Equal(t, 4, list[0].HistoryLength)

	require.NoError(t, svc.Reset(ctx, "s1"))
	_, err = svc.Info(ctx, "s1")
	assert.ErrorIs(t, err, errx.ErrSessionNotFound)
}

func TestSimpleBotReportsBackendErrors(t *testing.T) {
	svc := newSimpleService(t, gateway.New("response", "m", failing("connection refused"), time.Second))

	reply, err := svc.Handle(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.Contains(t, reply.Reply, "Error communicating with the model backend")
	assert.NotEmpty(t, reply.Detail)
	assert.Equal(t, model.PhaseIdle, reply.Phase)
}

func TestSimpleBotKeywordIntents(t *testing.T) {
	bot := NewSimpleBot(nil, nil, "JobChat", 0)
	tests := map[string]string{
		"Any open position at your company?": IntentJobInquiry,
		"Where do I send my CV":              IntentApplication,
		"Can we schedule a call":             IntentInterview,
		"What are the benefits":              IntentCompensation,
		"Hello":                              IntentGeneral,
	}
	for in, want := range tests {
		assert.Equal(t, want, bot.ClassifyIntent(context.Background(), in), in)
	}
}

func TestServiceClassifyIntentUsesBot(t *testing.T) {
	svc := newSimpleService(t, gateway.New("response", "m", failing("unused"), time.Second))
	assert.Equal(t, IntentCompensation, svc.ClassifyIntent(context.Background(), "salary range?"))
}

func TestServiceResetsInvalidStoredStateBeforeRouting(t *testing.T) {
	h := newHarness(t, harnessOpts{
		nlu:      gatewaytest.NewScriptedModel().Always(gatewaytest.Text("other")),
		response: always("Python is in demand in Hà Nội."),
	})
	store := conversations.NewMemoryStore(time.Hour)
	broken := model.NewConversationState("s1", time.Now())
	broken.Phase = model.PhaseWaitingForSkills
	require.NoError(t, store.Save(context.Background(), broken))
	svc := NewService(h.bot, conversations.NewManager(store, model.ConversationConfig{MaxHistory: 10}))

	reply, err := svc.Handle(context.Background(), "s1", "Python")
	require.NoError(t, err)
	assert.Equal(t, "Python is in demand in Hà Nội.", reply.Reply)
	assert.Equal(t, BranchDefault, reply.Branch)
	assert.Equal(t, model.PhaseIdle, reply.Phase)
	assert.Empty(t, reply.Slots)

	reqs := h.nlu.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Messages[0].Content, "intent classifier")

	st, err := svc.Info(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseIdle, st.Phase)
	require.Len(t, st.History, 2)
}
