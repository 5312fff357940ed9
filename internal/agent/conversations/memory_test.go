package conversations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobchat-core/server/internal/agent/model"
	errx "github.com/jobchat-core/server/internal/core/error"
)

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	s := NewMemoryStore(30 * time.Minute)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, model.NewConversationState("old", now.Add(-time.Hour))))
	require.NoError(t, s.Save(ctx, model.NewConversationState("fresh", now.Add(-time.Minute))))

	_, err := s.Load(ctx, "old")
	assert.ErrorIs(t, err, errx.ErrSessionNotFound)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "fresh", list[0].SessionID)

	n, err := s.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	st := model.NewConversationState("s1", time.Now())
	require.NoError(t, s.Save(ctx, st))

	st.SetSlot(model.SlotLocation, "Hà Nội")
	loaded, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, loaded.Has(model.SlotLocation))
}

func TestRunJanitorStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunJanitor(ctx, NewMemoryStore(time.Minute), time.Millisecond) }()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
