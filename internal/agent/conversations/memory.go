package conversations

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jobchat-core/server/internal/agent/model"
	errx "github.com/jobchat-core/server/internal/core/error"
	"github.com/jobchat-core/server/internal/metrics"
	logx "github.com/jobchat-core/server/pkg/logger"
)

// MemoryStore keeps sessions in process memory. Sessions idle longer than
// the TTL are invisible to Load and removed by Cleanup.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.ConversationState
	ttl      time.Duration
	now      func() time.Time
}

var _ model.ConversationStore = (*MemoryStore)(nil)

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{sessions: map[string]*model.ConversationState{}, ttl: ttl, now: time.Now}
}

func (s *MemoryStore) expired(st *model.ConversationState) bool {
	return s.ttl > 0 && s.now().Sub(st.UpdatedAt) > s.ttl
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[sessionID]
	if !ok || s.expired(st) {
		return nil, errx.ErrSessionNotFound
	}
	return st.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, state *model.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[state.SessionID] = state.Clone()
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]model.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.SessionSummary, 0, len(s.sessions))
	for _, st := range s.sessions {
		if s.expired(st) {
			continue
		}
		out = append(out, st.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *MemoryStore) Cleanup(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, st := range s.sessions {
		if s.expired(st) {
			delete(s.sessions, id)
			n++
		}
	}
	if n > 0 {
		metrics.ExpiredSessions.Add(float64(n))
		logx.Info().Int("removed", n).Msg("expired sessions cleaned up")
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return n, nil
}

// RunJanitor calls Cleanup every interval until ctx is done.
func RunJanitor(ctx context.Context, store model.ConversationStore, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := store.Cleanup(ctx); err != nil {
				logx.Warn().Err(err).Msg("session cleanup failed")
			}
		}
	}
}
