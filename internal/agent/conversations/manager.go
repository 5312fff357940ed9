package conversations

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/jobchat-core/server/internal/agent/model"
	errx "github.com/jobchat-core/server/internal/core/error"
	logx "github.com/jobchat-core/server/pkg/logger"
)

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes turns per session on top of a ConversationStore.
// Different sessions proceed concurrently.
type Manager struct {
	store      model.ConversationStore
	maxHistory int
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

func NewManager(store model.ConversationStore, config model.ConversationConfig) *Manager {
	return &Manager{
		store:      store,
		maxHistory: config.MaxHistory,
		now:        time.Now,
		locks:      map[string]*sessionLock{},
	}
}

// Turn loads the session (creating it lazily), runs fn on a copy and saves
// the copy. The session stays locked for the whole turn. A stored state
// that breaks the phase invariant is reset before fn sees it.
func (m *Manager) Turn(ctx context.Context, sessionID string, fn func(state *model.ConversationState)) (*model.ConversationState, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errx.InvalidInput(errors.New("session id is required"))
	}
	unlock := m.lock(sessionID)
	defer unlock()

	stored, err := m.store.Load(ctx, sessionID)
	switch {
	case errors.Is(err, errx.ErrSessionNotFound):
		stored = model.NewConversationState(sessionID, m.now())
		logx.Debug().Str("session_id", sessionID).Msg("new conversation session")
	case err != nil:
		return nil, err
	}

	state := stored.Clone()
	if err := state.Validate(); err != nil {
		logx.Warn().Err(err).Str("session_id", sessionID).Msg("stored state is invalid, resetting before the turn")
		state.Reset()
	}
	fn(state)
	state.UpdatedAt = m.now()
	if err := state.Validate(); err != nil {
		// never persist a broken invariant; keep slot progress out of it
		logx.Error().Err(err).Str("session_id", sessionID).Msg("turn produced invalid state, resetting phase")
		state.Reset()
	}
	if err := m.store.Save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Get returns the stored state without locking it for a turn.
func (m *Manager) Get(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	return m.store.Load(ctx, sessionID)
}

// Reset discards the session.
func (m *Manager) Reset(ctx context.Context, sessionID string) error {
	unlock := m.lock(sessionID)
	defer unlock()
	return m.store.Delete(ctx, sessionID)
}

// List summarizes the live sessions.
func (m *Manager) List(ctx context.Context) ([]model.SessionSummary, error) {
	return m.store.List(ctx)
}

// Cleanup removes expired sessions.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	return m.store.Cleanup(ctx)
}

// BuildContext prepends the system prompt to the most recent history turns.
func (m *Manager) BuildContext(systemPrompt string, history []*schema.Message) []*schema.Message {
	return BuildContext(systemPrompt, history, m.maxHistory)
}

// BuildContext prepends systemPrompt (when non-empty) to the last maxTurns
// turns of history. maxTurns <= 0 keeps everything.
func BuildContext(systemPrompt string, history []*schema.Message, maxTurns int) []*schema.Message {
	recent := trimTail(history, maxTurns)
	if systemPrompt == "" {
		return recent
	}
	return append([]*schema.Message{schema.SystemMessage(systemPrompt)}, recent...)
}

func (m *Manager) lock(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		m.locks[sessionID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, sessionID)
		}
		m.mu.Unlock()
	}
}

// trimTail returns a copy of the last maxTurns messages.
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
