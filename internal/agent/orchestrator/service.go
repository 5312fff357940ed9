package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/jobchat-core/server/internal/agent/conversations"
	"github.com/jobchat-core/server/internal/agent/model"
	errx "github.com/jobchat-core/server/internal/core/error"
)

// Service runs chatbot turns against stored sessions.
type Service struct {
	bot      Chatbot
	sessions *conversations.Manager
}

func NewService(bot Chatbot, sessions *conversations.Manager) *Service {
	return &Service{bot: bot, sessions: sessions}
}

// Handle runs one turn of sessionID. Only storage failures and invalid input
// are returned as errors; model failures are part of the Reply.
func (s *Service) Handle(ctx context.Context, sessionID, utterance string) (Reply, error) {
	if strings.TrimSpace(utterance) == "" {
		return Reply{}, errx.InvalidInput(errors.New("message must not be empty"))
	}
	var reply Reply
	state, err := s.sessions.Turn(ctx, sessionID, func(st *model.ConversationState) {
		reply = s.bot.Chat(ctx, st, utterance)
	})
	if err != nil {
		return Reply{}, err
	}
	reply.SessionID = state.SessionID
	reply.Phase = state.Phase
	reply.Slots = copySlots(state.Slots)
	return reply, nil
}

// ClassifyIntent classifies without touching any session.
func (s *Service) ClassifyIntent(ctx context.Context, utterance string) string {
	return s.bot.ClassifyIntent(ctx, utterance)
}

// Info returns the stored state of sessionID.
func (s *Service) Info(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	return s.sessions.Get(ctx, sessionID)
}

// Reset discards sessionID.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	return s.sessions.Reset(ctx, sessionID)
}

// Sessions sweeps expired sessions and lists the live ones.
func (s *Service) Sessions(ctx context.Context) ([]model.SessionSummary, int, error) {
	cleaned, err := s.sessions.Cleanup(ctx)
	if err != nil {
		return nil, 0, err
	}
	list, err := s.sessions.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	return list, cleaned, nil
}
