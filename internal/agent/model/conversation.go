package model

import (
	"context"
	"time"
)

// ConversationStore persists per-session conversation state.
type ConversationStore interface {
	// Load returns the stored state or errx.ErrSessionNotFound.
	Load(ctx context.Context, sessionID string) (*ConversationState, error)

	// Save replaces the stored state and refreshes its expiry.
	Save(ctx context.Context, state *ConversationState) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List summarizes every live session.
	List(ctx context.Context) ([]SessionSummary, error)

	// Cleanup drops expired sessions and reports how many were removed.
	Cleanup(ctx context.Context) (int, error)
}

// SessionSummary is the listing view of a stored session.
type SessionSummary struct {
	SessionID     string    `json:"session_id"`
	Phase         Phase     `json:"phase"`
	HistoryLength int       `json:"history_length"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
