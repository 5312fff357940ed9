package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
)

// Phase is the slot-filling position of a session.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseWaitingForLocation Phase = "waiting_for_location"
	PhaseWaitingForSkills   Phase = "waiting_for_skills"
	PhaseWaitingForSalary   Phase = "waiting_for_salary"
	PhaseWaitingForPosition Phase = "waiting_for_position"
	PhaseWaitingForInfo     Phase = "waiting_for_info"
)

// Valid reports whether p is one of the declared phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseIdle, PhaseWaitingForLocation, PhaseWaitingForSkills,
		PhaseWaitingForSalary, PhaseWaitingForPosition, PhaseWaitingForInfo:
		return true
	}
	return false
}

// AwaitedSlot returns the slot a waiting phase asks for.
// PhaseIdle and PhaseWaitingForInfo await no specific slot.
func (p Phase) AwaitedSlot() (Slot, bool) {
	switch p {
	case PhaseWaitingForLocation:
		return SlotLocation, true
	case PhaseWaitingForSkills:
		return SlotSkills, true
	case PhaseWaitingForSalary:
		return SlotSalary, true
	case PhaseWaitingForPosition:
		return SlotPosition, true
	}
	return "", false
}

// Slot names a piece of information collected during slot filling.
type Slot string

const (
	SlotLocation     Slot = "location"
	SlotSkills       Slot = "skills"
	SlotSalary       Slot = "salary"
	SlotPosition     Slot = "position"
	SlotInitialQuery Slot = "initial_query"
)

// InfoSlots lists the fillable slots in keyword scan order.
var InfoSlots = []Slot{SlotLocation, SlotSkills, SlotSalary, SlotPosition}

// ParseSlot maps a classifier tag onto a fillable slot.
func ParseSlot(tag string) (Slot, bool) {
	s := Slot(strings.ToLower(strings.TrimSpace(tag)))
	for _, known := range InfoSlots {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// WaitingPhase returns the phase that asks for s.
func (s Slot) WaitingPhase() Phase {
	switch s {
	case SlotLocation:
		return PhaseWaitingForLocation
	case SlotSkills:
		return PhaseWaitingForSkills
	case SlotSalary:
		return PhaseWaitingForSalary
	case SlotPosition:
		return PhaseWaitingForPosition
	}
	return PhaseWaitingForInfo
}

// Language of the canned follow-up questions.
type Language string

const (
	LanguageVietnamese Language = "vi"
	LanguageEnglish    Language = "en"
)

// ConversationState is everything the agent remembers about one session.
type ConversationState struct {
	SessionID string            `json:"session_id"`
	Phase     Phase             `json:"phase"`
	Slots     map[Slot]string   `json:"slots"`
	History   []*schema.Message `json:"history"`
	Language  Language          `json:"language,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func NewConversationState(sessionID string, now time.Time) *ConversationState {
	return &ConversationState{
		SessionID: sessionID,
		Phase:     PhaseIdle,
		Slots:     map[Slot]string{},
		History:   []*schema.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone copies the state so a turn can mutate it and commit at the end.
// Messages are shared; they are never mutated after being appended.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	c := *s
	c.Slots = make(map[Slot]string, len(s.Slots))
	for k, v := range s.Slots {
		c.Slots[k] = v
	}
	c.History = append(make([]*schema.Message, 0, len(s.History)+2), s.History...)
	return &c
}

// Has reports whether slot holds non-blank text.
func (s *ConversationState) Has(slot Slot) bool {
	return strings.TrimSpace(s.Slots[slot]) != ""
}

// SetSlot overwrites slot. Blank values are ignored.
func (s *ConversationState) SetSlot(slot Slot, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	if s.Slots == nil {
		s.Slots = map[Slot]string{}
	}
	s.Slots[slot] = value
}

// FilledInfoSlots counts filled slots other than initial_query.
func (s *ConversationState) FilledInfoSlots() int {
	n := 0
	for k := range s.Slots {
		if k != SlotInitialQuery && s.Has(k) {
			n++
		}
	}
	return n
}

// IsComplete is the slot-filling completion predicate.
func (s *ConversationState) IsComplete() bool {
	if !s.Has(SlotLocation) {
		return false
	}
	return s.Has(SlotSkills) || s.Has(SlotPosition) || s.Has(SlotSalary) || s.FilledInfoSlots() >= 2
}

// Append adds a turn to the history.
func (s *ConversationState) Append(msgs ...*schema.Message) {
	s.History = append(s.History, msgs...)
}

// Reset clears slot-filling progress. History is kept.
func (s *ConversationState) Reset() {
	s.Phase = PhaseIdle
	s.Slots = map[Slot]string{}
}

// Validate checks the phase invariant.
func (s *ConversationState) Validate() error {
	if !s.Phase.Valid() {
		return fmt.Errorf("unknown phase %q", s.Phase)
	}
	if s.Phase != PhaseIdle && !s.Has(SlotInitialQuery) {
		return fmt.Errorf("phase %q without %s", s.Phase, SlotInitialQuery)
	}
	return nil
}

// Summary returns the listing view of the state.
func (s *ConversationState) Summary() SessionSummary {
	return SessionSummary{
		SessionID:     s.SessionID,
		Phase:         s.Phase,
		HistoryLength: len(s.History),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}
