package model

import (
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsComplete(t *testing.T) {
	tests := []struct {
		name  string
		slots map[Slot]string
		want  bool
	}{
		{"empty", map[Slot]string{}, false},
		{"initial query only", map[Slot]string{SlotInitialQuery: "tìm việc"}, false},
		{"location only", map[Slot]string{SlotInitialQuery: "tìm việc", SlotLocation: "Hà Nội"}, false},
		{"location and skills", map[Slot]string{SlotLocation: "Hà Nội", SlotSkills: "Python, SQL"}, true},
		{"location and salary", map[Slot]string{SlotLocation: "HCM", SlotSalary: "20 triệu"}, true},
		{"location and position", map[Slot]string{SlotLocation: "HCM", SlotPosition: "backend"}, true},
		{"skills without location", map[Slot]string{SlotSkills: "Go", SlotSalary: "2000 usd"}, false},
		{"blank location", map[Slot]string{SlotLocation: "  ", SlotSkills: "Go"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewConversationState("s1", time.Now())
			s.Slots = tt.slots
			assert.Equal(t, tt.want, s.IsComplete())
		})
	}
}

func TestIsCompleteMonotonic(t *testing.T) {
	s := NewConversationState("s1", time.Now())
	s.SetSlot(SlotLocation, "Đà Nẵng")
	s.SetSlot(SlotSkills, "Java")
	require.True(t, s.IsComplete())

	for _, slot := range []Slot{SlotSalary, SlotPosition, SlotInitialQuery} {
		s.SetSlot(slot, "x")
		assert.True(t, s.IsComplete(), "adding %s must keep the predicate true", slot)
	}
}

func TestSetSlotIgnoresBlank(t *testing.T) {
	s := NewConversationState("s1", time.Now())
	s.SetSlot(SlotSkills, "   ")
	assert.False(t, s.Has(SlotSkills))
	assert.Equal(t, 0, s.FilledInfoSlots())

	s.SetSlot(SlotSkills, "Go")
	s.SetSlot(SlotSkills, "Rust")
	assert.Equal(t, "Rust", s.Slots[SlotSkills])
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewConversationState("s1", time.Now())
	s.SetSlot(SlotLocation, "Hà Nội")
	s.Append(schema.UserMessage("hi"))

	c := s.Clone()
	c.SetSlot(SlotLocation, "HCM")
	c.Append(schema.AssistantMessage("hello", nil))
	c.Phase = PhaseWaitingForSkills

	assert.Equal(t, "Hà Nội", s.Slots[SlotLocation])
	assert.Len(t, s.History, 1)
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Len(t, c.History, 2)
}

func TestValidate(t *testing.T) {
	s := NewConversationState("s1", time.Now())
	require.NoError(t, s.Validate())

	s.Phase = PhaseWaitingForSkills
	assert.Error(t, s.Validate())

	s.SetSlot(SlotInitialQuery, "tìm việc")
	assert.NoError(t, s.Validate())

	s.Phase = Phase("bogus")
	assert.Error(t, s.Validate())
}

func TestPhaseSlotMapping(t *testing.T) {
	for _, slot := range InfoSlots {
		got, ok := slot.WaitingPhase().AwaitedSlot()
		require.True(t, ok)
		assert.Equal(t, slot, got)
	}
	_, ok := PhaseWaitingForInfo.AwaitedSlot()
	assert.False(t, ok)

	slot, ok := ParseSlot(" Skills ")
	assert.True(t, ok)
	assert.Equal(t, SlotSkills, slot)
	_, ok = ParseSlot("initial_query")
	assert.False(t, ok)
}

func TestResetKeepsHistory(t *testing.T) {
	s := NewConversationState("s1", time.Now())
	s.SetSlot(SlotInitialQuery, "q")
	s.Phase = PhaseWaitingForInfo
	s.Append(schema.UserMessage("q"))

	s.Reset()
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Empty(t, s.Slots)
	assert.Len(t, s.History, 1)
}
