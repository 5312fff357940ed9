package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/jobchat-core/server/internal/agent/conversations"
	"github.com/jobchat-core/server/internal/agent/intent"
	"github.com/jobchat-core/server/internal/agent/model"
	"github.com/jobchat-core/server/internal/agent/prompts"
	"github.com/jobchat-core/server/internal/agent/tools"
	logx "github.com/jobchat-core/server/pkg/logger"
)

const notProvided = "not provided"

// ParseSlotPriority parses a comma separated slot order. Every entry must be a
// fillable slot, listed once, and location must be present.
func ParseSlotPriority(raw string) ([]model.Slot, error) {
	var out []model.Slot
	seen := map[model.Slot]bool{}
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		s, ok := model.ParseSlot(part)
		if !ok {
			return nil, fmt.Errorf("slot priority: unknown slot %q", strings.TrimSpace(part))
		}
		if seen[s] {
			return nil, fmt.Errorf("slot priority: duplicate slot %q", s)
		}
		seen[s] = true
		out = append(out, s)
	}
	if !seen[model.SlotLocation] {
		return nil, fmt.Errorf("slot priority: %q is required", model.SlotLocation)
	}
	return out, nil
}

// nextMissing returns the slot to ask for next. Location is always asked first
// because the completion predicate cannot hold without it.
func (o *Orchestrator) nextMissing(st *model.ConversationState) (model.Slot, bool) {
	if !st.Has(model.SlotLocation) {
		return model.SlotLocation, true
	}
	for _, s := range o.cfg.SlotPriority {
		if !st.Has(s) {
			return s, true
		}
	}
	return "", false
}

// resolveSlot decides which slot utterance answers: classifier first, then
// the keyword table, then the slot the phase is waiting for.
func (o *Orchestrator) resolveSlot(ctx context.Context, st *model.ConversationState, utterance string) (model.Slot, string, bool) {
	tag := o.classifier.ClassifySlot(ctx, utterance, st.Slots[model.SlotInitialQuery], slotVocabulary)
	if s, ok := model.ParseSlot(tag); ok {
		return s, tag, true
	}
	if s, ok := matchSlotKeyword(utterance); ok {
		return s, string(s), true
	}
	if s, ok := st.Phase.AwaitedSlot(); ok {
		return s, intent.Unknown, true
	}
	return "", intent.Unknown, false
}

// fillSlot handles an answer to a follow-up question.
func (o *Orchestrator) fillSlot(ctx context.Context, st *model.ConversationState, utterance string) turnResult {
	lang := languageOf(st, utterance)
	slot, tag, ok := o.resolveSlot(ctx, st, utterance)
	if !ok {
		return turnResult{branch: BranchSlotFilling, intent: tag, reply: Question(lang, st.Phase)}
	}
	st.SetSlot(slot, strings.TrimSpace(utterance))
	logx.Debug().Str("session_id", st.SessionID).Str("slot", string(slot)).Msg("slot filled")

	if st.IsComplete() {
		st.Phase = model.PhaseIdle
		reply, calls := o.synthesize(ctx, st, lang)
		return turnResult{branch: BranchSlotFilling, intent: tag, reply: reply, toolCalls: calls}
	}
	next, _ := o.nextMissing(st)
	st.Phase = next.WaitingPhase()
	return turnResult{branch: BranchSlotFilling, intent: tag, reply: Question(lang, st.Phase)}
}

// synthesize answers over the collected slots. It never fails: a canned
// summary replaces the model answer when it cannot be produced.
func (o *Orchestrator) synthesize(ctx context.Context, st *model.ConversationState, lang model.Language) (string, []model.ToolCallRecord) {
	params := map[string]any{
		"service_name":  o.cfg.ServiceName,
		"search_tool":   tools.ToolSearchJobInfo,
		"language_name": languageName(lang),
	}
	for _, s := range append([]model.Slot{model.SlotInitialQuery}, model.InfoSlots...) {
		v := strings.TrimSpace(st.Slots[s])
		if v == "" {
			v = notProvided
		}
		params[string(s)] = v
	}
	system, err := o.prompts.Render(ctx, prompts.SynthesizeSlots, params)
	if err != nil {
		logx.Error().Err(err).Msg("synthesis prompt failed, using slot summary")
		return SlotSummary(lang, st.Slots), nil
	}
	res := o.loop.Run(ctx, conversations.BuildContext(system, st.History, o.cfg.MaxHistory), o.jobTools(), o.cfg.MaxSteps)
	if res.Err != nil || strings.TrimSpace(res.FinalAnswer) == "" {
		logx.Error().Err(res.Err).Str("session_id", st.SessionID).Msg("synthesis failed, using slot summary")
		return SlotSummary(lang, st.Slots), res.ToolCalls
	}
	return res.FinalAnswer, res.ToolCalls
}
