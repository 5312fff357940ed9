package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/jobchat-core/server/internal/agent/conversations"
	"github.com/jobchat-core/server/internal/agent/gateway"
	"github.com/jobchat-core/server/internal/agent/model"
	"github.com/jobchat-core/server/internal/agent/prompts"
	"github.com/jobchat-core/server/internal/metrics"
	logx "github.com/jobchat-core/server/pkg/logger"
)

// Keyword intents of the simple bot.
const (
	IntentJobInquiry   = "job_inquiry"
	IntentApplication  = "application"
	IntentInterview    = "interview"
	IntentCompensation = "compensation"
	IntentGeneral      = "general"
)

const BranchSimple = "simple"

var simpleIntents = []struct {
	name  string
	words []string
}{
	{IntentJobInquiry, []string{"job", "position", "vacancy", "opening", "career"}},
	{IntentApplication, []string{"application", "apply", "resume", "cv"}},
	{IntentInterview, []string{"interview", "schedule", "meeting"}},
	{IntentCompensation, []string{"salary", "pay", "compensation", "benefits"}},
}

// SimpleBot answers from the history alone. It never changes the phase.
type SimpleBot struct {
	prompts     Renderer
	llm         gateway.ChatGateway
	serviceName string
	maxHistory  int
}

var _ Chatbot = (*SimpleBot)(nil)

func NewSimpleBot(p Renderer, llm gateway.ChatGateway, serviceName string, maxHistory int) *SimpleBot {
	return &SimpleBot{prompts: p, llm: llm, serviceName: serviceName, maxHistory: maxHistory}
}

// ClassifyIntent matches keywords; no model call is made.
func (b *SimpleBot) ClassifyIntent(_ context.Context, utterance string) string {
	lower := strings.ToLower(utterance)
	for _, in := range simpleIntents {
		for _, w := range in.words {
			if strings.Contains(lower, w) {
				return in.name
			}
		}
	}
	return IntentGeneral
}

func (b *SimpleBot) Chat(ctx context.Context, st *model.ConversationState, utterance string) Reply {
	st.Append(schema.UserMessage(utterance))
	reply := Reply{Intent: b.ClassifyIntent(ctx, utterance), Branch: BranchSimple}

	system, err := b.prompts.Render(ctx, prompts.RecruiterSystem, map[string]any{"service_name": b.serviceName})
	if err != nil {
		logx.Warn().Err(err).Msg("recruiter prompt failed, sending history only")
		system = ""
	}
	text, err := b.llm.Generate(ctx, conversations.BuildContext(system, st.History, b.maxHistory))
	outcome := "ok"
	if err != nil {
		outcome = "error"
		logx.Error().Err(err).Str("session_id", st.SessionID).Msg("simple bot generation failed")
		reply.Reply = fmt.Sprintf("Error communicating with the model backend: %v", err)
		reply.Detail = err.Error()
	} else {
		reply.Reply = gateway.StripReasoning(text)
	}
	st.Append(schema.AssistantMessage(reply.Reply, nil))
	metrics.Turns.WithLabelValues(BranchSimple, outcome).Inc()

	reply.Phase = st.Phase
	reply.Slots = copySlots(st.Slots)
	return reply
}
