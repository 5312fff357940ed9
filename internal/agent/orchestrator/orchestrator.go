package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/jobchat-core/server/internal/agent/conversations"
	"github.com/jobchat-core/server/internal/agent/gateway"
	"github.com/jobchat-core/server/internal/agent/intent"
	"github.com/jobchat-core/server/internal/agent/model"
	"github.com/jobchat-core/server/internal/agent/prompts"
	"github.com/jobchat-core/server/internal/agent/toolloop"
	"github.com/jobchat-core/server/internal/agent/tools"
	errx "github.com/jobchat-core/server/internal/core/error"
	"github.com/jobchat-core/server/internal/metrics"
	logx "github.com/jobchat-core/server/pkg/logger"
)

// Branches reported in Reply.Branch.
const (
	BranchSlotFilling           = "slot_filling"
	BranchChitchat              = "chitchat"
	BranchRecruitmentIncomplete = "recruitment_incomplete"
	BranchRecruitmentComplete   = "recruitment_complete"
	BranchDefault               = "default"
)

var slotVocabulary = []string{
	string(model.SlotLocation),
	string(model.SlotSkills),
	string(model.SlotSalary),
	string(model.SlotPosition),
}

// Reply is the answer to one user turn.
type Reply struct {
	SessionID string                 `json:"session_id,omitempty"`
	Reply     string                 `json:"reply"`
	Phase     model.Phase            `json:"phase"`
	Slots     map[model.Slot]string  `json:"slots"`
	Intent    string                 `json:"intent"`
	Branch    string                 `json:"branch,omitempty"`
	ToolCalls []model.ToolCallRecord `json:"tool_calls,omitempty"`
	Detail    string                 `json:"detail,omitempty"`
}

// Chatbot answers turns against a session state it may mutate.
type Chatbot interface {
	Chat(ctx context.Context, state *model.ConversationState, utterance string) Reply
	ClassifyIntent(ctx context.Context, utterance string) string
}

// Renderer renders catalog prompts.
type Renderer interface {
	Render(ctx context.Context, name string, params map[string]any) (string, error)
}

// IntentClassifier is the part of intent.Classifier the orchestrator uses.
type IntentClassifier interface {
	Classify(ctx context.Context, utterance string, vocabulary []string) string
	ClassifySlot(ctx context.Context, utterance, initialQuery string, vocabulary []string) string
}

// LoopRunner runs the tool-calling loop.
type LoopRunner interface {
	Run(ctx context.Context, history []*schema.Message, toolNames []string, maxSteps int) toolloop.Result
}

type Deps struct {
	Prompts    Renderer
	Classifier IntentClassifier
	LLM        gateway.ChatGateway
	Loop       LoopRunner
}

type Config struct {
	SlotPriority string
	MaxSteps     int
	MaxHistory   int
	ServiceName  string
	ToolsEnabled bool
	// JobTools overrides the tools offered to the loop.
	JobTools []string
}

type settings struct {
	SlotPriority []model.Slot
	MaxSteps     int
	MaxHistory   int
	ServiceName  string
	ToolsEnabled bool
	JobTools     []string
}

// Orchestrator is the slot-filling recruitment agent.
type Orchestrator struct {
	prompts    Renderer
	classifier IntentClassifier
	llm        gateway.ChatGateway
	loop       LoopRunner
	cfg        settings
}

var _ Chatbot = (*Orchestrator)(nil)

func New(deps Deps, cfg Config) (*Orchestrator, error) {
	if deps.Prompts == nil || deps.Classifier == nil || deps.LLM == nil || deps.Loop == nil {
		return nil, errors.New("orchestrator: prompts, classifier, llm and loop are required")
	}
	priority, err := ParseSlotPriority(cfg.SlotPriority)
	if err != nil {
		return nil, err
	}
	jobTools := cfg.JobTools
	if len(jobTools) == 0 {
		jobTools = []string{tools.ToolSearchJobInfo, tools.ToolGetJobDetails}
	}
	if strings.TrimSpace(cfg.ServiceName) == "" {
		cfg.ServiceName = "JobChat"
	}
	return &Orchestrator{
		prompts:    deps.Prompts,
		classifier: deps.Classifier,
		llm:        deps.LLM,
		loop:       deps.Loop,
		cfg: settings{
			SlotPriority: priority,
			MaxSteps:     cfg.MaxSteps,
			MaxHistory:   cfg.MaxHistory,
			ServiceName:  cfg.ServiceName,
			ToolsEnabled: cfg.ToolsEnabled,
			JobTools:     jobTools,
		},
	}, nil
}

type turnResult struct {
	branch    string
	intent    string
	reply     string
	toolCalls []model.ToolCallRecord
	err       error
}

// ClassifyIntent returns the top-level intent of utterance.
func (o *Orchestrator) ClassifyIntent(ctx context.Context, utterance string) string {
	return o.classifier.Classify(ctx, utterance, intent.TopLevel)
}

// Chat handles one turn. The user turn and the reply are always appended to
// the history; phase and slot changes are committed only when the turn succeeds.
func (o *Orchestrator) Chat(ctx context.Context, st *model.ConversationState, utterance string) Reply {
	st.Append(schema.UserMessage(utterance))
	from := st.Phase

	work := st.Clone()
	var res turnResult
	if work.Phase != model.PhaseIdle {
		res = o.fillSlot(ctx, work, utterance)
	} else {
		res = o.route(ctx, work, utterance)
	}

	outcome := "ok"
	reply := Reply{Intent: res.intent, Branch: res.branch, ToolCalls: res.toolCalls}
	if res.err != nil {
		outcome = "error"
		reply.Reply = Apology(languageOf(st, utterance))
		reply.Detail = res.err.Error()
		logx.Error().Err(res.err).Str("session_id", st.SessionID).Str("branch", res.branch).
			Str("kind", string(errx.KindOf(res.err))).Msg("turn failed")
	} else {
		reply.Reply = gateway.StripReasoning(res.reply)
		st.Phase = work.Phase
		st.Slots = work.Slots
		st.Language = work.Language
	}
	st.Append(schema.AssistantMessage(reply.Reply, nil))

	if st.Phase != from {
		metrics.PhaseTransitions.WithLabelValues(string(from), string(st.Phase)).Inc()
	}
	metrics.Turns.WithLabelValues(res.branch, outcome).Inc()

	reply.Phase = st.Phase
	reply.Slots = copySlots(st.Slots)
	return reply
}

// route handles an utterance of an idle session.
func (o *Orchestrator) route(ctx context.Context, st *model.ConversationState, utterance string) turnResult {
	tag := o.ClassifyIntent(ctx, utterance)
	var res turnResult
	switch tag {
	case intent.Chitchat:
		res = o.chitchat(ctx, st)
	case intent.RecruitmentIncomplete:
		res = o.askForDetails(ctx, st, utterance)
	case intent.RecruitmentComplete:
		res = o.searchJobs(ctx, st)
	default:
		res = o.answer(ctx, st, BranchDefault)
	}
	res.intent = tag
	return res
}

func (o *Orchestrator) chitchat(ctx context.Context, st *model.ConversationState) turnResult {
	system, err := o.prompts.Render(ctx, prompts.ChitchatRedirect, map[string]any{"service_name": o.cfg.ServiceName})
	if err != nil {
		logx.Warn().Err(err).Msg("chitchat prompt failed, answering directly")
		return o.answer(ctx, st, BranchDefault)
	}
	text, err := o.llm.Generate(ctx, conversations.BuildContext(system, st.History, o.cfg.MaxHistory))
	return turnResult{branch: BranchChitchat, reply: text, err: err}
}

// askForDetails stores the request and asks one clarifying question; the
// waiting phase follows from what the question asks about.
func (o *Orchestrator) askForDetails(ctx context.Context, st *model.ConversationState, utterance string) turnResult {
	system, err := o.prompts.Render(ctx, prompts.EnhanceQuestion, map[string]any{
		"service_name": o.cfg.ServiceName,
		"utterance":    utterance,
	})
	if err != nil {
		logx.Warn().Err(err).Msg("enhance prompt failed, answering directly")
		return o.answer(ctx, st, BranchDefault)
	}
	question, err := o.llm.Generate(ctx, []*schema.Message{schema.SystemMessage(system), schema.UserMessage(utterance)})
	if err != nil {
		return turnResult{branch: BranchRecruitmentIncomplete, err: err}
	}
	question = gateway.StripReasoning(question)
	st.Slots = map[model.Slot]string{}
	st.SetSlot(model.SlotInitialQuery, strings.TrimSpace(utterance))
	st.Language = DetectLanguage(utterance)
	st.Phase = phaseForQuestion(question)
	return turnResult{branch: BranchRecruitmentIncomplete, reply: question}
}

// searchJobs answers a complete request through the tool loop and falls
// back to plain generation when the loop fails.
func (o *Orchestrator) searchJobs(ctx context.Context, st *model.ConversationState) turnResult {
	system, err := o.prompts.Render(ctx, prompts.JobSearchSystem, map[string]any{
		"service_name": o.cfg.ServiceName,
		"search_tool":  tools.ToolSearchJobInfo,
		"detail_tool":  tools.ToolGetJobDetails,
	})
	if err != nil {
		logx.Warn().Err(err).Msg("job search prompt failed, answering directly")
		return o.answer(ctx, st, BranchDefault)
	}
	res := o.loop.Run(ctx, conversations.BuildContext(system, st.History, o.cfg.MaxHistory), o.jobTools(), o.cfg.MaxSteps)
	if res.Err != nil {
		logx.Warn().Err(res.Err).Int("steps", res.Steps).Msg("tool loop failed, falling back to plain generation")
		fallback := o.answer(ctx, st, BranchRecruitmentComplete)
		fallback.toolCalls = res.ToolCalls
		return fallback
	}
	return turnResult{branch: BranchRecruitmentComplete, reply: res.FinalAnswer, toolCalls: res.ToolCalls}
}

// answer is plain generation over the history.
func (o *Orchestrator) answer(ctx context.Context, st *model.ConversationState, branch string) turnResult {
	system, err := o.prompts.Render(ctx, prompts.RecruiterSystem, map[string]any{"service_name": o.cfg.ServiceName})
	if err != nil {
		logx.Warn().Err(err).Msg("recruiter prompt failed, sending history only")
		system = ""
	}
	text, err := o.llm.Generate(ctx, conversations.BuildContext(system, st.History, o.cfg.MaxHistory))
	if err != nil {
		err = fmt.Errorf("generate answer: %w", err)
	}
	return turnResult{branch: branch, reply: text, err: err}
}

func (o *Orchestrator) jobTools() []string {
	if !o.cfg.ToolsEnabled {
		return nil
	}
	return o.cfg.JobTools
}

func copySlots(in map[model.Slot]string) map[model.Slot]string {
	out := make(map[model.Slot]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
