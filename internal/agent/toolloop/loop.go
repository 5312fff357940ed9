package toolloop

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"golang.org/x/sync/errgroup"

	"github.com/jobchat-core/server/internal/agent/gateway"
	"github.com/jobchat-core/server/internal/agent/model"
	"github.com/jobchat-core/server/internal/agent/tools"
	"github.com/jobchat-core/server/internal/metrics"
	logx "github.com/jobchat-core/server/pkg/logger"
)

const (
	// DefaultMaxSteps bounds the loop when the caller passes a non-positive value.
	DefaultMaxSteps = 3

	// FinalAnswerInstruction is appended as a user turn once the step budget is spent.
	FinalAnswerInstruction = "Please provide a final answer based on the information above."

	// ApologyText is the final answer when the model backend fails.
	ApologyText = "Sorry, I could not finish looking that up right now. Please try again in a moment."

	maxParallelTools = 4
)

// ToolInvoker resolves and runs tools.
type ToolInvoker interface {
	Resolve(name string) (*schema.ToolInfo, bool)
	Invoke(ctx context.Context, call schema.ToolCall) tools.Invocation
}

// Result is the outcome of one loop run. ToolCalls is never retained by the loop.
type Result struct {
	FinalAnswer     string
	ToolCalls       []model.ToolCallRecord
	Steps           int
	MaxStepsReached bool
	Err             error
}

// Loop alternates model generations and tool executions under a step budget.
type Loop struct {
	llm             gateway.ChatGateway
	tools           ToolInvoker
	defaultMaxSteps int
}

func New(llm gateway.ChatGateway, invoker ToolInvoker, defaultMaxSteps int) *Loop {
	if defaultMaxSteps <= 0 {
		defaultMaxSteps = DefaultMaxSteps
	}
	return &Loop{llm: llm, tools: invoker, defaultMaxSteps: defaultMaxSteps}
}

// Run drives the conversation in history until the model answers without
// requesting tools or maxSteps is spent. The gateway is called at most
// maxSteps+1 times. history is not modified.
func (l *Loop) Run(ctx context.Context, history []*schema.Message, toolNames []string, maxSteps int) (res Result) {
	if maxSteps <= 0 {
		maxSteps = l.defaultMaxSteps
	}
	defer func() { metrics.LoopSteps.Observe(float64(res.Steps)) }()

	msgs := append(make([]*schema.Message, 0, len(history)+2*maxSteps+1), history...)

	infos, allowed := l.resolve(toolNames)
	if len(infos) == 0 {
		res.Steps = 1
		answer, err := l.llm.Generate(ctx, msgs)
		if err != nil {
			res.FinalAnswer, res.Err = ApologyText, err
			return res
		}
		res.FinalAnswer = answer
		return res
	}

	seq := 0
	for step := 1; step <= maxSteps; step++ {
		res.Steps = step
		resp, err := l.llm.GenerateWithTools(ctx, msgs, infos)
		if err != nil {
			logx.Error().Err(err).Int("step", step).Msg("tool loop aborted by model failure")
			res.FinalAnswer, res.Err = ApologyText, err
			return res
		}
		if len(resp.ToolCalls) == 0 {
			res.FinalAnswer = resp.Content
			return res
		}

		calls := make([]schema.ToolCall, len(resp.ToolCalls))
		for i, c := range resp.ToolCalls {
			if c.ID == "" {
				seq++
				c.ID = fmt.Sprintf("call_%d", seq)
			}
			if c.Type == "" {
				c.Type = "function"
			}
			calls[i] = c
		}
		msgs = append(msgs, schema.AssistantMessage(resp.Content, calls))

		for i, inv := range l.execute(ctx, calls, allowed) {
			res.ToolCalls = append(res.ToolCalls, inv.Record)
			turn := schema.ToolMessage(inv.Payload, calls[i].ID)
			turn.ToolName = calls[i].Function.Name
			msgs = append(msgs, turn)
		}
		logx.Debug().Int("step", step).Int("tool_calls", len(calls)).Msg("tool loop step done")
	}

	res.MaxStepsReached = true
	res.Steps = maxSteps
	msgs = append(msgs, schema.UserMessage(FinalAnswerInstruction))
	answer, err := l.llm.Generate(ctx, msgs)
	if err != nil {
		logx.Error().Err(err).Msg("final answer after max steps failed")
		res.FinalAnswer, res.Err = ApologyText, err
		return res
	}
	res.FinalAnswer = answer
	return res
}

func (l *Loop) resolve(names []string) ([]*schema.ToolInfo, map[string]bool) {
	infos := make([]*schema.ToolInfo, 0, len(names))
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		if allowed[n] {
			continue
		}
		info, ok := l.tools.Resolve(n)
		if !ok {
			logx.Warn().Str("tool", n).Msg("dropping unresolved tool")
			continue
		}
		allowed[n] = true
		infos = append(infos, info)
	}
	return infos, allowed
}

// execute runs one batch. Results keep the request order.
func (l *Loop) execute(ctx context.Context, calls []schema.ToolCall, allowed map[string]bool) []tools.Invocation {
	out := make([]tools.Invocation, len(calls))
	var g errgroup.Group
	g.SetLimit(maxParallelTools)
	for i, c := range calls {
		if !allowed[c.Function.Name] {
			out[i] = tools.NotFound(c)
			continue
		}
		g.Go(func() error {
			out[i] = l.tools.Invoke(ctx, c)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
