// Package gatewaytest provides a scripted eino chat model for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Step is one scripted model answer. Err wins over Message.
type Step struct {
	Message *schema.Message
	Err     error
}

// Text scripts a plain assistant reply.
func Text(content string) Step {
	return Step{Message: schema.AssistantMessage(content, nil)}
}

// ToolCalls scripts an assistant turn requesting tools.
func ToolCalls(content string, calls ...schema.ToolCall) Step {
	return Step{Message: schema.AssistantMessage(content, calls)}
}

// Call builds a tool call request.
func Call(id, name, args string) schema.ToolCall {
	return schema.ToolCall{ID: id, Type: "function", Function: schema.FunctionCall{Name: name, Arguments: args}}
}

// Fail scripts a transport failure.
func Fail(err error) Step {
	return Step{Err: err}
}

// Request is what the model saw on one call.
type Request struct {
	Messages []*schema.Message
	Tools    []*schema.ToolInfo
}

type script struct {
	mu       sync.Mutex
	steps    []Step
	fallback *Step
	requests []Request
}

// ScriptedModel replays steps in order. Once the script is exhausted it
// repeats the fallback step, or fails when none is set.
type ScriptedModel struct {
	s     *script
	tools []*schema.ToolInfo
}

var _ model.ToolCallingChatModel = (*ScriptedModel)(nil)

func NewScriptedModel(steps ...Step) *ScriptedModel {
	return &ScriptedModel{s: &script{steps: steps}}
}

// Always makes every call past the script answer with step.
func (m *ScriptedModel) Always(step Step) *ScriptedModel {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.fallback = &step
	return m
}

// Calls returns how many times Generate ran.
func (m *ScriptedModel) Calls() int {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return len(m.s.requests)
}

// Requests returns a copy of every request seen so far.
func (m *ScriptedModel) Requests() []Request {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]Request(nil), m.s.requests...)
}

func (m *ScriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return &ScriptedModel{s: m.s, tools: tools}, nil
}

func (m *ScriptedModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	m.s.requests = append(m.s.requests, Request{
		Messages: append([]*schema.Message(nil), input...),
		Tools:    m.tools,
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var step Step
	switch {
	case len(m.s.steps) > 0:
		step = m.s.steps[0]
		m.s.steps = m.s.steps[1:]
	case m.s.fallback != nil:
		step = *m.s.fallback
	default:
		return nil, fmt.Errorf("scripted model: no step left for call %d", len(m.s.requests))
	}
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Message, nil
}

func (m *ScriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}
