package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/jobchat-core/server/internal/agent/model"
	errx "github.com/jobchat-core/server/internal/core/error"
	"github.com/jobchat-core/server/internal/metrics"
	logx "github.com/jobchat-core/server/pkg/logger"
)

// ArgSanitizer normalizes decoded tool arguments in place before invocation.
type ArgSanitizer func(args map[string]any)

type entry struct {
	tool     tool.InvokableTool
	info     *schema.ToolInfo
	sanitize ArgSanitizer
}

// Invocation is the outcome of one tool call. Payload is always set and is
// what the model sees in the tool turn.
type Invocation struct {
	Record  model.ToolCallRecord
	Payload string
	Err     error
}

// Registry maps tool names to invocable tools. Register everything before
// serving; lookups and invocations are then safe for concurrent use.
type Registry struct {
	tools   map[string]entry
	timeout time.Duration
}

func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{tools: map[string]entry{}, timeout: timeout}
}

// Register adds t under the name from its ToolInfo.
func (r *Registry) Register(ctx context.Context, t tool.InvokableTool, sanitize ArgSanitizer) error {
	info, err := t.Info(ctx)
	if err != nil {
		return fmt.Errorf("tool info: %w", err)
	}
	if info == nil || info.Name == "" {
		return fmt.Errorf("tool without name")
	}
	if _, dup := r.tools[info.Name]; dup {
		return fmt.Errorf("tool %q already registered", info.Name)
	}
	r.tools[info.Name] = entry{tool: t, info: info, sanitize: sanitize}
	return nil
}

// Resolve returns the declaration of a registered tool.
func (r *Registry) Resolve(name string) (*schema.ToolInfo, bool) {
	e, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return e.info, true
}

// List returns all declarations sorted by name.
func (r *Registry) List() []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered tool names sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke runs one requested call. It never returns an error: failures are
// reported in the Invocation and encoded into its payload.
func (r *Registry) Invoke(ctx context.Context, call schema.ToolCall) (inv Invocation) {
	name := call.Function.Name
	inv.Record = model.ToolCallRecord{ID: call.ID, ToolName: name, Arguments: call.Function.Arguments}

	e, ok := r.tools[name]
	if !ok {
		return NotFound(call)
	}

	args := sanitizeArguments(call.Function.Arguments, e.sanitize)
	inv.Record.Arguments = args

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	result, err := r.run(ctx, e, args)
	metrics.ObserveTool(name, err)
	if err != nil {
		inv.Err = errx.ToolExecution(fmt.Errorf("%s: %w", name, err))
		inv.Payload = errorPayload(fmt.Sprintf("Error executing tool '%s': %v", name, err))
		inv.Record.Error = err.Error()
		logx.Warn().Err(err).Str("tool", name).Msg("tool execution failed")
		return inv
	}
	inv.Payload = result
	inv.Record.Result = result
	return inv
}

func (r *Registry) run(ctx context.Context, e entry, args string) (result string, err error) {
	selfReporting := components.IsCallbacksEnabled(e.tool)
	if !selfReporting {
		ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      e.info.Name,
			Type:      "InvokableTool",
			Component: components.ComponentOfTool,
		})
		ctx = callbacks.OnStart(ctx, &tool.CallbackInput{ArgumentsInJSON: args})
		defer func() {
			if err != nil {
				callbacks.OnError(ctx, err)
			} else {
				callbacks.OnEnd(ctx, &tool.CallbackOutput{Response: result})
			}
		}()
	}

	type outcome struct {
		result string
		err    error
	}
	done := make(chan outcome, 1)
	// a panicking tool is reported like any other tool error
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		res, err := e.tool.InvokableRun(ctx, args)
		done <- outcome{result: res, err: err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return "", fmt.Errorf("timed out: %w", ctx.Err())
	}
}

// NotFound is the invocation reported for a tool that is not available to the caller.
func NotFound(call schema.ToolCall) Invocation {
	name := call.Function.Name
	err := errx.ToolExecution(fmt.Errorf("%w: %s", errx.ErrToolNotFound, name))
	metrics.ObserveTool(name, err)
	logx.Warn().Str("tool", name).Msg("model requested unknown tool")
	return Invocation{
		Record: model.ToolCallRecord{
			ID:        call.ID,
			ToolName:  name,
			Arguments: call.Function.Arguments,
			Error:     err.Error(),
		},
		Payload: errorPayload(fmt.Sprintf("Tool '%s' not found", name)),
		Err:     err,
	}
}

// sanitizeArguments decodes arguments, applies the tool's sanitizer and
// re-encodes. Non-JSON input is passed through untouched.
func sanitizeArguments(arguments string, sanitize ArgSanitizer) string {
	if strings.TrimSpace(arguments) == "" {
		return "{}"
	}
	if sanitize == nil {
		return arguments
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments
	}
	sanitize(m)
	b, err := json.Marshal(m)
	if err != nil {
		return arguments
	}
	return string(b)
}

func errorPayload(msg string) string {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return string(b)
}
