package observers

import (
	"context"
	"strings"
	"unicode/utf8"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	agentmodel "github.com/jobchat-core/server/internal/agent/model"
	"github.com/jobchat-core/server/internal/metrics"
	logx "github.com/jobchat-core/server/pkg/logger"
)

// newModelHandler logs model calls and records token usage and cost.
func newModelHandler() *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ev := logx.Debug().Str("gateway", info.Type).Str("model", info.Name)
			if input != nil {
				ev = ev.Int("messages", len(input.Messages)).Int("tools", len(input.Tools))
				if um := lastUserContent(input.Messages); um != "" {
					ev = ev.Str("user", preview(um)).Int("user_len", utf8.RuneCountInString(um))
				}
			}
			ev.Msg("model call start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			name, usage, cost := usageCost(info, output)
			ev := logx.Debug().Str("gateway", info.Type).Str("model", name)
			if output != nil && output.Message != nil {
				content := strings.TrimSpace(output.Message.Content)
				ev = ev.Int("tool_calls", len(output.Message.ToolCalls)).
					Str("assistant", preview(content)).
					Int("assistant_len", utf8.RuneCountInString(content))
			}
			if usage != nil {
				metrics.ObserveUsage(name, usage.PromptTokens, usage.CompletionTokens, cost)
				ev = ev.Int("prompt_tokens", usage.PromptTokens).
					Int("completion_tokens", usage.CompletionTokens).
					Float64("cost_usd", cost)
			}
			ev.Msg("model call end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("gateway", info.Type).Str("model", info.Name).Msg("model call error")
			return ctx
		},
	}
}

// usageCost resolves the model name and prices the reported usage.
func usageCost(info *einocb.RunInfo, output *model.CallbackOutput) (string, *schema.TokenUsage, float64) {
	name := info.Name
	if output != nil && output.Config != nil && output.Config.Model != "" {
		name = output.Config.Model
	}
	if output == nil || output.TokenUsage == nil {
		return name, nil, 0
	}
	usage := &schema.TokenUsage{
		PromptTokens:     output.TokenUsage.PromptTokens,
		CompletionTokens: output.TokenUsage.CompletionTokens,
		TotalTokens:      output.TokenUsage.TotalTokens,
	}
	_, _, total := agentmodel.ComputeCost(usage, agentmodel.ResolvePricing(name))
	return name, usage, total
}

// previewRunes bounds how much conversation text reaches the logs.
const previewRunes = 60

// preview cuts text to previewRunes runes.
func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	return string([]rune(text)[:previewRunes]) + "…"
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}
