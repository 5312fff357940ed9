package observers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageCost(t *testing.T) {
	info := &einocb.RunInfo{Name: "gemini-2.5-flash", Type: "response"}

	name, usage, cost := usageCost(info, &model.CallbackOutput{
		TokenUsage: &model.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000},
	})
	assert.Equal(t, "gemini-2.5-flash", name)
	require.NotNil(t, usage)
	assert.InDelta(t, 2.80, cost, 1e-9)

	name, _, _ = usageCost(info, &model.CallbackOutput{Config: &model.Config{Model: "gpt-4o-mini"}})
	assert.Equal(t, "gpt-4o-mini", name)

	_, usage, cost = usageCost(info, nil)
	assert.Nil(t, usage)
	assert.Zero(t, cost)
}

func TestLastUserContent(t *testing.T) {
	msgs := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage(" first "),
		nil,
		schema.AssistantMessage("a", nil),
		schema.UserMessage(" second "),
		schema.AssistantMessage("b", nil),
	}
	assert.Equal(t, "second", lastUserContent(msgs))
	assert.Empty(t, lastUserContent(nil))
}

func TestHandlersTolerateNilPayloads(t *testing.T) {
	ctx := context.Background()
	info := &einocb.RunInfo{Name: "x", Type: "t"}

	m := newModelHandler()
	assert.NotPanics(t, func() {
		m.OnStart(ctx, info, nil)
		m.OnEnd(ctx, info, nil)
		m.OnError(ctx, info, errors.New("boom"))
	})

	tl := newToolHandler()
	assert.NotPanics(t, func() {
		tl.OnStart(ctx, info, nil)
		tl.OnEnd(ctx, info, &tool.CallbackOutput{Response: "{}"})
		tl.OnError(ctx, info, errors.New("boom"))
	})

	p := newPromptHandler()
	assert.NotPanics(t, func() {
		p.OnStart(ctx, info, nil)
		p.OnEnd(ctx, info, nil)
	})

	assert.NotNil(t, NewAllCallbacks())
}

func TestPreviewBoundsLoggedText(t *testing.T) {
	assert.Equal(t, "tìm việc ở Hà Nội", preview("tìm việc ở Hà Nội"))

	long := strings.Repeat("ệ", previewRunes+10)
	got := preview(long)
	assert.Equal(t, previewRunes+1, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}
