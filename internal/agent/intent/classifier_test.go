package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobchat-core/server/internal/agent/gateway"
	"github.com/jobchat-core/server/internal/agent/gateway/gatewaytest"
	"github.com/jobchat-core/server/internal/agent/prompts"
	errx "github.com/jobchat-core/server/internal/core/error"
)

var slots = []string{"location", "skills", "salary", "position"}

func TestMatch(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		vocab []string
		want  string
	}{
		{"exact", "chitchat", TopLevel, Chitchat},
		{"case and quotes", `"Recruitment_Complete".`, TopLevel, RecruitmentComplete},
		{"last token wins", "The answer is skills", slots, "skills"},
		{"reasoning stripped", "<think>maybe salary? no, location</think>\nlocation", slots, "location"},
		{"token contains tag", "tag:position", slots, "position"},
		{"tag contains token", "recruitment", TopLevel, RecruitmentIncomplete},
		{"tag contains token slot", "skill", slots, "skills"},
		{"spaced complete", "recruitment complete", TopLevel, RecruitmentComplete},
		{"bare complete", "Intent: complete", TopLevel, RecruitmentComplete},
		{"bare incomplete", "Intent: incomplete", TopLevel, RecruitmentIncomplete},
		{"reasoning then complete", "<think>maybe incomplete</think> recruitment_complete", TopLevel, RecruitmentComplete},
		{"substring after segments", "complet", TopLevel, RecruitmentIncomplete},
		{"short token ignored", "sa", slots, Unknown},
		{"no match", "weather", TopLevel, Unknown},
		{"empty", "   ", TopLevel, Unknown},
		{"only reasoning", "<think>hmm</think>", TopLevel, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Match(tt.raw, tt.vocab)
			assert.Equal(t, tt.want, got)
			if tt.want == Unknown {
				assert.Equal(t, errx.KindClassificationAmbiguous, errx.KindOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func newClassifier(t *testing.T, fake *gatewaytest.ScriptedModel) *Classifier {
	t.Helper()
	catalog, err := prompts.Default()
	require.NoError(t, err)
	return NewClassifier(catalog, gateway.New(gateway.NLUGateway, "test", fake, 0))
}

func TestClassifyRendersVocabulary(t *testing.T) {
	fake := gatewaytest.NewScriptedModel(gatewaytest.Text("recruitment_incomplete"))
	c := newClassifier(t, fake)

	got := c.Classify(context.Background(), "tôi muốn tìm việc", TopLevel)
	assert.Equal(t, RecruitmentIncomplete, got)

	prompt := fake.Requests()[0].Messages[0].Content
	assert.Contains(t, prompt, "chitchat, recruitment_incomplete, recruitment_complete, other")
	assert.Contains(t, prompt, `"tôi muốn tìm việc"`)
	assert.Contains(t, prompt, "- chitchat: ")
}

func TestClassifySlotUsesInitialQuery(t *testing.T) {
	fake := gatewaytest.NewScriptedModel(gatewaytest.Text("location"))
	c := newClassifier(t, fake)

	got := c.ClassifySlot(context.Background(), "Hà Nội", "tìm việc", slots)
	assert.Equal(t, "location", got)
	assert.Contains(t, fake.Requests()[0].Messages[0].Content, `"tìm việc"`)
}

func TestClassifyFailuresBecomeUnknown(t *testing.T) {
	fake := gatewaytest.NewScriptedModel(gatewaytest.Fail(errors.New("down")))
	c := newClassifier(t, fake)
	assert.Equal(t, Unknown, c.Classify(context.Background(), "hi", TopLevel))

	tag, err := c.Detect(context.Background(), "missing_prompt", nil, TopLevel)
	assert.Equal(t, Unknown, tag)
	assert.ErrorIs(t, err, errx.ErrPromptNotFound)

	tag, err = c.Detect(context.Background(), prompts.ClassifyIntent, map[string]any{"utterance": "x"}, nil)
	assert.Equal(t, Unknown, tag)
	assert.Error(t, err)
}
