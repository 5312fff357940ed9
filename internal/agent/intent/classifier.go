package intent

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/cloudwego/eino/schema"

	"github.com/jobchat-core/server/internal/agent/gateway"
	"github.com/jobchat-core/server/internal/agent/prompts"
	errx "github.com/jobchat-core/server/internal/core/error"
	"github.com/jobchat-core/server/internal/metrics"
	logx "github.com/jobchat-core/server/pkg/logger"
)

// Unknown is returned when no tag of the vocabulary matched.
const Unknown = "unknown"

// Top-level intents of an idle conversation.
const (
	Chitchat              = "chitchat"
	RecruitmentIncomplete = "recruitment_incomplete"
	RecruitmentComplete   = "recruitment_complete"
	Other                 = "other"
)

// TopLevel is the vocabulary used when no slot is being collected.
var TopLevel = []string{Chitchat, RecruitmentIncomplete, RecruitmentComplete, Other}

// minPartialToken is the shortest token allowed to match as a substring of a tag.
const minPartialToken = 3

var descriptions = map[string]string{
	Chitchat:              "greetings, thanks, small talk or questions about the assistant itself",
	RecruitmentIncomplete: "wants a job but has not given enough detail (for example no location or no skills/position)",
	RecruitmentComplete:   "a job request with enough detail to search, such as a role or skills together with a location",
	Other:                 "anything else, including general career advice",
	"location":            "a city, province or work location",
	"skills":              "skills, technologies, programming languages or tools",
	"salary":              "expected salary, pay or income",
	"position":            "a job title, role or seniority level",
}

// Renderer renders catalog prompts.
type Renderer interface {
	Render(ctx context.Context, name string, params map[string]any) (string, error)
}

// TextGenerator is the plain-generation half of a model gateway.
type TextGenerator interface {
	Generate(ctx context.Context, msgs []*schema.Message) (string, error)
}

// Classifier maps an utterance to one tag of a vocabulary through the model.
type Classifier struct {
	prompts Renderer
	llm     TextGenerator
}

func NewClassifier(p Renderer, llm TextGenerator) *Classifier {
	return &Classifier{prompts: p, llm: llm}
}

// Classify returns a tag of vocabulary or Unknown. Failures are logged, never returned.
func (c *Classifier) Classify(ctx context.Context, utterance string, vocabulary []string) string {
	tag, _ := c.Detect(ctx, prompts.ClassifyIntent, map[string]any{"utterance": utterance}, vocabulary)
	return tag
}

// ClassifySlot decides which slot an answer to a follow-up question fills.
func (c *Classifier) ClassifySlot(ctx context.Context, utterance, initialQuery string, vocabulary []string) string {
	tag, _ := c.Detect(ctx, prompts.SlotExtraction, map[string]any{
		"utterance":     utterance,
		"initial_query": initialQuery,
	}, vocabulary)
	return tag
}

// Detect renders promptName with params plus the vocabulary fields, asks the
// model and matches its answer. The tag is Unknown whenever err is non-nil.
func (c *Classifier) Detect(ctx context.Context, promptName string, params map[string]any, vocabulary []string) (string, error) {
	tag, err := c.detect(ctx, promptName, params, vocabulary)
	if err != nil {
		logx.Debug().Err(err).Str("prompt", promptName).Msg("classification fell back to unknown")
		tag = Unknown
	}
	metrics.Intents.WithLabelValues(promptName, tag).Inc()
	return tag, err
}

func (c *Classifier) detect(ctx context.Context, promptName string, params map[string]any, vocabulary []string) (string, error) {
	if len(vocabulary) == 0 {
		return Unknown, errx.Ambiguous(fmt.Errorf("%w: empty vocabulary", errx.ErrClassificationAmbiguous))
	}
	full := make(map[string]any, len(params)+2)
	for k, v := range params {
		full[k] = v
	}
	full["tags"] = strings.Join(vocabulary, ", ")
	full["tag_descriptions"] = describe(vocabulary)

	text, err := c.prompts.Render(ctx, promptName, full)
	if err != nil {
		return Unknown, err
	}
	out, err := c.llm.Generate(ctx, []*schema.Message{schema.UserMessage(text)})
	if err != nil {
		return Unknown, err
	}
	return Match(out, vocabulary)
}

// Match extracts the tag from raw model output: reasoning is stripped, the last
// token is trimmed of punctuation and quotes, then compared case-insensitively
// by exact match, token-contains-tag, and tag-contains-token. Within the last
// pass a whole _-separated part of a tag beats a plain substring. Ties go to
// the earliest tag of vocabulary.
func Match(raw string, vocabulary []string) (string, error) {
	fields := strings.Fields(gateway.StripReasoning(raw))
	if len(fields) == 0 {
		return Unknown, errx.Ambiguous(fmt.Errorf("%w: empty output", errx.ErrClassificationAmbiguous))
	}
	token := strings.ToLower(strings.TrimFunc(fields[len(fields)-1], func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	}))
	if token == "" {
		return Unknown, errx.Ambiguous(fmt.Errorf("%w: %q", errx.ErrClassificationAmbiguous, raw))
	}

	for _, tag := range vocabulary {
		if token == strings.ToLower(tag) {
			return tag, nil
		}
	}
	for _, tag := range vocabulary {
		if strings.Contains(token, strings.ToLower(tag)) {
			return tag, nil
		}
	}
	if len([]rune(token)) >= minPartialToken {
		// "complete" must pick recruitment_complete, not the earlier recruitment_incomplete
		for _, tag := range vocabulary {
			if hasSegment(tag, token) {
				return tag, nil
			}
		}
		for _, tag := range vocabulary {
			if strings.Contains(strings.ToLower(tag), token) {
				return tag, nil
			}
		}
	}
	return Unknown, errx.Ambiguous(fmt.Errorf("%w: %q", errx.ErrClassificationAmbiguous, token))
}

// hasSegment reports whether one _-separated part of tag equals token.
func hasSegment(tag, token string) bool {
	for _, part := range strings.Split(strings.ToLower(tag), "_") {
		if part == token {
			return true
		}
	}
	return false
}

func describe(vocabulary []string) string {
	var b strings.Builder
	for _, tag := range vocabulary {
		d, ok := descriptions[tag]
		if !ok {
			d = tag
		}
		fmt.Fprintf(&b, "- %s: %s\n", tag, d)
	}
	return strings.TrimRight(b.String(), "\n")
}
