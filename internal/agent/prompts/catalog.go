package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"gopkg.in/yaml.v3"

	errx "github.com/jobchat-core/server/internal/core/error"
	logx "github.com/jobchat-core/server/pkg/logger"
)

// Prompt names known to the agent.
const (
	ClassifyIntent       = "classify_intent"
	SlotExtraction       = "slot_extraction"
	ChitchatRedirect     = "chitchat_redirect"
	EnhanceQuestion      = "enhance_question"
	JobSearchSystem      = "job_search_system"
	SynthesizeSlots      = "synthesize_slots"
	RecruiterSystem      = "recruiter_system"
	JobDescription       = "job_description_analysis"
	ExtractJobQueryFeats = "extract_features_question_about_job"
)

//go:embed template/prompts.yaml
var defaultCatalog []byte

// Template is one named prompt.
type Template struct {
	Name string          `yaml:"name"`
	Role schema.RoleType `yaml:"role"`
	Text string          `yaml:"text"`
	vars map[string]bool `yaml:"-"`
}

type file struct {
	Prompts []Template `yaml:"prompts"`
}

// Catalog maps prompt names to templates. It is read-only after construction.
type Catalog struct {
	templates map[string]Template
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load returns the embedded catalog with the prompts of path layered on top.
// An empty path yields the embedded catalog.
func Load(path string) (*Catalog, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, err
	}
	for name, t := range override.templates {
		c.templates[name] = t
	}
	logx.Info().Str("file", path).Int("overrides", len(override.templates)).Msg("prompt overrides loaded")
	return c, nil
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse prompt catalog: %w", err)
	}
	c := &Catalog{templates: make(map[string]Template, len(f.Prompts))}
	for _, t := range f.Prompts {
		if t.Name == "" {
			return nil, fmt.Errorf("parse prompt catalog: prompt without name")
		}
		if t.Role == "" {
			t.Role = schema.User
		}
		vars, err := placeholders(t.Text)
		if err != nil {
			return nil, fmt.Errorf("parse prompt %q: %w", t.Name, err)
		}
		t.vars = vars
		c.templates[t.Name] = t
	}
	return c, nil
}

// Names lists the catalog in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.templates))
	for n := range c.templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Params lists the placeholders of a prompt in sorted order.
func (c *Catalog) Params(name string) ([]string, error) {
	t, ok := c.templates[name]
	if !ok {
		return nil, errx.Prompt(fmt.Errorf("%w: %s", errx.ErrPromptNotFound, name))
	}
	out := make([]string, 0, len(t.vars))
	for v := range t.vars {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// Render fills the named prompt. Extra params are ignored.
func (c *Catalog) Render(ctx context.Context, name string, params map[string]any) (string, error) {
	msg, err := c.RenderMessage(ctx, name, params)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// RenderMessage fills the named prompt and returns it with its declared role.
// Rendering goes through the eino prompt component so prompt callbacks fire.
func (c *Catalog) RenderMessage(ctx context.Context, name string, params map[string]any) (*schema.Message, error) {
	t, ok := c.templates[name]
	if !ok {
		return nil, errx.Prompt(fmt.Errorf("%w: %s", errx.ErrPromptNotFound, name))
	}
	var missing []string
	for v := range t.vars {
		if _, ok := params[v]; !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, errx.Prompt(fmt.Errorf("%w: %s needs %s", errx.ErrMissingParameter, name, strings.Join(missing, ", ")))
	}

	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{Name: name, Type: "Catalog", Component: components.ComponentOfPrompt})
	tpl := prompt.FromMessages(schema.FString, &schema.Message{Role: t.Role, Content: t.Text})
	msgs, err := tpl.Format(ctx, params)
	if err != nil {
		return nil, errx.Prompt(fmt.Errorf("render %s: %w", name, err))
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return nil, errx.Prompt(fmt.Errorf("render %s: empty result", name))
	}
	return msgs[0], nil
}

// placeholders collects {name} fields. {{ and }} are literal braces.
func placeholders(text string) (map[string]bool, error) {
	vars := map[string]bool{}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				i++
				continue
			}
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unclosed '{' at offset %d", i)
			}
			field := text[i+1 : i+1+end]
			if j := strings.IndexAny(field, ":!"); j >= 0 {
				field = field[:j]
			}
			field = strings.TrimSpace(field)
			if field == "" {
				return nil, fmt.Errorf("empty placeholder at offset %d", i)
			}
			vars[field] = true
			i += end + 1
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				i++
				continue
			}
			return nil, fmt.Errorf("single '}' at offset %d", i)
		}
	}
	return vars, nil
}
