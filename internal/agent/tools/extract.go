package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/jobchat-core/server/internal/agent/gateway"
	"github.com/jobchat-core/server/internal/agent/model"
	"github.com/jobchat-core/server/internal/agent/prompts"
)

const (
	ToolExtractJobFeatures    = "extract_job_features"
	ToolAnalyzeJobDescription = "analyze_job_description"
)

// PromptRenderer renders catalog prompts.
type PromptRenderer interface {
	Render(ctx context.Context, name string, params map[string]any) (string, error)
}

// TextGenerator is the plain-generation half of a model gateway.
type TextGenerator interface {
	Generate(ctx context.Context, msgs []*schema.Message) (string, error)
}

// JobFeatureExtractor turns a free-text job question into a JobQuery.
type JobFeatureExtractor struct {
	prompts PromptRenderer
	llm     TextGenerator
}

func NewJobFeatureExtractor(p PromptRenderer, llm TextGenerator) *JobFeatureExtractor {
	return &JobFeatureExtractor{prompts: p, llm: llm}
}

// Extract asks the model for the structured fields of question.
func (x *JobFeatureExtractor) Extract(ctx context.Context, question string) (model.JobQuery, error) {
	text, err := x.prompts.Render(ctx, prompts.ExtractJobQueryFeats, map[string]any{"user_input": question})
	if err != nil {
		return model.JobQuery{}, err
	}
	out, err := x.llm.Generate(ctx, []*schema.Message{schema.UserMessage(text)})
	if err != nil {
		return model.JobQuery{}, err
	}
	q, err := ParseJobQuery(out)
	if err != nil {
		return model.JobQuery{}, err
	}
	q.Location = CanonicalLocation(q.Location)
	return q, nil
}

// ParseJobQuery decodes the model's JSON answer, tolerating reasoning blocks and code fences.
func ParseJobQuery(raw string) (model.JobQuery, error) {
	text := gateway.StripReasoning(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return model.JobQuery{}, fmt.Errorf("no JSON object in extraction output")
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &fields); err != nil {
		return model.JobQuery{}, fmt.Errorf("decode extraction output: %w", err)
	}
	joinList(fields, "skills")
	for _, k := range []string{"title", "company", "location", "experience", "description"} {
		trimString(fields, k)
	}
	str := func(k string) string { s, _ := fields[k].(string); return s }
	return model.JobQuery{
		Title:       str("title"),
		Company:     str("company"),
		Location:    str("location"),
		Skills:      str("skills"),
		Experience:  str("experience"),
		Description: str("description"),
	}, nil
}

type ExtractInput struct {
	Question string `json:"question"`
}

func NewExtractJobFeaturesTool(x *JobFeatureExtractor) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolExtractJobFeatures,
			Desc: "Extract structured search fields (title, company, location, skills, experience) from a free-text job question in Vietnamese or English.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"question": {Type: schema.String, Desc: "The job seeker's question, verbatim.", Required: true},
			}),
		},
		func(ctx context.Context, in *ExtractInput) (*model.JobQuery, error) {
			if strings.TrimSpace(in.Question) == "" {
				return nil, fmt.Errorf("question is required")
			}
			q, err := x.Extract(ctx, in.Question)
			if err != nil {
				return nil, err
			}
			return &q, nil
		},
	)
}

type AnalyzeInput struct {
	JobDescription string `json:"job_description"`
}

type AnalyzeOutput struct {
	Summary string `json:"summary"`
}

func NewAnalyzeJobDescriptionTool(p PromptRenderer, llm TextGenerator) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolAnalyzeJobDescription,
			Desc: "Summarize the key skills, qualifications and responsibilities of a job description as bullet points.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"job_description": {Type: schema.String, Desc: "Full job description text.", Required: true},
			}),
		},
		func(ctx context.Context, in *AnalyzeInput) (*AnalyzeOutput, error) {
			if strings.TrimSpace(in.JobDescription) == "" {
				return nil, fmt.Errorf("job_description is required")
			}
			text, err := p.Render(ctx, prompts.JobDescription, map[string]any{"job_description": in.JobDescription})
			if err != nil {
				return nil, err
			}
			out, err := llm.Generate(ctx, []*schema.Message{schema.UserMessage(text)})
			if err != nil {
				return nil, err
			}
			return &AnalyzeOutput{Summary: gateway.StripReasoning(out)}, nil
		},
	)
}

func sanitizeQuestionArgs(m map[string]any) {
	trimString(m, "question")
}

func sanitizeDescriptionArgs(m map[string]any) {
	trimString(m, "job_description")
}
