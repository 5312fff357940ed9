package tools

import (
	"context"
	"fmt"
	"time"
)

// Deps are the collaborators of the default tool set.
type Deps struct {
	Catalog  *JobCatalog
	Prompts  PromptRenderer
	NLU      TextGenerator
	Response TextGenerator
	Timeout  time.Duration
}

// NewDefaultRegistry registers the job tools. The model-backed tools are
// skipped when no prompts or generators are supplied.
func NewDefaultRegistry(ctx context.Context, d Deps) (*Registry, error) {
	if d.Catalog == nil {
		d.Catalog = NewJobCatalog(SampleJobs)
	}
	r := NewRegistry(d.Timeout)
	if err := r.Register(ctx, NewSearchJobTool(d.Catalog), sanitizeSearchArgs); err != nil {
		return nil, fmt.Errorf("register %s: %w", ToolSearchJobInfo, err)
	}
	if err := r.Register(ctx, NewJobDetailTool(d.Catalog), sanitizeDetailArgs); err != nil {
		return nil, fmt.Errorf("register %s: %w", ToolGetJobDetails, err)
	}
	if d.Prompts != nil && d.NLU != nil {
		x := NewJobFeatureExtractor(d.Prompts, d.NLU)
		if err := r.Register(ctx, NewExtractJobFeaturesTool(x), sanitizeQuestionArgs); err != nil {
			return nil, fmt.Errorf("register %s: %w", ToolExtractJobFeatures, err)
		}
	}
	if d.Prompts != nil && d.Response != nil {
		if err := r.Register(ctx, NewAnalyzeJobDescriptionTool(d.Prompts, d.Response), sanitizeDescriptionArgs); err != nil {
			return nil, fmt.Errorf("register %s: %w", ToolAnalyzeJobDescription, err)
		}
	}
	return r, nil
}
