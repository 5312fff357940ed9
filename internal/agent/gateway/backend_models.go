package gateway

import (
	"context"
	"fmt"
	"sort"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	errx "github.com/jobchat-core/server/internal/core/error"
)

// BackendModels lists the models served by an OpenAI-compatible endpoint,
// such as the ones pulled into a local Ollama.
type BackendModels struct {
	client openai.Client
}

func NewBackendModels(baseURL, apiKey string, extra ...option.RequestOption) *BackendModels {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &BackendModels{client: openai.NewClient(append(opts, extra...)...)}
}

// List returns the model ids sorted.
func (b *BackendModels) List(ctx context.Context) ([]string, error) {
	page, err := b.client.Models.List(ctx)
	if err != nil {
		return nil, errx.Transport(fmt.Errorf("list models: %w", err))
	}
	ids := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}
