package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobchat-core/server/internal/agent/gateway"
	"github.com/jobchat-core/server/internal/agent/gateway/gatewaytest"
	"github.com/jobchat-core/server/internal/agent/model"
	"github.com/jobchat-core/server/internal/agent/prompts"
)

func TestParseJobQuery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want model.JobQuery
	}{
		{"plain", `{"location": "Hà Nội", "title": "Data Analyst"}`, model.JobQuery{Location: "Hà Nội", Title: "Data Analyst"}},
		{"fenced", "```json\n{\"skills\": \"Python\"}\n```", model.JobQuery{Skills: "Python"}},
		{"reasoning", "<think>the user wants FPT</think>{\"title\": \"thực tập sinh AI\", \"company\": \"FPT\"}", model.JobQuery{Title: "thực tập sinh AI", Company: "FPT"}},
		{"skills array", `{"skills": ["React.js", "CSS"]}`, model.JobQuery{Skills: "React.js, CSS"}},
		{"empty", `{}`, model.JobQuery{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJobQuery(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseJobQuery("no json here")
	assert.Error(t, err)
}

func TestExtractJobFeaturesTool(t *testing.T) {
	ctx := context.Background()
	catalog, err := prompts.Default()
	require.NoError(t, err)
	fake := gatewaytest.NewScriptedModel(gatewaytest.Text(`{"location": "HCM", "title": "React.js developer", "skills": "React.js"}`))
	nlu := gateway.New(gateway.NLUGateway, "test", fake, 0)

	r, err := NewDefaultRegistry(ctx, Deps{Prompts: catalog, NLU: nlu})
	require.NoError(t, err)

	inv := r.Invoke(ctx, schema.ToolCall{ID: "c1", Function: schema.FunctionCall{Name: ToolExtractJobFeatures, Arguments: `{"question":"Job in Ho Chi Minh City for React.js developer"}`}})
	require.NoError(t, inv.Err)

	var q model.JobQuery
	require.NoError(t, json.Unmarshal([]byte(inv.Payload), &q))
	assert.Equal(t, "Hồ Chí Minh", q.Location)
	assert.Equal(t, "React.js", q.Skills)

	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Messages[0].Content, `INPUT: "Job in Ho Chi Minh City for React.js developer"`)
}

func TestAnalyzeJobDescriptionTool(t *testing.T) {
	ctx := context.Background()
	catalog, err := prompts.Default()
	require.NoError(t, err)
	fake := gatewaytest.NewScriptedModel(gatewaytest.Text("<think>ok</think>- Go\n- Kafka"))
	resp := gateway.New(gateway.ResponseGateway, "test", fake, 0)

	r, err := NewDefaultRegistry(ctx, Deps{Prompts: catalog, Response: resp})
	require.NoError(t, err)
	_, ok := r.Resolve(ToolExtractJobFeatures)
	assert.False(t, ok)

	inv := r.Invoke(ctx, schema.ToolCall{ID: "c1", Function: schema.FunctionCall{Name: ToolAnalyzeJobDescription, Arguments: `{"job_description":"We need Go and Kafka."}`}})
	require.NoError(t, inv.Err)

	var out AnalyzeOutput
	require.NoError(t, json.Unmarshal([]byte(inv.Payload), &out))
	assert.Equal(t, "- Go\n- Kafka", out.Summary)
}
