package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/jobchat-core/server/internal/agent/model"
)

type JobDetailInput struct {
	JobID string `json:"job_id"`
}

func NewJobDetailTool(catalog *JobCatalog) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolGetJobDetails,
			Desc: "Get the full posting for a job id returned by search_job_info, including the description.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"job_id": {Type: schema.String, Desc: "Job id such as J001.", Required: true},
			}),
		},
		func(ctx context.Context, in *JobDetailInput) (*model.Job, error) {
			if in.JobID == "" {
				return nil, fmt.Errorf("job_id is required")
			}
			job, ok := catalog.Get(in.JobID)
			if !ok {
				return nil, fmt.Errorf("job %s not found", in.JobID)
			}
			return &job, nil
		},
	)
}

func sanitizeDetailArgs(m map[string]any) {
	if _, ok := m["job_id"]; !ok {
		// some models send "id"
		if v, ok := m["id"]; ok {
			m["job_id"] = v
			delete(m, "id")
		}
	}
	trimString(m, "job_id")
}
