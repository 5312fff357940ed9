package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/jobchat-core/server/internal/agent/model"
)

const (
	ToolSearchJobInfo = "search_job_info"
	ToolGetJobDetails = "get_job_details"

	defaultMaxResults = 5
	maxResultsCap     = 20
)

type SearchJobInput struct {
	Query      string `json:"query,omitempty"`
	Title      string `json:"title,omitempty"`
	Company    string `json:"company,omitempty"`
	Location   string `json:"location,omitempty"`
	Skills     string `json:"skills,omitempty"`
	Experience string `json:"experience,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

type SearchJobOutput struct {
	Jobs  []model.Job `json:"jobs"`
	Total int         `json:"total"`
}

func NewSearchJobTool(catalog *JobCatalog) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchJobInfo,
			Desc: "Search open job postings. Filter by title, company, location (Hà Nội, Hồ Chí Minh, Đà Nẵng, ...), skills and experience. Accepts Vietnamese or English values. Returns id, title, company, location, skills, experience and salary range in million VND.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query":      {Type: schema.String, Desc: "Free-text keywords matched against title, description and skills."},
				"title":      {Type: schema.String, Desc: "Job position or role, e.g. Data Analyst, Java Developer."},
				"company":    {Type: schema.String, Desc: "Company name, e.g. FPT Software."},
				"location":   {Type: schema.String, Desc: "Work location. Aliases such as HCM, Saigon or Hanoi are accepted."},
				"skills":     {Type: schema.String, Desc: "Comma separated skills, e.g. \"Python, SQL\"."},
				"experience": {Type: schema.String, Desc: "Experience level, e.g. \"2 năm\", \"Internship\"."},
				"max_results": {
					Type: schema.Integer,
					Desc: "Maximum number of jobs to return (default 5, max 20).",
				},
			}),
		},
		func(ctx context.Context, in *SearchJobInput) (*SearchJobOutput, error) {
			jobs := catalog.Search(JobFilter{
				Query:      in.Query,
				Title:      in.Title,
				Company:    in.Company,
				Location:   in.Location,
				Skills:     SplitSkills(in.Skills),
				Experience: in.Experience,
				MaxResults: in.MaxResults,
			})
			return &SearchJobOutput{Jobs: jobs, Total: len(jobs)}, nil
		},
	)
}

func sanitizeSearchArgs(m map[string]any) {
	for _, k := range []string{"query", "title", "company", "location", "experience"} {
		trimString(m, k)
	}
	joinList(m, "skills")
	clampNumber(m, "max_results", 1, maxResultsCap)
}
