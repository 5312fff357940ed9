package model

// Job is one posting in the job catalog.
type Job struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	Skills      []string `json:"skills"`
	Experience  string   `json:"experience"`
	SalaryMin   int      `json:"salary_min_million_vnd"`
	SalaryMax   int      `json:"salary_max_million_vnd"`
	Description string   `json:"description"`
}

// JobQuery is the structured filter extracted from a free-text job question.
// Multi-valued skills are joined by ", ".
type JobQuery struct {
	Title       string `json:"title,omitempty"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	Skills      string `json:"skills,omitempty"`
	Experience  string `json:"experience,omitempty"`
	Description string `json:"description,omitempty"`
}

// IsEmpty reports whether no field was extracted.
func (q JobQuery) IsEmpty() bool {
	return q == JobQuery{}
}

// ToolCallRecord is one tool invocation made during a tool-calling loop.
type ToolCallRecord struct {
	ID        string `json:"id"`
	ToolName  string `json:"tool_name"`
	Arguments string `json:"arguments"`
	Result    string `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
}
