package tools

import (
	"sort"
	"strings"

	"github.com/jobchat-core/server/internal/agent/model"
)

// locationAliases maps lower-cased variants to canonical city names.
var locationAliases = map[string]string{
	"hà nội":           "Hà Nội",
	"ha noi":           "Hà Nội",
	"hanoi":            "Hà Nội",
	"hn":               "Hà Nội",
	"hồ chí minh":      "Hồ Chí Minh",
	"ho chi minh":      "Hồ Chí Minh",
	"ho chi minh city": "Hồ Chí Minh",
	"tp.hcm":           "Hồ Chí Minh",
	"tp hcm":           "Hồ Chí Minh",
	"hcm":              "Hồ Chí Minh",
	"sài gòn":          "Hồ Chí Minh",
	"saigon":           "Hồ Chí Minh",
	"sg":               "Hồ Chí Minh",
	"đà nẵng":          "Đà Nẵng",
	"da nang":          "Đà Nẵng",
	"danang":           "Đà Nẵng",
	"đn":               "Đà Nẵng",
	"dn":               "Đà Nẵng",
}

// CanonicalLocation maps a known alias to its canonical city; other values are trimmed.
func CanonicalLocation(loc string) string {
	key := strings.ToLower(strings.TrimSpace(loc))
	if c, ok := locationAliases[key]; ok {
		return c
	}
	for _, alias := range longAliases {
		if strings.Contains(key, alias) {
			return locationAliases[alias]
		}
	}
	return strings.TrimSpace(loc)
}

// longAliases are the aliases safe for substring matching, longest first.
var longAliases = func() []string {
	var out []string
	for alias := range locationAliases {
		if len(alias) > 3 {
			out = append(out, alias)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

// JobFilter narrows a catalog search. Empty fields match everything.
type JobFilter struct {
	Query      string
	Title      string
	Company    string
	Location   string
	Skills     []string
	Experience string
	MaxResults int
}

// JobCatalog is a read-only, in-memory set of postings.
type JobCatalog struct {
	jobs []model.Job
	byID map[string]int
}

func NewJobCatalog(jobs []model.Job) *JobCatalog {
	c := &JobCatalog{jobs: append([]model.Job(nil), jobs...), byID: make(map[string]int, len(jobs))}
	for i, j := range c.jobs {
		c.byID[strings.ToUpper(j.ID)] = i
	}
	return c
}

// Get looks a job up by id, ignoring case.
func (c *JobCatalog) Get(id string) (model.Job, bool) {
	i, ok := c.byID[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return model.Job{}, false
	}
	return c.jobs[i], true
}

// Len returns the number of postings.
func (c *JobCatalog) Len() int { return len(c.jobs) }

// Search returns postings matching every non-empty filter field, ranked by matched skills.
func (c *JobCatalog) Search(f JobFilter) []model.Job {
	type hit struct {
		job    model.Job
		skills int
		idx    int
	}
	var hits []hit
	loc := strings.ToLower(CanonicalLocation(f.Location))
	for i, j := range c.jobs {
		if !containsFold(j.Title, f.Title) || !containsFold(j.Company, f.Company) {
			continue
		}
		if loc != "" && !strings.Contains(strings.ToLower(j.Location), loc) {
			continue
		}
		if f.Experience != "" && !containsFold(j.Experience, f.Experience) {
			continue
		}
		if f.Query != "" && !matchesQuery(j, f.Query) {
			continue
		}
		n := matchedSkills(j, f.Skills)
		if len(f.Skills) > 0 && n == 0 {
			continue
		}
		hits = append(hits, hit{job: j, skills: n, idx: i})
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].skills != hits[b].skills {
			return hits[a].skills > hits[b].skills
		}
		return hits[a].idx < hits[b].idx
	})

	limit := f.MaxResults
	if limit <= 0 {
		limit = defaultMaxResults
	}
	out := make([]model.Job, 0, min(limit, len(hits)))
	for _, h := range hits {
		if len(out) == limit {
			break
		}
		out = append(out, h.job)
	}
	return out
}

// SplitSkills splits "Python, SQL" style lists.
func SplitSkills(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == '/' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsFold(haystack, needle string) bool {
	needle = strings.TrimSpace(needle)
	return needle == "" || strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func matchedSkills(j model.Job, wanted []string) int {
	n := 0
	for _, w := range wanted {
		for _, s := range j.Skills {
			if strings.EqualFold(strings.TrimSpace(w), s) {
				n++
				break
			}
		}
	}
	return n
}

func matchesQuery(j model.Job, q string) bool {
	for _, word := range strings.Fields(strings.ToLower(q)) {
		if strings.Contains(strings.ToLower(j.Title), word) ||
			strings.Contains(strings.ToLower(j.Description), word) ||
			strings.Contains(strings.ToLower(strings.Join(j.Skills, " ")), word) {
			return true
		}
	}
	return false
}

// SampleJobs seeds the catalog served by default.
var SampleJobs = []model.Job{
	{ID: "J001", Title: "Python Developer", Company: "FPT Software", Location: "Hà Nội", Skills: []string{"Python", "Django", "SQL"}, Experience: "2 năm", SalaryMin: 20, SalaryMax: 30, Description: "Build backend services for banking clients."},
	{ID: "J002", Title: "Data Analyst", Company: "Viettel", Location: "Hà Nội", Skills: []string{"SQL", "Python", "Power BI"}, Experience: "1-2 năm", SalaryMin: 15, SalaryMax: 25, Description: "Analyze telecom usage data and build dashboards."},
	{ID: "J003", Title: "React.js Developer", Company: "Tiki", Location: "Hồ Chí Minh", Skills: []string{"React.js", "JavaScript", "TypeScript"}, Experience: "3 năm", SalaryMin: 25, SalaryMax: 40, Description: "Develop e-commerce storefront features."},
	{ID: "J004", Title: "Java Developer", Company: "NashTech", Location: "Hồ Chí Minh", Skills: []string{"Java", "Spring Boot", "SQL"}, Experience: "2 năm", SalaryMin: 22, SalaryMax: 35, Description: "Maintain enterprise applications for European customers."},
	{ID: "J005", Title: "Golang Backend Engineer", Company: "MoMo", Location: "Hồ Chí Minh", Skills: []string{"Golang", "Kafka", "PostgreSQL"}, Experience: "3 năm", SalaryMin: 35, SalaryMax: 55, Description: "Scale payment microservices."},
	{ID: "J006", Title: "Thực tập sinh AI", Company: "FPT Software", Location: "Hà Nội", Skills: []string{"Python", "PyTorch"}, Experience: "Internship", SalaryMin: 5, SalaryMax: 8, Description: "Full-time AI internship on computer vision projects."},
	{ID: "J007", Title: "Unity Developer", Company: "Amanotes", Location: "Hồ Chí Minh", Skills: []string{"Unity", "C#"}, Experience: "1-2 năm", SalaryMin: 18, SalaryMax: 30, Description: "Build mobile music games."},
	{ID: "J008", Title: "iOS Developer", Company: "VNG", Location: "Hồ Chí Minh", Skills: []string{"Swift", "iOS"}, Experience: "2 năm", SalaryMin: 25, SalaryMax: 40, Description: "Work on the Zalo messaging app."},
	{ID: "J009", Title: "QA Tester", Company: "Axon Active", Location: "Đà Nẵng", Skills: []string{"Selenium", "Testing"}, Experience: "1 năm", SalaryMin: 12, SalaryMax: 18, Description: "Manual and automated testing, onsite in Da Nang."},
	{ID: "J010", Title: "DevOps Engineer", Company: "Viettel", Location: "Hà Nội", Skills: []string{"Kubernetes", "Docker", "Golang"}, Experience: "3 năm", SalaryMin: 30, SalaryMax: 45, Description: "Operate cloud infrastructure."},
	{ID: "J011", Title: "Frontend Developer", Company: "Enouvo", Location: "Đà Nẵng", Skills: []string{"React.js", "JavaScript", "CSS"}, Experience: "1-2 năm", SalaryMin: 15, SalaryMax: 25, Description: "Remote-friendly web agency team."},
	{ID: "J012", Title: "Business Analyst", Company: "KMS Technology", Location: "Hồ Chí Minh", Skills: []string{"SQL", "Jira"}, Experience: "2 năm", SalaryMin: 20, SalaryMax: 32, Description: "Gather requirements for healthcare software."},
}
