package orchestrator

import (
	"strings"

	"github.com/jobchat-core/server/internal/agent/model"
)

type slotKeywords struct {
	slot  model.Slot
	words []string
}

// keywordTable is scanned in order; the first category with a match wins.
var keywordTable = []slotKeywords{
	{model.SlotLocation, []string{
		"hà nội", "hồ chí minh", "đà nẵng", "hanoi", "ha noi", "hcm", "tp.hcm", "sài gòn", "saigon",
		"địa điểm", "khu vực", "thành phố", "location", "city", "ở đâu", "where",
	}},
	{model.SlotSkills, []string{
		"kỹ năng", "kĩ năng", "skill", "python", "java", "sql", "react", "javascript", "golang",
		"công nghệ", "framework", "technolog",
	}},
	{model.SlotSalary, []string{
		"lương", "mức lương", "thu nhập", "triệu", "salary", "usd", "vnd", "pay", "income",
	}},
	{model.SlotPosition, []string{
		"vị trí", "chức danh", "developer", "lập trình viên", "engineer", "internship", "thực tập",
		"position", "role", "title", "analyst", "tester", "designer", "manager",
	}},
}

// matchSlotKeyword finds the first category whose keywords occur in text, ignoring case.
func matchSlotKeyword(text string) (model.Slot, bool) {
	lower := strings.ToLower(text)
	for _, k := range keywordTable {
		for _, w := range k.words {
			if strings.Contains(lower, w) {
				return k.slot, true
			}
		}
	}
	return "", false
}

// phaseForQuestion derives the waiting phase from a generated clarifying question.
func phaseForQuestion(question string) model.Phase {
	if slot, ok := matchSlotKeyword(question); ok {
		return slot.WaitingPhase()
	}
	return model.PhaseWaitingForInfo
}
