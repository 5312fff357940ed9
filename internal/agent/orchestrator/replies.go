package orchestrator

import (
	"fmt"
	"strings"

	"github.com/jobchat-core/server/internal/agent/model"
)

var questions = map[model.Language]map[model.Phase]string{
	model.LanguageVietnamese: {
		model.PhaseWaitingForLocation: "Bạn muốn làm việc ở địa điểm nào (ví dụ: Hà Nội, Hồ Chí Minh, Đà Nẵng)?",
		model.PhaseWaitingForSkills:   "Bạn có những kỹ năng hoặc công nghệ nào (ví dụ: Python, SQL, React)?",
		model.PhaseWaitingForSalary:   "Mức lương mong muốn của bạn là bao nhiêu?",
		model.PhaseWaitingForPosition: "Bạn đang tìm vị trí hoặc chức danh nào?",
		model.PhaseWaitingForInfo:     "Bạn có thể cho mình biết thêm về địa điểm, kỹ năng hoặc vị trí bạn mong muốn không?",
	},
	model.LanguageEnglish: {
		model.PhaseWaitingForLocation: "Where would you like to work (for example Hà Nội, Hồ Chí Minh, Đà Nẵng)?",
		model.PhaseWaitingForSkills:   "What skills or technologies do you have (for example Python, SQL, React)?",
		model.PhaseWaitingForSalary:   "What salary are you expecting?",
		model.PhaseWaitingForPosition: "Which position or job title are you looking for?",
		model.PhaseWaitingForInfo:     "Could you tell me more about the location, skills or position you are looking for?",
	},
}

var apologies = map[model.Language]string{
	model.LanguageVietnamese: "Xin lỗi, hệ thống đang gặp sự cố khi xử lý yêu cầu của bạn. Vui lòng thử lại sau.",
	model.LanguageEnglish:    "Sorry, something went wrong while processing your request. Please try again later.",
}

var slotLabels = map[model.Language]map[model.Slot]string{
	model.LanguageVietnamese: {
		model.SlotLocation: "địa điểm",
		model.SlotSkills:   "kỹ năng",
		model.SlotSalary:   "mức lương",
		model.SlotPosition: "vị trí",
	},
	model.LanguageEnglish: {
		model.SlotLocation: "location",
		model.SlotSkills:   "skills",
		model.SlotSalary:   "salary",
		model.SlotPosition: "position",
	},
}

// Question returns the canned follow-up for a waiting phase.
func Question(lang model.Language, phase model.Phase) string {
	byPhase, ok := questions[lang]
	if !ok {
		byPhase = questions[model.LanguageEnglish]
	}
	if q, ok := byPhase[phase]; ok {
		return q
	}
	return byPhase[model.PhaseWaitingForInfo]
}

// Apology is the reply used when the model backend is unavailable.
func Apology(lang model.Language) string {
	if a, ok := apologies[lang]; ok {
		return a
	}
	return apologies[model.LanguageEnglish]
}

// SlotSummary is the reply used when the final synthesis cannot be generated.
func SlotSummary(lang model.Language, slots map[model.Slot]string) string {
	labels, ok := slotLabels[lang]
	if !ok {
		labels = slotLabels[model.LanguageEnglish]
	}
	var parts []string
	for _, s := range model.InfoSlots {
		if v := strings.TrimSpace(slots[s]); v != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", labels[s], v))
		}
	}
	if lang == model.LanguageVietnamese {
		return fmt.Sprintf("Cảm ơn bạn! Mình đã ghi nhận thông tin: %s. Mình sẽ tìm các công việc phù hợp với bạn.", strings.Join(parts, "; "))
	}
	return fmt.Sprintf("Thanks! I have noted: %s. I will look for matching jobs for you.", strings.Join(parts, "; "))
}
