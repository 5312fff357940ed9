package orchestrator

import (
	"strings"

	"github.com/jobchat-core/server/internal/agent/model"
)

// vietnameseLetters are letters that only occur in Vietnamese text among the supported languages.
const vietnameseLetters = "àáảãạăằắẳẵặâầấẩẫậèéẻẽẹêềếểễệìíỉĩịòóỏõọôồốổỗộơờớởỡợùúủũụưừứửữựỳýỷỹỵđ"

// DetectLanguage guesses vi or en from diacritics.
func DetectLanguage(text string) model.Language {
	if strings.ContainsAny(strings.ToLower(text), vietnameseLetters) {
		return model.LanguageVietnamese
	}
	return model.LanguageEnglish
}

func languageOf(st *model.ConversationState, utterance string) model.Language {
	if st.Language != "" {
		return st.Language
	}
	return DetectLanguage(utterance)
}

func languageName(l model.Language) string {
	if l == model.LanguageVietnamese {
		return "Vietnamese"
	}
	return "English"
}
