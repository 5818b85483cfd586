// Package nlp holds the rule-based language stages: filter extraction from
// free-text prompts, language detection, and query-mode classification.
// None of them call the model; they are deterministic string work.
package nlp

import (
	"strings"

	"finrag/internal/domain"
)

// hinglishMarkers are Roman-script Hindi words that mark a Hinglish prompt.
var hinglishMarkers = map[string]bool{
	"mujhe": true, "saari": true, "dikhao": true, "batao": true,
	"kitna": true, "kitne": true, "kaha": true, "paisa": true,
	"kharcha": true, "mera": true, "meri": true, "mere": true,
	"pichle": true,
}

// DetectLanguage classifies a prompt as English, Devanagari Hindi, or
// Roman-script Hinglish. Any Devanagari codepoint wins; otherwise a single
// marker word from the Hinglish set suffices.
func DetectLanguage(prompt string) domain.Language {
	for _, r := range prompt {
		if r >= 0x0900 && r <= 0x097F {
			return domain.LangHindi
		}
	}
	for _, tok := range tokenize(prompt) {
		if hinglishMarkers[tok] {
			return domain.LangHinglish
		}
	}
	return domain.LangEnglish
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r >= 0x0900 && r <= 0x097F)
	})
}
