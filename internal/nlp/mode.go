package nlp

import (
	"regexp"
	"strings"

	"finrag/internal/domain"
)

// Signal vocabularies for mode classification, defined across English,
// Devanagari, and Roman-script Hindi. Classification is deterministic: it
// is a pure function of the prompt and the extracted FilterSpec.
var (
	analyticalSignals = []string{
		"summarize", "summarise", "summary", "overview", "analyze",
		"analyse", "analysis", "pattern", "trend", "unusual", "anomal",
		"scan", "insight", "spending habits",
		"सारांश", "विश्लेषण", "samjhao", "vishleshan",
	}

	// Phrase signals match as substrings; word signals match whole tokens
	// only ("count" must not fire inside "account").
	statisticalPhrases = []string{
		"how many", "total amount", "total kitna", "average", "ausat",
		"कितने", "कितनी", "कितना", "कुल", "औसत", "योग",
	}
	statisticalWords = []string{
		"count", "sum", "min", "max", "minimum", "maximum", "total",
		"kitne", "kitna",
	}

	broadSignals = []string{
		"all ", "every ", "saari", "sabhi", "sab ", "list", "सारी", "सभी",
	}

	lookupRe = regexp.MustCompile(`\b(?:find|show me|show)\b[^.?!]*\btransaction\b[^.?!]*\b(?:where|with|id|number)\b`)
)

// ClassifyMode selects exactly one execution pipeline for the prompt.
func ClassifyMode(prompt string, f domain.FilterSpec) domain.QueryMode {
	lower := strings.ToLower(prompt)

	// Narrative requests win over bare aggregation words: "summarize" with
	// "how many" still needs prose.
	if containsAny(lower, analyticalSignals...) {
		return domain.ModeAnalytical
	}
	if containsAny(lower, statisticalPhrases...) {
		return domain.ModeStatistical
	}
	for _, w := range statisticalWords {
		if containsWord(lower, w) {
			return domain.ModeStatistical
		}
	}

	lookup := len(f.TxnIDs) > 0 || f.NarrationPhrase != "" || lookupRe.MatchString(lower)
	if lookup && !containsAny(lower, broadSignals...) {
		return domain.ModeVectorSearch
	}

	if f.HasPredicates() || f.TopN > 0 {
		return domain.ModeSmartFull
	}
	return domain.ModeVectorSearch
}
