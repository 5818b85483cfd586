// Package prompt assembles the role-conditioned, language-matched message
// bundle sent to the chat model.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"finrag/internal/domain"
)

const systemPrompt = `You are a careful financial analyst for a personal banking assistant.
Format answers as markdown, using tables when they make numbers clearer.
Always answer in the same language as the user's question.
Never invent transactions that are not present in the provided context; if the context does not contain the answer, say so.`

const docSeparator = "\n=== TRANSACTION ===\n"

// Assembler builds prompt bundles under a context budget. The budget is
// expressed in characters; roughly four characters approximate one token.
type Assembler struct {
	maxContextChars int
}

// NewAssembler creates an assembler with the given context budget in
// characters. Zero means the default of 48000 (≈12k tokens).
func NewAssembler(maxContextChars int) *Assembler {
	if maxContextChars <= 0 {
		maxContextChars = 48000
	}
	return &Assembler{maxContextChars: maxContextChars}
}

// Build produces the two-message bundle for the given mode. Statistics are
// included for ANALYTICAL and SMART_FULL; context documents are truncated
// from the tail to honor the budget, statistics never are.
func (a *Assembler) Build(lang domain.Language, userPrompt string, f domain.FilterSpec, stats *domain.Statistics, docs []domain.Document, mode domain.QueryMode) []domain.Message {
	var b strings.Builder

	b.WriteString(languageDirective(lang))
	b.WriteString("\n\nQUESTION: ")
	b.WriteString(userPrompt)
	b.WriteString("\n")

	if applied := f.Describe(); len(applied) > 0 {
		b.WriteString("\nAPPLIED FILTERS:\n")
		for _, d := range applied {
			b.WriteString("- ")
			b.WriteString(d)
			b.WriteString("\n")
		}
	}

	if stats != nil && (mode == domain.ModeAnalytical || mode == domain.ModeSmartFull) {
		b.WriteString("\n")
		b.WriteString(renderStats(stats))
	}

	if len(docs) > 0 {
		b.WriteString("\nCONTEXT TRANSACTIONS")
		budget := a.maxContextChars - b.Len()
		rendered, included := renderDocs(docs, budget)
		if included < len(docs) {
			fmt.Fprintf(&b, " (showing %d of %d)", included, len(docs))
		}
		b.WriteString(":\n")
		b.WriteString(rendered)
	}

	return []domain.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	}
}

func languageDirective(lang domain.Language) string {
	switch lang {
	case domain.LangHindi:
		return "उपयोगकर्ता ने हिंदी में पूछा है। उत्तर शुद्ध हिंदी (देवनागरी) में दें।"
	case domain.LangHinglish:
		return "The user asked in Hinglish (Roman-script Hindi). Reply in the same friendly Hinglish style."
	default:
		return "The user asked in English. Reply in clear English."
	}
}

func renderStats(stats *domain.Statistics) string {
	var b strings.Builder
	b.WriteString("STATISTICS (computed over every matching transaction):\n")
	fmt.Fprintf(&b, "- Count: %d\n", stats.Count)
	fmt.Fprintf(&b, "- Total: ₹%s\n", stats.Total.StringFixed(2))
	fmt.Fprintf(&b, "- Average: ₹%s\n", stats.Average.StringFixed(2))
	if stats.Min != nil {
		fmt.Fprintf(&b, "- Lowest: ₹%s\n", stats.Min.StringFixed(2))
	}
	if stats.Max != nil {
		fmt.Fprintf(&b, "- Highest: ₹%s\n", stats.Max.StringFixed(2))
	}
	if len(stats.ByType) > 0 {
		b.WriteString("By type:\n")
		for _, k := range sortedKeys(stats.ByType) {
			v := stats.ByType[k]
			fmt.Fprintf(&b, "- %s: %d transactions, ₹%s\n", k, v.Count, v.Total.StringFixed(2))
		}
	}
	if len(stats.ByMode) > 0 {
		b.WriteString("By mode:\n")
		for _, k := range sortedKeys(stats.ByMode) {
			v := stats.ByMode[k]
			fmt.Fprintf(&b, "- %s: %d transactions, ₹%s\n", k, v.Count, v.Total.StringFixed(2))
		}
	}
	if len(stats.Monthly) > 0 {
		b.WriteString("By month:\n")
		months := make([]string, 0, len(stats.Monthly))
		for k := range stats.Monthly {
			months = append(months, k)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(months)))
		for _, m := range months {
			v := stats.Monthly[m]
			fmt.Fprintf(&b, "- %s: %d transactions, credits ₹%s, debits ₹%s, net ₹%s\n",
				m, v.Count, v.CreditSum.StringFixed(2), v.DebitSum.StringFixed(2), v.Net.StringFixed(2))
		}
	}
	return b.String()
}

// renderDocs concatenates document texts until the character budget runs
// out, returning the rendering and how many documents were included.
func renderDocs(docs []domain.Document, budget int) (string, int) {
	var b strings.Builder
	included := 0
	for _, d := range docs {
		next := len(docSeparator) + len(d.Text)
		if included > 0 && b.Len()+next > budget {
			break
		}
		b.WriteString(docSeparator)
		b.WriteString(d.Text)
		included++
	}
	return b.String(), included
}

func sortedKeys(m map[string]domain.Bucket) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
