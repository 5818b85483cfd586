// Package answer synthesizes the deterministic STATISTICAL reply. No model
// call happens on this path; the output is a pure function of the numbers
// and the detected language, so it is safe to cache.
package answer

import (
	"fmt"
	"sort"
	"strings"

	"finrag/internal/domain"
)

type labels struct {
	verdictOne  string // count, total
	heading     string
	metric      string
	value       string
	count       string
	total       string
	average     string
	min         string
	max         string
	byType      string
	byMode      string
	noMatches   string
	withFilters string
}

var labelSet = map[domain.Language]labels{
	domain.LangEnglish: {
		verdictOne:  "Found **%d** matching transaction(s) totalling **₹%s**.",
		heading:     "Statistics",
		metric:      "Metric",
		value:       "Value",
		count:       "Count",
		total:       "Total",
		average:     "Average",
		min:         "Lowest",
		max:         "Highest",
		byType:      "By type",
		byMode:      "By mode",
		noMatches:   "No transactions matched your query.",
		withFilters: "Filters: %s",
	},
	domain.LangHindi: {
		verdictOne:  "कुल **%d** ट्रांज़ैक्शन मिलीं, राशि **₹%s**।",
		heading:     "सांख्यिकी",
		metric:      "मापदंड",
		value:       "मान",
		count:       "संख्या",
		total:       "कुल राशि",
		average:     "औसत",
		min:         "न्यूनतम",
		max:         "अधिकतम",
		byType:      "प्रकार के अनुसार",
		byMode:      "मोड के अनुसार",
		noMatches:   "आपके सवाल से मेल खाने वाली कोई ट्रांज़ैक्शन नहीं मिली।",
		withFilters: "फ़िल्टर: %s",
	},
	domain.LangHinglish: {
		verdictOne:  "**%d** matching transactions mili, total **₹%s**.",
		heading:     "Statistics",
		metric:      "Metric",
		value:       "Value",
		count:       "Count",
		total:       "Total",
		average:     "Average",
		min:         "Sabse choti",
		max:         "Sabse badi",
		byType:      "Type ke hisaab se",
		byMode:      "Mode ke hisaab se",
		noMatches:   "Aapke filters ke hisaab se koi transaction nahi mili.",
		withFilters: "Filters: %s",
	},
}

// Statistical renders the fast-path markdown block: a one-line verdict and
// a table of the salient numbers.
func Statistical(stats *domain.Statistics, filters []string, lang domain.Language) string {
	l, ok := labelSet[lang]
	if !ok {
		l = labelSet[domain.LangEnglish]
	}

	if stats == nil || stats.Count == 0 {
		return l.noMatches
	}

	var b strings.Builder
	fmt.Fprintf(&b, l.verdictOne, stats.Count, stats.Total.StringFixed(2))
	b.WriteString("\n")
	if len(filters) > 0 {
		b.WriteString("\n")
		fmt.Fprintf(&b, l.withFilters, strings.Join(filters, ", "))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n### %s\n\n", l.heading)
	fmt.Fprintf(&b, "| %s | %s |\n|---|---|\n", l.metric, l.value)
	fmt.Fprintf(&b, "| %s | %d |\n", l.count, stats.Count)
	fmt.Fprintf(&b, "| %s | ₹%s |\n", l.total, stats.Total.StringFixed(2))
	fmt.Fprintf(&b, "| %s | ₹%s |\n", l.average, stats.Average.StringFixed(2))
	if stats.Min != nil {
		fmt.Fprintf(&b, "| %s | ₹%s |\n", l.min, stats.Min.StringFixed(2))
	}
	if stats.Max != nil {
		fmt.Fprintf(&b, "| %s | ₹%s |\n", l.max, stats.Max.StringFixed(2))
	}

	if len(stats.ByType) > 1 {
		fmt.Fprintf(&b, "\n### %s\n\n", l.byType)
		writeBuckets(&b, l, stats.ByType)
	}
	if len(stats.ByMode) > 1 {
		fmt.Fprintf(&b, "\n### %s\n\n", l.byMode)
		writeBuckets(&b, l, stats.ByMode)
	}
	return b.String()
}

func writeBuckets(b *strings.Builder, l labels, buckets map[string]domain.Bucket) {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(b, "| | %s | %s |\n|---|---|---|\n", l.count, l.total)
	for _, k := range keys {
		v := buckets[k]
		fmt.Fprintf(b, "| %s | %d | ₹%s |\n", k, v.Count, v.Total.StringFixed(2))
	}
}
