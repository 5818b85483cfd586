package nlp

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"finrag/internal/domain"
)

// Month names across the three supported scripts. Roman Hindi month names
// are the English ones, so one map covers en and hi-Latn.
var monthNames = map[string]time.Month{
	"january": 1, "jan": 1, "जनवरी": 1,
	"february": 2, "feb": 2, "फरवरी": 2,
	"march": 3, "mar": 3, "मार्च": 3,
	"april": 4, "apr": 4, "अप्रैल": 4,
	"may": 5, "मई": 5,
	"june": 6, "jun": 6, "जून": 6,
	"july": 7, "jul": 7, "जुलाई": 7,
	"august": 8, "aug": 8, "अगस्त": 8,
	"september": 9, "sep": 9, "सितंबर": 9,
	"october": 10, "oct": 10, "अक्टूबर": 10,
	"november": 11, "nov": 11, "नवंबर": 11,
	"december": 12, "dec": 12, "दिसंबर": 12,
}

// orderedMonthNames fixes iteration order so extraction stays a pure
// function of the prompt.
var orderedMonthNames = func() []string {
	names := make([]string, 0, len(monthNames))
	for name := range monthNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}()

var (
	isoDateRe  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dayFirstRe = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+([a-z\x{0900}-\x{097F}]+)\.?\s*(\d{4})?\b`)
	monthRe    = regexp.MustCompile(`\b([a-z\x{0900}-\x{097F}]+)\.?\s+(\d{4})\b`)
	yearRe     = regexp.MustCompile(`\b(20\d{2})\b`)
	lastNDays  = regexp.MustCompile(`\b(?:last|past|pichle)\s+(\d{1,3})\s+(?:days?|din(?:o\x{0901}?|on)?)\b`)
)

// extractDates fills the date range of the filter from the prompt. It
// recognizes absolute dates, month/year references, and a small set of
// relative expressions in all three languages. to is inclusive.
func extractDates(lower string, now time.Time, f *domain.FilterSpec) {
	now = now.UTC()
	since := strings.Contains(lower, "since ") || strings.Contains(lower, " se ab tak")

	setRange := func(from, to time.Time) {
		f.DateFrom = &from
		if !since {
			f.DateTo = &to
		}
	}

	// Relative expressions first; they are unambiguous.
	switch {
	case containsAny(lower, "last month", "previous month", "pichle month", "pichle maheene", "pichle mahine", "पिछले महीने", "पिछले माह"):
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		setRange(first, first.AddDate(0, 1, -1))
		return
	case containsAny(lower, "this month", "is month", "is mahine", "इस महीने"):
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		setRange(first, dateOf(now))
		return
	case containsAny(lower, "this week", "is hafte", "इस हफ्ते"):
		day := dateOf(now)
		offset := (int(day.Weekday()) + 6) % 7 // Monday start
		setRange(day.AddDate(0, 0, -offset), day)
		return
	case containsAny(lower, "yesterday", "beete kal"):
		day := dateOf(now).AddDate(0, 0, -1)
		setRange(day, day)
		return
	case containsAny(lower, "today", "aaj", "आज"):
		day := dateOf(now)
		setRange(day, day)
		return
	}

	if m := lastNDays.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		day := dateOf(now)
		setRange(day.AddDate(0, 0, -n), day)
		return
	}

	// Absolute ISO dates. One date is an exact day (or an open range after
	// "since"); two dates are a range.
	if isos := isoDateRe.FindAllString(lower, -1); len(isos) > 0 {
		first, err := domain.ParseDate(isos[0])
		if err == nil {
			if len(isos) >= 2 {
				if second, err := domain.ParseDate(isos[1]); err == nil {
					if second.Before(first) {
						first, second = second, first
					}
					f.DateFrom = &first
					f.DateTo = &second
					return
				}
			}
			setRange(first, first)
			return
		}
	}

	// "10 Feb 2024" / "10 February" style.
	for _, m := range dayFirstRe.FindAllStringSubmatch(lower, -1) {
		month, ok := monthNames[m[2]]
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[1])
		if day < 1 || day > 31 {
			continue
		}
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		setRange(d, d)
		return
	}

	// "February 2024" / bare month name.
	for _, m := range monthRe.FindAllStringSubmatch(lower, -1) {
		month, ok := monthNames[m[1]]
		if !ok {
			continue
		}
		year, _ := strconv.Atoi(m[2])
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		setRange(first, first.AddDate(0, 1, -1))
		return
	}
	for _, name := range orderedMonthNames {
		if containsWord(lower, name) {
			first := time.Date(now.Year(), monthNames[name], 1, 0, 0, 0, 0, time.UTC)
			setRange(first, first.AddDate(0, 1, -1))
			return
		}
	}

	// A bare year ("in 2024").
	if m := yearRe.FindStringSubmatch(lower); m != nil {
		year, _ := strconv.Atoi(m[1])
		first := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		setRange(first, first.AddDate(1, 0, -1))
	}
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var wordBoundary = regexp.MustCompile(`[\p{L}\p{M}\p{N}]+`)

func containsWord(s, word string) bool {
	for _, tok := range wordBoundary.FindAllString(s, -1) {
		if tok == word {
			return true
		}
	}
	return false
}
