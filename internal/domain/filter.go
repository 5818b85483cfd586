package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SortField names the field a result set is ordered by.
type SortField string

const (
	SortByAmount SortField = "amount"
	SortByDate   SortField = "date"
)

// SortOrder is the direction of an ordering.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// SortSpec is an explicit ordering requested in the prompt.
type SortSpec struct {
	Field SortField
	Order SortOrder
}

// FilterSpec is the structured form of the constraints found in a prompt.
// Predicates are conjunctive across fields and disjunctive within a
// set-valued field. Absent fields constrain nothing.
type FilterSpec struct {
	DateFrom *time.Time
	DateTo   *time.Time // inclusive

	AmountMin *decimal.Decimal
	AmountMax *decimal.Decimal

	Types    []TxnType
	Modes    []string
	Accounts []string
	TxnIDs   []string

	TopN int
	Sort *SortSpec

	// Keywords bias LLM context in SMART_FULL mode; they are not predicates.
	Keywords []string
	// NarrationPhrase is a counterparty constraint ("to Rahul Sharma").
	// Unlike Keywords it is a real predicate, matched against narration.
	NarrationPhrase string
	// StrictPhrase requires the whole phrase to appear as consecutive words.
	StrictPhrase bool
}

// HasPredicates reports whether any constraining field is set. TopN, Sort
// and Keywords shape presentation only and do not count.
func (f FilterSpec) HasPredicates() bool {
	return f.DateFrom != nil || f.DateTo != nil ||
		f.AmountMin != nil || f.AmountMax != nil ||
		len(f.Types) > 0 || len(f.Modes) > 0 ||
		len(f.Accounts) > 0 || len(f.TxnIDs) > 0 ||
		f.NarrationPhrase != ""
}

// Matches reports whether the transaction satisfies every predicate.
func (f FilterSpec) Matches(t Transaction) bool {
	if f.DateFrom != nil || f.DateTo != nil {
		if t.Date.IsZero() {
			return false
		}
		d := dateOnly(t.Date)
		if f.DateFrom != nil && d.Before(dateOnly(*f.DateFrom)) {
			return false
		}
		if f.DateTo != nil && d.After(dateOnly(*f.DateTo)) {
			return false
		}
	}
	if f.AmountMin != nil && t.Amount.LessThan(*f.AmountMin) {
		return false
	}
	if f.AmountMax != nil && t.Amount.GreaterThan(*f.AmountMax) {
		return false
	}
	if len(f.Types) > 0 && !containsType(f.Types, t.Type) {
		return false
	}
	if len(f.Modes) > 0 && !containsFold(f.Modes, t.Mode) {
		return false
	}
	if len(f.Accounts) > 0 &&
		!containsFold(f.Accounts, t.AccountNumber) && !containsFold(f.Accounts, t.AccountID) {
		return false
	}
	if len(f.TxnIDs) > 0 && !containsFold(f.TxnIDs, t.TxnID) {
		return false
	}
	if f.NarrationPhrase != "" && !f.narrationMatches(t.Narration) {
		return false
	}
	return true
}

func (f FilterSpec) narrationMatches(narration string) bool {
	if f.StrictPhrase {
		words := strings.Fields(f.NarrationPhrase)
		parts := make([]string, len(words))
		for i, w := range words {
			parts[i] = regexp.QuoteMeta(w)
		}
		re, err := regexp.Compile(`(?i)\b` + strings.Join(parts, `\s+`) + `\b`)
		if err != nil {
			return false
		}
		return re.MatchString(narration)
	}
	return strings.Contains(strings.ToLower(narration), strings.ToLower(f.NarrationPhrase))
}

// Describe renders the applied predicates as short human-readable strings
// for the filters_applied response field.
func (f FilterSpec) Describe() []string {
	var out []string
	switch {
	case f.DateFrom != nil && f.DateTo != nil:
		out = append(out, fmt.Sprintf("date %s..%s",
			f.DateFrom.Format("2006-01-02"), f.DateTo.Format("2006-01-02")))
	case f.DateFrom != nil:
		out = append(out, "date since "+f.DateFrom.Format("2006-01-02"))
	case f.DateTo != nil:
		out = append(out, "date until "+f.DateTo.Format("2006-01-02"))
	}
	switch {
	case f.AmountMin != nil && f.AmountMax != nil && f.AmountMin.Equal(*f.AmountMax):
		out = append(out, "amount = "+trimZeros(*f.AmountMin))
	case f.AmountMin != nil && f.AmountMax != nil:
		out = append(out, fmt.Sprintf("amount %s..%s", trimZeros(*f.AmountMin), trimZeros(*f.AmountMax)))
	case f.AmountMin != nil:
		out = append(out, "amount ≥ "+trimZeros(*f.AmountMin))
	case f.AmountMax != nil:
		out = append(out, "amount ≤ "+trimZeros(*f.AmountMax))
	}
	for _, t := range f.Types {
		out = append(out, "type="+string(t))
	}
	for _, m := range f.Modes {
		out = append(out, "mode="+m)
	}
	for _, a := range f.Accounts {
		out = append(out, "account="+a)
	}
	for _, id := range f.TxnIDs {
		out = append(out, "txn="+id)
	}
	if f.NarrationPhrase != "" {
		out = append(out, fmt.Sprintf("narration~%q", f.NarrationPhrase))
	}
	if f.TopN > 0 && f.Sort != nil {
		out = append(out, fmt.Sprintf("top %d by %s %s", f.TopN, f.Sort.Field, f.Sort.Order))
	}
	return out
}

func trimZeros(d decimal.Decimal) string {
	s := d.StringFixed(2)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func dateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func containsType(set []TxnType, v TxnType) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
