package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finrag/internal/domain"
)

var (
	cardPhraseRe = regexp.MustCompile(`\b(?:credit|debit)\s+card\b`)
	amountRe     = regexp.MustCompile(`(₹|rs\.?\s*|rupees?\s*|rupaye\s*)?(\d[\d,]*(?:\.\d+)?)\s*(k|lakh|lac|l)?\b`)
	quotedRe     = regexp.MustCompile(`["“”]([^"“”]+)["“”]`)
	txnIDRe      = regexp.MustCompile(`(?i)\b(?:transaction|txn)\s+(?:id|no|number)\s*[:#]?\s*([A-Za-z0-9\-_]+)`)
	accountRe    = regexp.MustCompile(`(^|[^₹\d.])(\d{6,})\b`)
	topNRe       = regexp.MustCompile(`\btop\s+(\d{1,3})\b`)
	personRe     = regexp.MustCompile(`(?:to|from|by|with|se|ko)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)
	idLikeRe     = regexp.MustCompile(`^[A-Za-z0-9\-_]+$`)
)

var typeWords = map[string]domain.TxnType{
	"credit": domain.TypeCredit, "credited": domain.TypeCredit,
	"credits": domain.TypeCredit, "incoming": domain.TypeCredit,
	"received": domain.TypeCredit, "deposit": domain.TypeCredit,
	"deposits": domain.TypeCredit, "jama": domain.TypeCredit,
	"क्रेडिट": domain.TypeCredit, "जमा": domain.TypeCredit,

	"debit": domain.TypeDebit, "debited": domain.TypeDebit,
	"debits": domain.TypeDebit, "spent": domain.TypeDebit,
	"spending": domain.TypeDebit, "spend": domain.TypeDebit,
	"paid": domain.TypeDebit, "withdrawal": domain.TypeDebit,
	"withdrawals": domain.TypeDebit, "withdrew": domain.TypeDebit,
	"outgoing": domain.TypeDebit, "expense": domain.TypeDebit,
	"expenses": domain.TypeDebit, "kharcha": domain.TypeDebit,
	"kharche": domain.TypeDebit, "डेबिट": domain.TypeDebit,
	"खर्च": domain.TypeDebit, "खर्चा": domain.TypeDebit,
}

var modeWords = map[string]string{
	"upi": domain.ModeUPI, "neft": domain.ModeNEFT, "rtgs": domain.ModeRTGS,
	"imps": domain.ModeIMPS, "cash": domain.ModeCASH, "card": domain.ModeCARD,
	"atm": domain.ModeATM, "ft": domain.ModeFT,
}

// ExtractFilters parses a natural-language prompt into a FilterSpec. It is
// best-effort and side-effect-free: unrecognized clauses are simply absent
// from the result. now anchors relative date expressions.
func ExtractFilters(prompt string, now time.Time) domain.FilterSpec {
	var f domain.FilterSpec
	lower := strings.ToLower(prompt)

	// "credit card" / "debit card" are mode phrases, not type words. Mask
	// them before type extraction so "credit" inside them cannot misfire.
	if cardPhraseRe.MatchString(lower) {
		addString(&f.Modes, domain.ModeCARD)
		lower = cardPhraseRe.ReplaceAllString(lower, " card ")
	}

	extractDates(lower, now, &f)
	extractAmounts(lower, &f)
	extractTopN(lower, &f)

	for _, tok := range wordBoundary.FindAllString(lower, -1) {
		if typ, ok := typeWords[tok]; ok {
			addType(&f.Types, typ)
		}
		if mode, ok := modeWords[tok]; ok {
			addString(&f.Modes, mode)
		}
	}
	if strings.Contains(lower, "fund transfer") {
		addString(&f.Modes, domain.ModeFT)
	}

	for _, m := range txnIDRe.FindAllStringSubmatch(prompt, -1) {
		addString(&f.TxnIDs, m[1])
	}
	for _, m := range accountRe.FindAllStringSubmatch(lower, -1) {
		if !isYearToken(m[2]) && !isAmountToken(lower, m[2], &f) {
			addString(&f.Accounts, m[2])
		}
	}
	for _, m := range quotedRe.FindAllStringSubmatch(prompt, -1) {
		val := strings.TrimSpace(m[1])
		if idLikeRe.MatchString(val) && strings.ContainsAny(val, "0123456789") {
			addString(&f.TxnIDs, val)
		} else if f.NarrationPhrase == "" {
			f.NarrationPhrase = val
			f.StrictPhrase = true
		}
	}
	if f.NarrationPhrase == "" {
		if m := personRe.FindStringSubmatch(prompt); m != nil && isPersonName(m[1]) {
			f.NarrationPhrase = m[1]
			f.StrictPhrase = strings.Contains(m[1], " ")
		}
	}

	f.Keywords = residualKeywords(lower)
	return f
}

func extractAmounts(lower string, f *domain.FilterSpec) {
	amounts := collectAmounts(lower)
	if len(amounts) == 0 {
		return
	}

	above := containsAny(lower, "above", "over ", "greater than", "more than", "zyada", "se upar", "ज़्यादा", "ज्यादा", "अधिक")
	atLeast := containsAny(lower, "at least", "minimum of", "kam se kam")
	below := containsAny(lower, "below", "under ", "less than", "se kam", "kam hai", " kam ", "कम")
	atMost := containsAny(lower, "at most", "up to", "upto")

	first := amounts[0].Decimal
	switch {
	case strings.Contains(lower, "between") && len(amounts) >= 2:
		lo, hi := amounts[0].Decimal, amounts[1].Decimal
		if lo.GreaterThan(hi) {
			lo, hi = hi, lo
		}
		f.AmountMin, f.AmountMax = &lo, &hi
	case above || atLeast:
		f.AmountMin = &first
	case below || atMost:
		f.AmountMax = &first
	case amounts[0].currency:
		// A bare "₹500" with no comparator is an exact-amount constraint.
		f.AmountMin, f.AmountMax = &first, &first
	}
}

type amountToken struct {
	decimal.Decimal
	currency bool
}

func collectAmounts(lower string) []amountToken {
	var out []amountToken
	anyCurrency := false
	for _, m := range amountRe.FindAllStringSubmatch(lower, -1) {
		raw := strings.ReplaceAll(m[2], ",", "")
		hasCurrency := m[1] != ""
		if isYearToken(raw) && !hasCurrency {
			continue
		}
		// Zero-padded digit runs are date fragments, not amounts.
		if len(raw) > 1 && raw[0] == '0' && !strings.HasPrefix(raw, "0.") {
			continue
		}
		val, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}
		switch m[3] {
		case "k":
			val = val.Mul(decimal.NewFromInt(1000))
		case "l", "lakh", "lac":
			val = val.Mul(decimal.NewFromInt(100000))
		}
		anyCurrency = anyCurrency || hasCurrency
		out = append(out, amountToken{Decimal: val, currency: hasCurrency})
	}
	// Currency-marked amounts outrank bare numbers when both appear.
	if anyCurrency {
		marked := out[:0]
		for _, a := range out {
			if a.currency {
				marked = append(marked, a)
			}
		}
		return marked
	}
	return out
}

func extractTopN(lower string, f *domain.FilterSpec) {
	desc := containsAny(lower, "highest", "largest", "biggest", "top ", "sabse badi", "सबसे बड़ी", "सबसे बड़े")
	asc := containsAny(lower, "smallest", "lowest", "cheapest", "sabse choti", "सबसे छोटी", "सबसे छोटे")
	if !desc && !asc {
		return
	}
	n := 10
	if m := topNRe.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
			n = v
		}
	}
	order := domain.OrderDesc
	if asc && !desc {
		order = domain.OrderAsc
	}
	f.TopN = n
	f.Sort = &domain.SortSpec{Field: domain.SortByAmount, Order: order}
}

func isYearToken(s string) bool {
	return len(s) == 4 && strings.HasPrefix(s, "20") && !strings.Contains(s, ".")
}

// isAmountToken reports whether a long digit run was already consumed as an
// amount bound, so it is not mistaken for an account number.
func isAmountToken(lower, tok string, f *domain.FilterSpec) bool {
	val, err := decimal.NewFromString(tok)
	if err != nil {
		return false
	}
	for _, bound := range []*decimal.Decimal{f.AmountMin, f.AmountMax} {
		if bound != nil && bound.Equal(val) {
			return true
		}
	}
	return false
}

// isPersonName rejects capitalized words that are really months, modes, or
// other vocabulary the extractor consumes elsewhere.
func isPersonName(candidate string) bool {
	for _, word := range strings.Fields(strings.ToLower(candidate)) {
		if _, ok := monthNames[word]; ok {
			return false
		}
		if _, ok := modeWords[word]; ok {
			return false
		}
		if _, ok := typeWords[word]; ok {
			return false
		}
		if hinglishMarkers[word] || isStopword(word) {
			return false
		}
	}
	return true
}

func addType(set *[]domain.TxnType, v domain.TxnType) {
	for _, s := range *set {
		if s == v {
			return
		}
	}
	*set = append(*set, v)
}

func addString(set *[]string, v string) {
	for _, s := range *set {
		if strings.EqualFold(s, v) {
			return
		}
	}
	*set = append(*set, v)
}
