package nlp

import "strings"

// stopwords covers English function words, Hinglish particles, and the
// extractor's own vocabulary so residual keywords carry only content.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a an the is are was were be been am i me my we our you your he she
		it they them his her its of in on at to from for with by and or not
		no do does did have has had what which who when where how why all
		any some this that these those there here if then than as so just
		me show list display find get give tell want need please can could
		would should will shall may might must very much many more most
		between above below under over since last past next previous during
		transaction transactions txn txns amount amounts rupees rupee rs
		account number id date month year week day days today yesterday
		mujhe saari sabhi sab dikhao batao bataiye kitna kitne kaha kya hai
		hain tha thi the wali wala wale vali ka ki ke ko se me mein par aur
		ya nahi mera meri mere hamara pichle maheene mahine din aaj kal ab
		top highest largest biggest smallest lowest zyada kam upar neeche
		total sum average count min max credit debit credited debited
		upi neft rtgs imps cash card atm ft summarize summarise summary
		overview analyze analyse analysis pattern patterns trend trends
		insights unusual scan anomaly anomalies
	`) {
		stopwords[w] = struct{}{}
	}
}

func isStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

// residualKeywords returns the content words left after stripping stopwords
// and extractor vocabulary. They bias LLM context in SMART_FULL mode and
// never act as predicates.
func residualKeywords(lower string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range wordBoundary.FindAllString(lower, -1) {
		if len([]rune(tok)) < 3 || isStopword(tok) {
			continue
		}
		if isDigits(tok) {
			continue
		}
		if _, ok := monthNames[tok]; ok {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if len(out) == 8 {
			break
		}
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
