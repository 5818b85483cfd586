package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"finrag/internal/domain"
)

func classify(prompt string) domain.QueryMode {
	return ClassifyMode(prompt, extract(prompt))
}

func TestClassifyStatistical(t *testing.T) {
	assert.Equal(t, domain.ModeStatistical, classify("how many transactions do I have?"))
	assert.Equal(t, domain.ModeStatistical, classify("what is the total amount spent on UPI"))
	assert.Equal(t, domain.ModeStatistical, classify("average transaction size"))
	assert.Equal(t, domain.ModeStatistical, classify("कुल कितने डेबिट हुए?"))
	assert.Equal(t, domain.ModeStatistical, classify("kitne transactions hue pichle maheene"))
}

func TestClassifyAnalytical(t *testing.T) {
	assert.Equal(t, domain.ModeAnalytical, classify("Summarize my spending last month"))
	assert.Equal(t, domain.ModeAnalytical, classify("any unusual patterns in my account?"))
	assert.Equal(t, domain.ModeAnalytical, classify("give me insights on my expenses"))
}

func TestAnalyticalWinsOverCounting(t *testing.T) {
	// A narrative request that mentions counting still needs prose.
	assert.Equal(t, domain.ModeAnalytical, classify("summarize how many UPI payments I made"))
}

func TestClassifyVectorSearchLookup(t *testing.T) {
	assert.Equal(t, domain.ModeVectorSearch, classify("find the transaction with id TXN-42"))
	assert.Equal(t, domain.ModeVectorSearch, classify("show me the transaction where I paid rent"))
}

func TestClassifyDefaultVectorSearch(t *testing.T) {
	// No predicates, no signal words: semantic retrieval is the default.
	assert.Equal(t, domain.ModeVectorSearch, classify("Show the food transaction"))
}

func TestClassifySmartFullWithPredicates(t *testing.T) {
	assert.Equal(t, domain.ModeSmartFull, classify("Mujhe ₹1000 se zyada wali UPI transactions dikhao"))
	assert.Equal(t, domain.ModeSmartFull, classify("all NEFT transactions in February 2024"))
}

func TestAccountDoesNotTriggerCount(t *testing.T) {
	// "account" contains "count"; the word signal must not fire inside it.
	assert.Equal(t, domain.ModeSmartFull, classify("show everything for account 123456789"))
}

func TestClassifyDeterministic(t *testing.T) {
	prompt := "Summarize my spending last month"
	first := classify(prompt)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, classify(prompt))
	}
}
