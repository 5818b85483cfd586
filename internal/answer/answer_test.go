package answer

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"finrag/internal/domain"
)

func statsFixture() *domain.Statistics {
	min := decimal.NewFromInt(500)
	max := decimal.NewFromInt(4000)
	return &domain.Statistics{
		Count:   5,
		Total:   decimal.NewFromInt(10000),
		Average: decimal.NewFromInt(2000),
		Min:     &min,
		Max:     &max,
		ByType:  map[string]domain.Bucket{"DEBIT": {Count: 5, Total: decimal.NewFromInt(10000)}},
	}
}

func TestStatisticalEnglishTable(t *testing.T) {
	out := Statistical(statsFixture(), []string{"type=DEBIT"}, domain.LangEnglish)
	assert.Contains(t, out, "**5**")
	assert.Contains(t, out, "₹10000.00")
	assert.Contains(t, out, "| Count | 5 |")
	assert.Contains(t, out, "| Average | ₹2000.00 |")
	assert.Contains(t, out, "type=DEBIT")
}

func TestStatisticalHindiTable(t *testing.T) {
	out := Statistical(statsFixture(), nil, domain.LangHindi)
	assert.Contains(t, out, "संख्या")
	assert.Contains(t, out, "कुल राशि")
	assert.Contains(t, out, "₹10000.00")
	assert.True(t, strings.Contains(out, "|"), "answer carries a markdown table")
}

func TestStatisticalHinglish(t *testing.T) {
	out := Statistical(statsFixture(), nil, domain.LangHinglish)
	assert.Contains(t, out, "mili")
	assert.Contains(t, out, "| Count | 5 |")
}

func TestStatisticalNoMatches(t *testing.T) {
	out := Statistical(&domain.Statistics{}, nil, domain.LangHinglish)
	assert.Contains(t, out, "koi transaction nahi")
	out = Statistical(nil, nil, domain.LangEnglish)
	assert.Contains(t, out, "No transactions matched")
}

func TestStatisticalDeterministic(t *testing.T) {
	a := Statistical(statsFixture(), []string{"mode=UPI"}, domain.LangEnglish)
	b := Statistical(statsFixture(), []string{"mode=UPI"}, domain.LangEnglish)
	assert.Equal(t, a, b)
}

func TestSingleBucketGroupsOmitted(t *testing.T) {
	out := Statistical(statsFixture(), nil, domain.LangEnglish)
	assert.NotContains(t, out, "By type", "one bucket adds no information")
}
