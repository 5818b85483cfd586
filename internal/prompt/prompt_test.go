package prompt

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag/internal/domain"
)

func docFixture(id, text string) domain.Document {
	return domain.Document{Text: text, Txn: domain.Transaction{TxnID: id}}
}

func TestBuildShape(t *testing.T) {
	a := NewAssembler(0)
	min := decimal.NewFromInt(1000)
	f := domain.FilterSpec{AmountMin: &min}
	stats := &domain.Statistics{Count: 2, Total: decimal.NewFromInt(3000), Average: decimal.NewFromInt(1500)}

	msgs := a.Build(domain.LangEnglish, "show big payments", f, stats,
		[]domain.Document{docFixture("T1", "Transaction ID: T1")}, domain.ModeSmartFull)

	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Never invent transactions")
	assert.Equal(t, "user", msgs[1].Role)

	user := msgs[1].Content
	assert.Contains(t, user, "show big payments")
	assert.Contains(t, user, "amount ≥ 1000")
	assert.Contains(t, user, "STATISTICS")
	assert.Contains(t, user, "Transaction ID: T1")
	// Directive, question, filters, stats, context, in that order.
	assert.Less(t, strings.Index(user, "QUESTION"), strings.Index(user, "APPLIED FILTERS"))
	assert.Less(t, strings.Index(user, "APPLIED FILTERS"), strings.Index(user, "STATISTICS"))
	assert.Less(t, strings.Index(user, "STATISTICS"), strings.Index(user, "CONTEXT TRANSACTIONS"))
}

func TestStatsOmittedForVectorSearch(t *testing.T) {
	a := NewAssembler(0)
	stats := &domain.Statistics{Count: 1}
	msgs := a.Build(domain.LangEnglish, "q", domain.FilterSpec{}, stats, nil, domain.ModeVectorSearch)
	assert.NotContains(t, msgs[1].Content, "STATISTICS")
}

func TestLanguageDirectives(t *testing.T) {
	a := NewAssembler(0)
	hi := a.Build(domain.LangHindi, "q", domain.FilterSpec{}, nil, nil, domain.ModeVectorSearch)
	assert.Contains(t, hi[1].Content, "देवनागरी")

	hing := a.Build(domain.LangHinglish, "q", domain.FilterSpec{}, nil, nil, domain.ModeVectorSearch)
	assert.Contains(t, hing[1].Content, "Hinglish")

	en := a.Build(domain.LangEnglish, "q", domain.FilterSpec{}, nil, nil, domain.ModeVectorSearch)
	assert.Contains(t, en[1].Content, "English")
}

func TestContextTruncatesFromTailNotStats(t *testing.T) {
	a := NewAssembler(900)
	stats := &domain.Statistics{Count: 3, Total: decimal.NewFromInt(1), Average: decimal.NewFromInt(1)}
	docs := []domain.Document{
		docFixture("T1", strings.Repeat("first ", 40)),
		docFixture("T2", strings.Repeat("second ", 40)),
		docFixture("T3", strings.Repeat("third ", 40)),
	}
	msgs := a.Build(domain.LangEnglish, "q", domain.FilterSpec{}, stats, docs, domain.ModeAnalytical)
	user := msgs[1].Content

	assert.Contains(t, user, "STATISTICS", "statistics survive truncation")
	assert.Contains(t, user, "first")
	assert.NotContains(t, user, "third", "tail documents dropped first")
	assert.Contains(t, user, "showing")
}

func TestFirstDocumentAlwaysIncluded(t *testing.T) {
	a := NewAssembler(10)
	msgs := a.Build(domain.LangEnglish, "q", domain.FilterSpec{}, nil,
		[]domain.Document{docFixture("T1", "content")}, domain.ModeSmartFull)
	assert.Contains(t, msgs[1].Content, "content")
}
