package nlp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag/internal/domain"
)

// A fixed clock keeps relative date extraction deterministic.
var testNow = time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)

func extract(prompt string) domain.FilterSpec {
	return ExtractFilters(prompt, testNow)
}

func TestExtractAmountAboveHinglish(t *testing.T) {
	f := extract("Mujhe ₹1000 se zyada wali UPI transactions dikhao")
	require.NotNil(t, f.AmountMin)
	assert.Equal(t, "1000", f.AmountMin.String())
	assert.Nil(t, f.AmountMax)
	assert.Equal(t, []string{domain.ModeUPI}, f.Modes)
	assert.Contains(t, f.Describe(), "amount ≥ 1000")
	assert.Contains(t, f.Describe(), "mode=UPI")
}

func TestExtractAmountBelow(t *testing.T) {
	f := extract("transactions below 500 rupees")
	require.NotNil(t, f.AmountMax)
	assert.Equal(t, "500", f.AmountMax.String())
	assert.Nil(t, f.AmountMin)
}

func TestExtractAmountBetween(t *testing.T) {
	f := extract("show transactions between ₹30,000 and ₹10,000")
	require.NotNil(t, f.AmountMin)
	require.NotNil(t, f.AmountMax)
	assert.Equal(t, "10000", f.AmountMin.String(), "bounds are reordered")
	assert.Equal(t, "30000", f.AmountMax.String())
}

func TestExtractAmountShorthand(t *testing.T) {
	f := extract("payments above 5k")
	require.NotNil(t, f.AmountMin)
	assert.Equal(t, "5000", f.AmountMin.String())

	f = extract("anything over 2 lakh?")
	require.NotNil(t, f.AmountMin)
	assert.Equal(t, "200000", f.AmountMin.String())
}

func TestExtractExactAmountNeedsCurrencyMarker(t *testing.T) {
	f := extract("the ₹500 transaction")
	require.NotNil(t, f.AmountMin)
	require.NotNil(t, f.AmountMax)
	assert.True(t, f.AmountMin.Equal(*f.AmountMax))

	f = extract("show 500 transactions")
	assert.Nil(t, f.AmountMin, "bare numbers are not amount constraints")
}

func TestExtractTypes(t *testing.T) {
	f := extract("how much did I spend on food")
	assert.Equal(t, []domain.TxnType{domain.TypeDebit}, f.Types)

	f = extract("show credits and debits")
	assert.ElementsMatch(t, []domain.TxnType{domain.TypeCredit, domain.TypeDebit}, f.Types)

	f = extract("कुल कितने डेबिट हुए?")
	assert.Equal(t, []domain.TxnType{domain.TypeDebit}, f.Types)
}

func TestCreditCardIsModeNotType(t *testing.T) {
	f := extract("credit card payments last month")
	assert.Equal(t, []string{domain.ModeCARD}, f.Modes)
	assert.Empty(t, f.Types, "the credit in credit card is not a type constraint")
}

func TestExtractAbsoluteMonth(t *testing.T) {
	f := extract("transactions in February 2024")
	require.NotNil(t, f.DateFrom)
	require.NotNil(t, f.DateTo)
	assert.Equal(t, "2024-02-01", f.DateFrom.Format("2006-01-02"))
	assert.Equal(t, "2024-02-29", f.DateTo.Format("2006-01-02"), "leap year end")
}

func TestExtractISODate(t *testing.T) {
	f := extract("what happened on 2024-02-10")
	require.NotNil(t, f.DateFrom)
	require.NotNil(t, f.DateTo)
	assert.Equal(t, "2024-02-10", f.DateFrom.Format("2006-01-02"))
	assert.True(t, f.DateFrom.Equal(*f.DateTo))
}

func TestExtractDayMonthYear(t *testing.T) {
	f := extract("spending on 10 Feb 2024")
	require.NotNil(t, f.DateFrom)
	assert.Equal(t, "2024-02-10", f.DateFrom.Format("2006-01-02"))
}

func TestExtractRelativeDates(t *testing.T) {
	f := extract("summarize my spending last month")
	require.NotNil(t, f.DateFrom)
	require.NotNil(t, f.DateTo)
	assert.Equal(t, "2024-03-01", f.DateFrom.Format("2006-01-02"))
	assert.Equal(t, "2024-03-31", f.DateTo.Format("2006-01-02"))

	f = extract("pichle maheene ka kharcha batao")
	require.NotNil(t, f.DateFrom)
	assert.Equal(t, "2024-03-01", f.DateFrom.Format("2006-01-02"))

	f = extract("last 7 days transactions")
	require.NotNil(t, f.DateFrom)
	assert.Equal(t, "2024-04-08", f.DateFrom.Format("2006-01-02"))
	assert.Equal(t, "2024-04-15", f.DateTo.Format("2006-01-02"))

	f = extract("aaj ka kharcha")
	require.NotNil(t, f.DateFrom)
	assert.Equal(t, "2024-04-15", f.DateFrom.Format("2006-01-02"))
}

func TestExtractYearOnly(t *testing.T) {
	f := extract("all transactions in 2023")
	require.NotNil(t, f.DateFrom)
	require.NotNil(t, f.DateTo)
	assert.Equal(t, "2023-01-01", f.DateFrom.Format("2006-01-02"))
	assert.Equal(t, "2023-12-31", f.DateTo.Format("2006-01-02"))
	assert.Nil(t, f.AmountMin, "year is not an amount")
}

func TestExtractSince(t *testing.T) {
	f := extract("transactions since 2024-02-01")
	require.NotNil(t, f.DateFrom)
	assert.Nil(t, f.DateTo, "since leaves the range open-ended")
}

func TestExtractAccountAndTxnID(t *testing.T) {
	f := extract("show transactions for account 123456789")
	assert.Equal(t, []string{"123456789"}, f.Accounts)

	f = extract("find transaction id TXN-42A")
	assert.Equal(t, []string{"TXN-42A"}, f.TxnIDs)

	f = extract(`what is "TXN99" about`)
	assert.Equal(t, []string{"TXN99"}, f.TxnIDs)
}

func TestExtractTopN(t *testing.T) {
	f := extract("top 5 biggest debits")
	assert.Equal(t, 5, f.TopN)
	require.NotNil(t, f.Sort)
	assert.Equal(t, domain.SortByAmount, f.Sort.Field)
	assert.Equal(t, domain.OrderDesc, f.Sort.Order)

	f = extract("the smallest transactions")
	assert.Equal(t, 10, f.TopN, "defaults to 10")
	assert.Equal(t, domain.OrderAsc, f.Sort.Order)
}

func TestExtractPersonName(t *testing.T) {
	f := extract("payments to Rahul Sharma this month")
	assert.Equal(t, "Rahul Sharma", f.NarrationPhrase)
	assert.True(t, f.StrictPhrase)

	f = extract("transactions from March 2024")
	assert.Empty(t, f.NarrationPhrase, "months are not people")
}

func TestExtractKeywordsResidual(t *testing.T) {
	f := extract("Show the food transaction")
	assert.Contains(t, f.Keywords, "food")
	assert.False(t, f.HasPredicates())
}

func TestExtractIsSideEffectFree(t *testing.T) {
	prompt := "Mujhe ₹1000 se zyada wali UPI transactions dikhao"
	first := extract(prompt)
	second := extract(prompt)
	assert.Equal(t, first, second)
}
