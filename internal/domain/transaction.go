package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TxnType is the cash-flow direction of a transaction. Amounts are always
// positive; the sign is carried exclusively by the type.
type TxnType string

const (
	TypeCredit TxnType = "CREDIT"
	TypeDebit  TxnType = "DEBIT"
)

// IsValid reports whether the type is one of the two known directions.
func (t TxnType) IsValid() bool { return t == TypeCredit || t == TypeDebit }

// Known payment modes. Unknown values normalize to ModeOthers.
const (
	ModeUPI    = "UPI"
	ModeFT     = "FT"
	ModeNEFT   = "NEFT"
	ModeIMPS   = "IMPS"
	ModeRTGS   = "RTGS"
	ModeCASH   = "CASH"
	ModeCARD   = "CARD"
	ModeATM    = "ATM"
	ModeOthers = "OTHERS"
)

var knownModes = map[string]bool{
	ModeUPI: true, ModeFT: true, ModeNEFT: true, ModeIMPS: true,
	ModeRTGS: true, ModeCASH: true, ModeCARD: true, ModeATM: true,
	ModeOthers: true,
}

// NormalizeMode uppercases a raw mode value and maps unknown values to OTHERS.
func NormalizeMode(raw string) string {
	m := strings.ToUpper(strings.TrimSpace(raw))
	if m == "" {
		return ""
	}
	if strings.Contains(m, "CARD") {
		return ModeCARD
	}
	if !knownModes[m] {
		return ModeOthers
	}
	return m
}

// Transaction is the normalized form of one bank transaction record.
type Transaction struct {
	TxnID         string
	AccountID     string
	AccountNumber string
	Date          time.Time
	Amount        decimal.Decimal
	Type          TxnType
	Mode          string
	Narration     string
	Balance       *decimal.Decimal
	Reference     string
}

// rawTransaction is the loose wire shape accepted on ingest. Upstream
// services disagree on field names, so every field has aliases.
type rawTransaction struct {
	TxnID         string          `json:"txnId"`
	AccountID     string          `json:"accountId"`
	AccountNumber string          `json:"accountNumber"`
	CreatedAt     string          `json:"createdAt"`
	Date          string          `json:"date"`
	Amount        json.RawMessage `json:"amount"`
	Type          string          `json:"type"`
	PkGSI1        string          `json:"pk_GSI_1"`
	Mode          string          `json:"mode"`
	TxnMode       string          `json:"txnMode"`
	Narration     string          `json:"narration"`
	Balance       json.RawMessage `json:"balance"`
	CurrentBal    json.RawMessage `json:"currentBalance"`
	Reference     string          `json:"reference"`
	TxnRef        string          `json:"txnRef"`
}

// UnmarshalJSON accepts the loose upstream record shape: amount as number or
// string, date as ISO date or datetime, type either direct or via the
// composite "TYPE#CREDIT" attribute, and mode/account aliases.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw rawTransaction
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t.TxnID = raw.TxnID
	t.AccountID = raw.AccountID
	t.AccountNumber = firstNonEmpty(raw.AccountNumber, raw.AccountID)
	t.Narration = raw.Narration
	t.Reference = firstNonEmpty(raw.Reference, raw.TxnRef)
	t.Mode = NormalizeMode(firstNonEmpty(raw.Mode, raw.TxnMode))

	typ := strings.ToUpper(strings.TrimSpace(raw.Type))
	if typ == "" && raw.PkGSI1 != "" {
		typ = strings.ToUpper(strings.TrimPrefix(raw.PkGSI1, "TYPE#"))
	}
	t.Type = TxnType(typ)

	if dateStr := firstNonEmpty(raw.CreatedAt, raw.Date); dateStr != "" {
		ts, err := ParseDate(dateStr)
		if err != nil {
			return fmt.Errorf("transaction %s: %w", raw.TxnID, err)
		}
		t.Date = ts
	}

	amt, err := parseDecimalField(raw.Amount)
	if err != nil {
		return fmt.Errorf("transaction %s: invalid amount: %w", raw.TxnID, err)
	}
	t.Amount = amt

	balRaw := raw.CurrentBal
	if len(balRaw) == 0 {
		balRaw = raw.Balance
	}
	if len(balRaw) > 0 && string(balRaw) != "null" {
		bal, err := parseDecimalField(balRaw)
		if err != nil {
			return fmt.Errorf("transaction %s: invalid balance: %w", raw.TxnID, err)
		}
		t.Balance = &bal
	}
	return nil
}

// MarshalJSON renders the API response shape used in transactions pages.
func (t Transaction) MarshalJSON() ([]byte, error) {
	out := struct {
		TransactionID string `json:"transaction_id"`
		AccountNumber string `json:"account_number"`
		Date          string `json:"date"`
		Amount        string `json:"amount"`
		Type          string `json:"type"`
		Mode          string `json:"mode"`
		BalanceAfter  string `json:"balance_after,omitempty"`
		Narration     string `json:"narration"`
		Reference     string `json:"reference,omitempty"`
	}{
		TransactionID: t.TxnID,
		AccountNumber: t.AccountNumber,
		Date:          t.DateString(),
		Amount:        t.Amount.StringFixed(2),
		Type:          string(t.Type),
		Mode:          t.Mode,
		Narration:     t.Narration,
		Reference:     t.Reference,
	}
	if t.Balance != nil {
		out.BalanceAfter = t.Balance.StringFixed(2)
	}
	return json.Marshal(out)
}

// DateString returns the transaction date normalized to YYYY-MM-DD in UTC.
func (t Transaction) DateString() string {
	if t.Date.IsZero() {
		return ""
	}
	return t.Date.UTC().Format("2006-01-02")
}

// ParseDate accepts ISO-8601 dates and datetimes.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseDecimalField(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, nil
	}
	s := strings.Trim(string(raw), `"`)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Document pairs the canonical text rendering of a transaction with the
// typed record it was derived from. It is the atomic unit of embedding and
// of LLM context.
type Document struct {
	Text string
	Txn  Transaction
}
