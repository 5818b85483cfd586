// Package format renders transactions to the single canonical text used both
// for embedding and for LLM context, so the index and the generator see the
// same representation.
package format

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"finrag/internal/domain"
)

const (
	labelTxnID     = "Transaction ID"
	labelAccount   = "Account Number"
	labelDate      = "Date"
	labelAmount    = "Amount"
	labelType      = "Type"
	labelMode      = "Mode"
	labelNarration = "Narration"
	labelBalance   = "Balance"
	labelReference = "Reference"
)

// Render produces the canonical multi-line rendering of a transaction.
// Label order is stable; optional fields are appended only when present.
func Render(t domain.Transaction) string {
	var b strings.Builder
	writeField(&b, labelTxnID, t.TxnID)
	writeField(&b, labelAccount, t.AccountNumber)
	writeField(&b, labelDate, t.DateString())
	writeField(&b, labelAmount, "₹"+t.Amount.StringFixed(2))
	writeField(&b, labelType, string(t.Type))
	writeField(&b, labelMode, t.Mode)
	writeField(&b, labelNarration, t.Narration)
	if t.Balance != nil {
		writeField(&b, labelBalance, "₹"+t.Balance.StringFixed(2))
	}
	if t.Reference != "" {
		writeField(&b, labelReference, t.Reference)
	}
	return b.String()
}

// Document builds the embedding/context document for a transaction.
func Document(t domain.Transaction) domain.Document {
	return domain.Document{Text: Render(t), Txn: t}
}

// Documents renders a batch in input order.
func Documents(txns []domain.Transaction) []domain.Document {
	docs := make([]domain.Document, len(txns))
	for i, t := range txns {
		docs[i] = Document(t)
	}
	return docs
}

// Parse reconstructs a transaction from its canonical rendering. It is the
// inverse of Render for all standard fields.
func Parse(text string) (domain.Transaction, error) {
	var t domain.Transaction
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		label, value, ok := strings.Cut(line, ": ")
		if !ok {
			if label, ok = strings.CutSuffix(line, ":"); !ok {
				return t, fmt.Errorf("malformed line %q", line)
			}
			value = ""
		}
		if err := setField(&t, label, value); err != nil {
			return t, err
		}
	}
	return t, nil
}

func setField(t *domain.Transaction, label, value string) error {
	switch label {
	case labelTxnID:
		t.TxnID = value
	case labelAccount:
		t.AccountNumber = value
	case labelDate:
		if value == "" {
			return nil
		}
		ts, err := domain.ParseDate(value)
		if err != nil {
			return err
		}
		t.Date = ts
	case labelAmount:
		amt, err := parseMoney(value)
		if err != nil {
			return err
		}
		t.Amount = amt
	case labelType:
		t.Type = domain.TxnType(value)
	case labelMode:
		t.Mode = value
	case labelNarration:
		t.Narration = value
	case labelBalance:
		bal, err := parseMoney(value)
		if err != nil {
			return err
		}
		t.Balance = &bal
	case labelReference:
		t.Reference = value
	default:
		return fmt.Errorf("unknown label %q", label)
	}
	return nil
}

func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "₹")
	s = strings.ReplaceAll(s, ",", "")
	return decimal.NewFromString(s)
}

func writeField(b *strings.Builder, label, value string) {
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}
