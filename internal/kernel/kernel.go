// Package kernel computes the per-mode context subset, statistics, and
// display set over a user's corpus.
package kernel

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"finrag/internal/domain"
	"finrag/internal/store"
)

// Config bounds the kernel's output sizes.
type Config struct {
	// TopK is the nearest-neighbor fan-out for vector search.
	TopK int
	// SmartFullCeiling caps the SMART_FULL LLM context.
	SmartFullCeiling int
	// AnalyticalSample caps the representative sample for ANALYTICAL mode.
	AnalyticalSample int
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	return Config{TopK: 50, SmartFullCeiling: 200, AnalyticalSample: 60}
}

// Result is what a mode produces for the downstream prompt assembly.
type Result struct {
	ContextDocs   []domain.Document
	Statistics    *domain.Statistics
	MatchingCount int
	// Display is the full ordered set the response pages over.
	Display []domain.Transaction
}

// Run dispatches to the pipeline for the given mode.
func Run(ctx context.Context, mode domain.QueryMode, st *store.UserStore, emb domain.Embedder, prompt string, f domain.FilterSpec, cfg Config) (Result, error) {
	switch mode {
	case domain.ModeVectorSearch:
		return vectorSearch(ctx, st, emb, prompt, f, cfg)
	case domain.ModeAnalytical:
		return analytical(st, f, cfg), nil
	case domain.ModeStatistical:
		return statistical(st, f), nil
	case domain.ModeSmartFull:
		return smartFull(st, f, cfg), nil
	default:
		return Result{}, fmt.Errorf("unknown query mode %q", mode)
	}
}

func vectorSearch(ctx context.Context, st *store.UserStore, emb domain.Embedder, prompt string, f domain.FilterSpec, cfg Config) (Result, error) {
	vec, err := emb.EmbedQuery(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("embed query: %w", err)
	}
	k := cfg.TopK
	if n := st.Index.Len(); k > n {
		k = n
	}
	hits := st.Index.Search(vec, k)

	var docs []domain.Document
	for _, h := range hits {
		if f.Matches(h.Doc.Txn) {
			docs = append(docs, h.Doc)
		}
	}
	display := make([]domain.Transaction, len(docs))
	for i, d := range docs {
		display[i] = d.Txn
	}
	return Result{
		ContextDocs:   docs,
		MatchingCount: len(docs),
		Display:       display,
	}, nil
}

func statistical(st *store.UserStore, f domain.FilterSpec) Result {
	matched := Apply(st.Documents, f)
	stats := ComputeStatistics(matched)
	display := transactions(matched)
	sortTxns(display, f.Sort)
	if f.TopN > 0 && f.TopN < len(display) {
		display = display[:f.TopN]
	}
	return Result{
		Statistics:    &stats,
		MatchingCount: len(matched),
		Display:       display,
	}
}

func analytical(st *store.UserStore, f domain.FilterSpec, cfg Config) Result {
	matched := Apply(st.Documents, f)
	stats := ComputeStatistics(matched)
	return Result{
		ContextDocs:   sampleRepresentative(matched, cfg.AnalyticalSample),
		Statistics:    &stats,
		MatchingCount: len(matched),
		Display:       sortedTransactions(matched, f.Sort),
	}
}

func smartFull(st *store.UserStore, f domain.FilterSpec, cfg Config) Result {
	matched := Apply(st.Documents, f)
	ordered := make([]domain.Document, len(matched))
	copy(ordered, matched)
	sortDocs(ordered, f.Sort)

	ctxDocs := ordered
	if len(ctxDocs) > cfg.SmartFullCeiling {
		ctxDocs = ctxDocs[:cfg.SmartFullCeiling]
	}

	display := transactions(ordered)
	if f.TopN > 0 && f.TopN < len(display) {
		display = display[:f.TopN]
	}

	stats := domain.Statistics{Count: len(matched), Total: sumAmounts(matched)}
	return Result{
		ContextDocs:   ctxDocs,
		Statistics:    &stats,
		MatchingCount: len(matched),
		Display:       display,
	}
}

// Apply returns the documents whose transactions satisfy every predicate,
// preserving corpus order.
func Apply(docs []domain.Document, f domain.FilterSpec) []domain.Document {
	out := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		if f.Matches(d.Txn) {
			out = append(out, d)
		}
	}
	return out
}

// ComputeStatistics aggregates the full statistics tuple over the matched
// documents: overall count/total/average/min/max, per-type and per-mode
// buckets, and monthly credit/debit/net buckets.
func ComputeStatistics(docs []domain.Document) domain.Statistics {
	stats := domain.Statistics{
		Total:   decimal.Zero,
		Average: decimal.Zero,
		ByType:  make(map[string]domain.Bucket),
		ByMode:  make(map[string]domain.Bucket),
		Monthly: make(map[string]domain.MonthBucket),
	}
	if len(docs) == 0 {
		return stats
	}

	var minAmt, maxAmt decimal.Decimal
	for i, d := range docs {
		amt := d.Txn.Amount
		stats.Total = stats.Total.Add(amt)
		if i == 0 || amt.LessThan(minAmt) {
			minAmt = amt
		}
		if i == 0 || amt.GreaterThan(maxAmt) {
			maxAmt = amt
		}

		typ := string(d.Txn.Type)
		if typ == "" {
			typ = "UNKNOWN"
		}
		tb := stats.ByType[typ]
		tb.Count++
		tb.Total = tb.Total.Add(amt)
		stats.ByType[typ] = tb

		mode := d.Txn.Mode
		if mode == "" {
			mode = "UNKNOWN"
		}
		mb := stats.ByMode[mode]
		mb.Count++
		mb.Total = mb.Total.Add(amt)
		stats.ByMode[mode] = mb

		if !d.Txn.Date.IsZero() {
			key := d.Txn.Date.UTC().Format("2006-01")
			month := stats.Monthly[key]
			month.Count++
			if d.Txn.Type == domain.TypeCredit {
				month.CreditSum = month.CreditSum.Add(amt)
			} else {
				month.DebitSum = month.DebitSum.Add(amt)
			}
			month.Net = month.CreditSum.Sub(month.DebitSum)
			stats.Monthly[key] = month
		}
	}

	stats.Count = len(docs)
	stats.Average = stats.Total.DivRound(decimal.NewFromInt(int64(len(docs))), 2)
	stats.Min = &minAmt
	stats.Max = &maxAmt
	return stats
}

// sampleRepresentative picks a bounded sample for LLM context: the largest
// amounts, the smallest few, and a recent-first stratified walk across
// months until the budget fills.
func sampleRepresentative(docs []domain.Document, limit int) []domain.Document {
	if len(docs) <= limit {
		return sortedDocs(docs, &domain.SortSpec{Field: domain.SortByDate, Order: domain.OrderDesc})
	}

	byAmount := sortedDocs(docs, &domain.SortSpec{Field: domain.SortByAmount, Order: domain.OrderDesc})
	seen := make(map[string]bool, limit)
	var sample []domain.Document

	take := func(d domain.Document) {
		if len(sample) >= limit || seen[d.Txn.TxnID] {
			return
		}
		seen[d.Txn.TxnID] = true
		sample = append(sample, d)
	}

	topN := limit / 6
	if topN < 10 {
		topN = 10
	}
	for i := 0; i < topN && i < len(byAmount); i++ {
		take(byAmount[i])
	}
	for i := 0; i < 5 && i < len(byAmount); i++ {
		take(byAmount[len(byAmount)-1-i])
	}

	// Stratify the remainder across months, newest months first, one
	// document per month per round.
	byMonth := make(map[string][]domain.Document)
	var months []string
	for _, d := range sortedDocs(docs, &domain.SortSpec{Field: domain.SortByDate, Order: domain.OrderDesc}) {
		key := d.Txn.Date.UTC().Format("2006-01")
		if _, ok := byMonth[key]; !ok {
			months = append(months, key)
		}
		byMonth[key] = append(byMonth[key], d)
	}
	for round := 0; len(sample) < limit; round++ {
		advanced := false
		for _, m := range months {
			if round < len(byMonth[m]) {
				advanced = true
				take(byMonth[m][round])
				if len(sample) >= limit {
					break
				}
			}
		}
		if !advanced {
			break
		}
	}
	return sample
}

func sumAmounts(docs []domain.Document) decimal.Decimal {
	total := decimal.Zero
	for _, d := range docs {
		total = total.Add(d.Txn.Amount)
	}
	return total
}

func transactions(docs []domain.Document) []domain.Transaction {
	out := make([]domain.Transaction, len(docs))
	for i, d := range docs {
		out[i] = d.Txn
	}
	return out
}

func sortedTransactions(docs []domain.Document, spec *domain.SortSpec) []domain.Transaction {
	out := transactions(docs)
	sortTxns(out, spec)
	return out
}

func sortedDocs(docs []domain.Document, spec *domain.SortSpec) []domain.Document {
	out := make([]domain.Document, len(docs))
	copy(out, docs)
	sortDocs(out, spec)
	return out
}

// Ordering: the requested sort, defaulting to date descending. Amount ties
// break by date descending, then txnId ascending; date ties by txnId.
func sortDocs(docs []domain.Document, spec *domain.SortSpec) {
	sort.SliceStable(docs, func(i, j int) bool {
		return txnLess(docs[i].Txn, docs[j].Txn, spec)
	})
}

func sortTxns(txns []domain.Transaction, spec *domain.SortSpec) {
	sort.SliceStable(txns, func(i, j int) bool {
		return txnLess(txns[i], txns[j], spec)
	})
}

func txnLess(a, b domain.Transaction, spec *domain.SortSpec) bool {
	field, order := domain.SortByDate, domain.OrderDesc
	if spec != nil {
		field, order = spec.Field, spec.Order
	}
	if field == domain.SortByAmount {
		if !a.Amount.Equal(b.Amount) {
			if order == domain.OrderAsc {
				return a.Amount.LessThan(b.Amount)
			}
			return a.Amount.GreaterThan(b.Amount)
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.TxnID < b.TxnID
	}
	if !a.Date.Equal(b.Date) {
		if order == domain.OrderAsc {
			return a.Date.Before(b.Date)
		}
		return a.Date.After(b.Date)
	}
	return a.TxnID < b.TxnID
}
