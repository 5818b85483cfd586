package domain

import (
	"github.com/shopspring/decimal"
)

// QueryMode selects which execution pipeline answers a request.
type QueryMode string

const (
	ModeVectorSearch QueryMode = "VECTOR_SEARCH"
	ModeAnalytical   QueryMode = "ANALYTICAL"
	ModeStatistical  QueryMode = "STATISTICAL"
	ModeSmartFull    QueryMode = "SMART_FULL"
)

// Language tags for prompt routing.
type Language string

const (
	LangEnglish  Language = "en"
	LangHindi    Language = "hi-Deva"
	LangHinglish Language = "hi-Latn"
)

// Bucket aggregates one group (a type or a mode).
type Bucket struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// MonthBucket aggregates one calendar month.
type MonthBucket struct {
	Count     int             `json:"count"`
	CreditSum decimal.Decimal `json:"credit_sum"`
	DebitSum  decimal.Decimal `json:"debit_sum"`
	Net       decimal.Decimal `json:"net"`
}

// Statistics is the aggregation tuple over a filtered corpus.
type Statistics struct {
	Count   int                    `json:"count"`
	Total   decimal.Decimal        `json:"total"`
	Average decimal.Decimal        `json:"average"`
	Min     *decimal.Decimal       `json:"min,omitempty"`
	Max     *decimal.Decimal       `json:"max,omitempty"`
	ByType  map[string]Bucket      `json:"by_type,omitempty"`
	ByMode  map[string]Bucket      `json:"by_mode,omitempty"`
	Monthly map[string]MonthBucket `json:"monthly,omitempty"`
}

// Pagination describes the display page returned in a response.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalItems int  `json:"total_items"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// RagResponse is the wire shape of a completed query.
type RagResponse struct {
	QueryID       string        `json:"query_id"`
	Mode          QueryMode     `json:"mode"`
	Answer        string        `json:"answer"`
	MatchingCount int           `json:"matching_transactions_count"`
	Filters       []string      `json:"filters_applied"`
	Transactions  []Transaction `json:"transactions,omitempty"`
	Pagination    *Pagination   `json:"pagination,omitempty"`
	Statistics    *Statistics   `json:"statistics,omitempty"`
}
