// Package history persists the per-user conversational log. The backing
// store is opaque to the engine: writes are best-effort and never fail a
// query.
package history

import (
	"context"
	"time"
)

// Entry is one recorded interaction.
type Entry struct {
	ID            int64     `json:"id,omitempty"`
	UserID        string    `json:"user_id"`
	QueryID       string    `json:"query_id"`
	Prompt        string    `json:"query"`
	Answer        string    `json:"response"`
	Mode          string    `json:"mode"`
	MatchingCount int       `json:"matching_transactions_count"`
	CreatedAt     time.Time `json:"timestamp"`
}

// Store is the append-only history contract.
type Store interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context, userID string, limit int) ([]Entry, error)
	Clear(ctx context.Context, userID string) (int64, error)
	Close() error
}

// Open returns a store for the connection string: empty means history is a
// no-op, anything else is treated as a SQLite DSN.
func Open(url string) (Store, error) {
	if url == "" {
		return Noop{}, nil
	}
	return openSQLite(url)
}

// Noop discards writes and lists nothing.
type Noop struct{}

func (Noop) Append(context.Context, Entry) error { return nil }

func (Noop) List(context.Context, string, int) ([]Entry, error) { return nil, nil }

func (Noop) Clear(context.Context, string) (int64, error) { return 0, nil }

func (Noop) Close() error { return nil }
