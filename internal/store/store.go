// Package store holds the per-user corpora. The map of users is the sole
// shared mutable structure in the engine: entries are created at most once
// per user, reads go through an atomic pointer, and replace is a pointer
// swap so concurrent readers observe either the old or the new corpus in
// full, never a mix.
package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"finrag/internal/domain"
	"finrag/internal/vectorstore/memory"
)

// UserStore is one user's corpus: the documents list is the source of truth
// and the index is derived from it. Both are replaced together.
type UserStore struct {
	Index     *memory.Index
	Documents []domain.Document
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Status summarizes a store for the status endpoint.
type Status struct {
	Ingested  bool
	Count     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type entry struct {
	value      atomic.Pointer[UserStore]
	ingestMu   sync.Mutex
	lastAccess atomic.Int64
}

// Manager owns the user → store map.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*entry
	create  singleflight.Group
	ttl     time.Duration
	now     func() time.Time
}

// NewManager creates a store manager. ttl <= 0 disables idle eviction.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Manager) lookup(userID string) (*entry, bool) {
	m.mu.RLock()
	e, ok := m.entries[userID]
	m.mu.RUnlock()
	return e, ok
}

// getOrCreateEntry constructs at most one entry per user under concurrent
// callers.
func (m *Manager) getOrCreateEntry(userID string) *entry {
	if e, ok := m.lookup(userID); ok {
		return e
	}
	v, _, _ := m.create.Do(userID, func() (any, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if e, ok := m.entries[userID]; ok {
			return e, nil
		}
		e := &entry{}
		e.lastAccess.Store(m.now().UnixNano())
		m.entries[userID] = e
		return e, nil
	})
	return v.(*entry)
}

// Replace installs a new corpus for the user, atomically with respect to
// readers. The previous corpus, if any, is discarded whole.
func (m *Manager) Replace(userID string, docs []domain.Document, index *memory.Index) {
	e := m.getOrCreateEntry(userID)
	now := m.now()
	created := now
	if prev := e.value.Load(); prev != nil {
		created = prev.CreatedAt
	}
	st := &UserStore{
		Index:     index,
		Documents: docs,
		CreatedAt: created,
		UpdatedAt: now,
	}
	e.value.Store(st)
	e.lastAccess.Store(now.UnixNano())
}

// IngestLock serializes concurrent ingests for the same user. The returned
// function releases the lock.
func (m *Manager) IngestLock(userID string) func() {
	e := m.getOrCreateEntry(userID)
	e.ingestMu.Lock()
	return e.ingestMu.Unlock
}

// Snapshot returns the user's current corpus, or false if the user has not
// ingested.
func (m *Manager) Snapshot(userID string) (*UserStore, bool) {
	e, ok := m.lookup(userID)
	if !ok {
		return nil, false
	}
	st := e.value.Load()
	if st == nil {
		return nil, false
	}
	e.lastAccess.Store(m.now().UnixNano())
	return st, true
}

// StoreStatus reports ingestion state for the status endpoint.
func (m *Manager) StoreStatus(userID string) Status {
	st, ok := m.Snapshot(userID)
	if !ok {
		return Status{}
	}
	return Status{
		Ingested:  true,
		Count:     len(st.Documents),
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
	}
}

// Remove drops a user's store.
func (m *Manager) Remove(userID string) {
	m.mu.Lock()
	delete(m.entries, userID)
	m.mu.Unlock()
}

// Len returns the number of users with stores.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// EvictIdle removes stores whose last access is older than the TTL. Evicted
// users must re-ingest. Returns the number of evicted stores.
func (m *Manager) EvictIdle() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl).UnixNano()
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, e := range m.entries {
		if e.lastAccess.Load() < cutoff {
			delete(m.entries, id)
			evicted++
		}
	}
	return evicted
}

// StartEvictions runs the idle-store janitor until the context is cancelled.
func (m *Manager) StartEvictions(ctx context.Context, every time.Duration, onEvict func(int)) {
	if m.ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.EvictIdle(); n > 0 && onEvict != nil {
					onEvict(n)
				}
			}
		}
	}()
}
