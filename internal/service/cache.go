package service

import (
	"sync"
	"time"

	"finrag/internal/domain"
)

// cachedQuery keeps one answered query so that page>1 requests reuse the
// answer and the filtered set instead of re-invoking the model.
type cachedQuery struct {
	Mode          domain.QueryMode
	Answer        string
	Display       []domain.Transaction
	Filters       []string
	Statistics    *domain.Statistics
	MatchingCount int
	expires       time.Time
}

type queryCache struct {
	mu      sync.Mutex
	entries map[string]cachedQuery
	ttl     time.Duration
	now     func() time.Time
}

func newQueryCache(ttl time.Duration, now func() time.Time) *queryCache {
	if now == nil {
		now = time.Now
	}
	return &queryCache{entries: make(map[string]cachedQuery), ttl: ttl, now: now}
}

func (c *queryCache) get(key string) (cachedQuery, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweep()
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expires) {
		delete(c.entries, key)
		return cachedQuery{}, false
	}
	return e, true
}

func (c *queryCache) put(key string, e cachedQuery) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.expires = c.now().Add(c.ttl)
	c.entries[key] = e
}

// sweep drops expired entries; called under the lock.
func (c *queryCache) sweep() {
	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
}
