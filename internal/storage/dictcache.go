package storage

import (
	"context"
	"sync"
	"time"
)

// DictCacheTTL is the memoization window for dictionary id lookups (label
// names, label values, string values, units).
const DictCacheTTL = 120 * time.Second

type dictCacheEntry struct {
	id      int64
	expires time.Time
}

// DictCache memoizes a dictionary table's compare-and-create lookups so a
// hot label name or string value doesn't round-trip to the database on
// every sample. Safe for concurrent use.
type DictCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]dictCacheEntry
}

func NewDictCache() *DictCache {
	return &DictCache{ttl: DictCacheTTL, entries: make(map[string]dictCacheEntry)}
}

// Resolve returns the cached id for key, calling create on a miss or after
// expiry. create must itself be a compare-and-create (insert-or-ignore then
// select) so concurrent misses from different cache instances still
// converge on one row.
func (c *DictCache) Resolve(ctx context.Context, key string, create func(ctx context.Context) (int64, error)) (int64, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && time.Now().Before(e.expires) {
		c.mu.Unlock()
		return e.id, nil
	}
	c.mu.Unlock()

	id, err := create(ctx)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.entries[key] = dictCacheEntry{id: id, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return id, nil
}
