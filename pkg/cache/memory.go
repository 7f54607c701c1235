package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// defaultMemoryEntries bounds the fallback cache; least recently used keys go first.
const defaultMemoryEntries = 1024

type memoryEntry struct {
	payload  []byte
	expireAt time.Time
}

// MemoryCache is the in-process fallback used when Redis is disabled. Values
// are stored as JSON so callers never share decoded state.
type MemoryCache struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return newMemoryCache(defaultMemoryEntries)
}

func newMemoryCache(size int) *MemoryCache {
	// per-key TTLs are checked on read, so the LRU itself never expires entries
	return &MemoryCache{lru: expirable.NewLRU[string, memoryEntry](size, nil, 0), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		return false, nil
	}
	if !e.expireAt.IsZero() && !c.now().Before(e.expireAt) {
		c.lru.Remove(key)
		return false, nil
	}
	if err := json.Unmarshal(e.payload, dst); err != nil {
		return false, nil
	}
	return true, nil
}

// Set with ttl <= 0 keeps the entry until it is evicted or cleared.
func (c *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	e := memoryEntry{payload: payload}
	if ttl > 0 {
		e.expireAt = c.now().Add(ttl)
	}
	c.lru.Add(key, e)
	return nil
}

func (c *MemoryCache) Clear(context.Context) error {
	c.lru.Purge()
	return nil
}
