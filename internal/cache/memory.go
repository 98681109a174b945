package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxEntries bounds the in-memory cache. Keys include limit/offset
// parameters so the key space can grow without a bound otherwise.
const DefaultMaxEntries = 1024

type entry struct {
	body     []byte
	storedAt time.Time
}

// Memory is an in-process Store. Staleness is checked lazily on read; there is
// no background eviction goroutine. When the entry count exceeds maxEntries
// the oldest entry is evicted on write.
type Memory struct {
	maxEntries int

	mu sync.Mutex
	m  map[string]entry
}

// NewMemory creates a Memory cache. maxEntries <= 0 selects DefaultMaxEntries.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		maxEntries: maxEntries,
		m:          make(map[string]entry),
	}
}

// GetOrFetch implements Store.
func (c *Memory) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch Fetcher) ([]byte, error) {
	now := time.Now()

	c.mu.Lock()
	if e, ok := c.m[key]; ok {
		if now.Sub(e.storedAt) < ttl {
			c.mu.Unlock()
			return e.body, nil
		}
		delete(c.m, key)
	}
	c.mu.Unlock()

	body, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.m) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.m[key] = entry{body: body, storedAt: time.Now()}
	c.mu.Unlock()

	return body, nil
}

// Clear implements Store.
func (c *Memory) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.m = make(map[string]entry)
	c.mu.Unlock()
	return nil
}

// Len returns the current entry count.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

func (c *Memory) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.m {
		if oldestKey == "" || e.storedAt.Before(oldest) {
			oldestKey = k
			oldest = e.storedAt
		}
	}
	if oldestKey != "" {
		delete(c.m, oldestKey)
	}
}

// Compile-time interface check.
var _ Store = (*Memory)(nil)
