// Package cache provides a TTL response cache keyed by logical query, used to
// avoid duplicate upstream fetches within a freshness window. Two backends
// implement the same contract: an in-process map and Redis.
package cache

import (
	"context"
	"time"
)

// Fetcher loads the value for a key on a cache miss. It typically routes
// through the rate-limited gateway.
type Fetcher func(ctx context.Context) ([]byte, error)

// Store is the response cache contract. GetOrFetch returns the cached value
// when it is younger than ttl; otherwise it invokes fetch, stores a successful
// result, and returns it. Fetch errors are never cached, so a failed lookup is
// retried on the next call instead of being frozen in the cache.
type Store interface {
	GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch Fetcher) ([]byte, error)
	// Clear empties the store, forcing fresh fetches on the next cycle.
	Clear(ctx context.Context) error
}
