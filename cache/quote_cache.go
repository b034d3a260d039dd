// Package cache memoizes quote calculations keyed by normalized request and rule-set fingerprint.
package cache

import (
	"context"
	"time"

	"github.com/hypnotizedent/printshop-os-sub010/pricing"
)

// Provider names
const (
	ProviderMemory = "memory"
	ProviderRedis  = "redis"
)

// DefaultTTL is how long a quote stays cached when no TTL is configured.
const DefaultTTL = 5 * time.Minute

// ComputeFunc produces a quote on a miss. store=false keeps the result out of the cache.
type ComputeFunc func(ctx context.Context) (result pricing.QuoteResult, store bool, err error)

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Provider string  `json:"provider"`
	Size     int64   `json:"size"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
}

// QuoteCache is safe for concurrent use. Concurrent misses on one key run compute once.
type QuoteCache interface {
	GetOrCompute(ctx context.Context, key string, compute ComputeFunc) (pricing.QuoteResult, bool, error)
	InvalidateAll(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
