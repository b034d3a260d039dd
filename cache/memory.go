package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hypnotizedent/printshop-os-sub010/pricing"
	"golang.org/x/sync/singleflight"
)

type flight struct {
	res pricing.QuoteResult
	hit bool
}

type memoryEntry struct {
	value   pricing.QuoteResult
	expires time.Time
}

// MemoryQuoteCache keeps quotes in process memory. Entries are keyed under the current
// generation; InvalidateAll moves to a new generation so in-flight computations started
// before the invalidation can never be served afterwards.
type MemoryQuoteCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	gen     uint64
	ttl     time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	sf  singleflight.Group
	now func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryQuoteCache creates the cache and, when cleanupInterval > 0, a janitor that drops expired entries.
func NewMemoryQuoteCache(ttl, cleanupInterval time.Duration) *MemoryQuoteCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &MemoryQuoteCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	}
	return c
}

func (c *MemoryQuoteCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryQuoteCache) deleteExpired() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
}

// Close stops the janitor.
func (c *MemoryQuoteCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *MemoryQuoteCache) lookup(key string) (pricing.QuoteResult, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[genKey(c.gen, key)]
	if !ok || !c.now().Before(e.expires) {
		return pricing.QuoteResult{}, c.gen, false
	}
	return e.value.Clone(), c.gen, true
}

func (c *MemoryQuoteCache) store(gen uint64, key string, v pricing.QuoteResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.entries[genKey(gen, key)] = memoryEntry{value: v.Clone(), expires: c.now().Add(c.ttl)}
}

func (c *MemoryQuoteCache) GetOrCompute(ctx context.Context, key string, compute ComputeFunc) (pricing.QuoteResult, bool, error) {
	v, gen, ok := c.lookup(key)
	if ok {
		c.hits.Add(1)
		return v, true, nil
	}

	// the flight outlives any one caller; waiters give up on their own ctx only
	fctx := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(genKey(gen, key), func() (interface{}, error) {
		// another flight may have stored it between the lookup and here
		if v, _, ok := c.lookup(key); ok {
			c.hits.Add(1)
			return flight{res: v, hit: true}, nil
		}
		c.misses.Add(1)
		res, store, err := compute(fctx)
		if err != nil {
			return nil, err
		}
		if store {
			c.store(gen, key, res)
		}
		return flight{res: res}, nil
	})
	select {
	case <-ctx.Done():
		return pricing.QuoteResult{}, false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return pricing.QuoteResult{}, false, r.Err
		}
		f := r.Val.(flight)
		return f.res.Clone(), f.hit, nil
	}
}

func (c *MemoryQuoteCache) InvalidateAll(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = make(map[string]memoryEntry)
	return nil
}

func (c *MemoryQuoteCache) Stats(_ context.Context) (Stats, error) {
	now := c.now()
	c.mu.RLock()
	var size int64
	for _, e := range c.entries {
		if now.Before(e.expires) {
			size++
		}
	}
	c.mu.RUnlock()

	hits, misses := c.hits.Load(), c.misses.Load()
	return Stats{
		Provider: ProviderMemory,
		Size:     size,
		Hits:     hits,
		Misses:   misses,
		HitRate:  hitRate(hits, misses),
	}, nil
}

func genKey(gen uint64, key string) string {
	return strconv.FormatUint(gen, 10) + ":" + key
}
