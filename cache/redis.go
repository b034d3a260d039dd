package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hypnotizedent/printshop-os-sub010/pricing"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// RedisQuoteCache shares quotes between service instances. Entries live under
// {prefix}quote:{generation}:{key}; InvalidateAll increments the generation and the
// orphaned entries expire on their own TTL.
type RedisQuoteCache struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
	sf     singleflight.Group
}

func NewRedisQuoteCache(rc *redis.Client, prefix string, ttl time.Duration) *RedisQuoteCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisQuoteCache{rc: rc, prefix: prefix, ttl: ttl}
}

func (c *RedisQuoteCache) genKey() string    { return c.prefix + "quote:gen" }
func (c *RedisQuoteCache) hitsKey() string   { return c.prefix + "quote:stats:hits" }
func (c *RedisQuoteCache) missesKey() string { return c.prefix + "quote:stats:misses" }

func (c *RedisQuoteCache) entryKey(gen int64, key string) string {
	return fmt.Sprintf("%squote:%d:%s", c.prefix, gen, key)
}

func (c *RedisQuoteCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rc.Get(ctx, c.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisQuoteCache) read(ctx context.Context, k string) (pricing.QuoteResult, bool) {
	bs, err := c.rc.Get(ctx, k).Bytes()
	if err != nil || len(bs) == 0 {
		if err != nil && !errors.Is(err, redis.Nil) {
			log.Printf("quote cache: read %s failed: %v", k, err)
		}
		return pricing.QuoteResult{}, false
	}
	var out pricing.QuoteResult
	if err := json.Unmarshal(bs, &out); err != nil {
		log.Printf("quote cache: corrupt entry %s: %v", k, err)
		return pricing.QuoteResult{}, false
	}
	return out, true
}

// GetOrCompute falls back to compute when redis is unreachable; a cache outage never fails a quote.
func (c *RedisQuoteCache) GetOrCompute(ctx context.Context, key string, compute ComputeFunc) (pricing.QuoteResult, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		log.Printf("quote cache: generation lookup failed, computing uncached: %v", err)
		res, _, err := compute(ctx)
		return res, false, err
	}

	k := c.entryKey(gen, key)
	if v, ok := c.read(ctx, k); ok {
		_ = c.rc.Incr(ctx, c.hitsKey()).Err()
		return v, true, nil
	}

	fctx := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(k, func() (interface{}, error) {
		if v, ok := c.read(fctx, k); ok {
			_ = c.rc.Incr(fctx, c.hitsKey()).Err()
			return flight{res: v, hit: true}, nil
		}
		_ = c.rc.Incr(fctx, c.missesKey()).Err()

		res, store, err := compute(fctx)
		if err != nil {
			return nil, err
		}
		if store {
			if bs, err := json.Marshal(res); err == nil {
				if err := c.rc.Set(fctx, k, bs, c.ttl).Err(); err != nil {
					log.Printf("quote cache: write %s failed: %v", k, err)
				}
			}
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

func (c *RedisQuoteCache) InvalidateAll(ctx context.Context) error {
	if err := c.rc.Incr(ctx, c.genKey()).Err(); err != nil {
		return fmt.Errorf("failed to bump quote cache generation: %w", err)
	}
	return nil
}

func (c *RedisQuoteCache) Stats(ctx context.Context) (Stats, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read quote cache generation: %w", err)
	}

	var size int64
	iter := c.rc.Scan(ctx, 0, fmt.Sprintf("%squote:%d:*", c.prefix, gen), 500).Iterator()
	for iter.Next(ctx) {
		size++
	}
	if err := iter.Err(); err != nil {
		return Stats{}, fmt.Errorf("failed to count quote cache entries: %w", err)
	}

	hits, err := counter(ctx, c.rc, c.hitsKey())
	if err != nil {
		return Stats{}, err
	}
	misses, err := counter(ctx, c.rc, c.missesKey())
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		Provider: ProviderRedis,
		Size:     size,
		Hits:     hits,
		Misses:   misses,
		HitRate:  hitRate(hits, misses),
	}, nil
}

func counter(ctx context.Context, rc *redis.Client, key string) (int64, error) {
	n, err := rc.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return n, nil
}
