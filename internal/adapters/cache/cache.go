// Package cache keeps computed dashboard summaries in Redis so repeated
// dashboard loads skip the aggregate queries. Uploads invalidate it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/okian/perfboard/internal/domain/types"
)

const (
	defaultPrefix = "perfboard:"
	defaultTTL    = 5 * time.Minute
	scanCount     = 100
	allMonthsKey  = "all"
	generationKey = "gen"
)

// SummaryCache stores unfiltered summaries keyed by reference date ("" for all months).
//
// Entries belong to a generation. Readers fetch the generation before they
// compute a summary and write under it; Invalidate moves to a new
// generation, so a summary computed from pre-upload data and written after
// the invalidation is never served.
type SummaryCache interface {
	Generation(ctx context.Context) (uint64, error)
	Get(ctx context.Context, gen uint64, referenceDate string) (*types.DashboardSummary, bool, error)
	Set(ctx context.Context, gen uint64, referenceDate string, s *types.DashboardSummary) error
	Invalidate(ctx context.Context) error
}

// Option configures a RedisCache.
type Option func(*RedisCache)

// WithPrefix namespaces every key.
func WithPrefix(p string) Option {
	return func(c *RedisCache) {
		if p != "" {
			c.prefix = p
		}
	}
}

// WithTTL sets how long a summary stays cached.
func WithTTL(d time.Duration) Option {
	return func(c *RedisCache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// RedisCache is a SummaryCache backed by Redis string keys holding JSON.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ SummaryCache = (*RedisCache)(nil)

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, opts ...Option) *RedisCache {
	c := &RedisCache{client: client, prefix: defaultPrefix, ttl: defaultTTL}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Dial connects to addr and pings it.
func Dial(ctx context.Context, addr, password string, db int, opts ...Option) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache.Dial %s: %w", addr, err)
	}
	return NewRedis(client, opts...), nil
}

// Close closes the client.
func (c *RedisCache) Close() error { return c.client.Close() }

// Key returns the Redis key for a reference date within a generation.
func (c *RedisCache) Key(gen uint64, referenceDate string) string {
	if referenceDate == "" {
		referenceDate = allMonthsKey
	}
	return c.prefix + "summary:" + strconv.FormatUint(gen, 10) + ":" + referenceDate
}

// Generation implements SummaryCache. A missing counter is generation 0.
func (c *RedisCache) Generation(ctx context.Context) (uint64, error) {
	gen, err := c.client.Get(ctx, c.prefix+generationKey).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache.Generation: %w", err)
	}
	return gen, nil
}

// Get implements SummaryCache.
func (c *RedisCache) Get(ctx context.Context, gen uint64, referenceDate string) (*types.DashboardSummary, bool, error) {
	raw, err := c.client.Get(ctx, c.Key(gen, referenceDate)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache.Get: %w", err)
	}
	var s types.DashboardSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("cache.Get: decode: %w", err)
	}
	return &s, true, nil
}

// Set implements SummaryCache.
func (c *RedisCache) Set(ctx context.Context, gen uint64, referenceDate string, s *types.DashboardSummary) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("cache.Set: encode: %w", err)
	}
	if err := c.client.Set(ctx, c.Key(gen, referenceDate), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache.Set: %w", err)
	}
	return nil
}

// Invalidate starts a new generation and drops every cached summary.
// Keys of older generations that are written later expire with the TTL.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.prefix+generationKey).Err(); err != nil {
		return fmt.Errorf("cache.Invalidate: %w", err)
	}
	iter := c.client.Scan(ctx, 0, c.prefix+"summary:*", scanCount).Iterator()
	pipe := c.client.Pipeline()
	n := 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		n++
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache.Invalidate: scan: %w", err)
	}
	if n == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache.Invalidate: %w", err)
	}
	return nil
}

// Nop is a SummaryCache that never stores anything.
type Nop struct{}

var _ SummaryCache = Nop{}

// Generation is always 0.
func (Nop) Generation(context.Context) (uint64, error) {
	return 0, nil
}

// Get always misses.
func (Nop) Get(context.Context, uint64, string) (*types.DashboardSummary, bool, error) {
	return nil, false, nil
}

// Set discards s.
func (Nop) Set(context.Context, uint64, string, *types.DashboardSummary) error {
	return nil
}

// Invalidate does nothing.
func (Nop) Invalidate(context.Context) error {
	return nil
}
