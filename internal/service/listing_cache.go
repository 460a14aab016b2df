package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/tradedock/internal/featureflags"
	"github.com/yourorg/tradedock/internal/infrastructure/redis"
	"github.com/yourorg/tradedock/internal/observability/metrics"
	"github.com/yourorg/tradedock/internal/reliability/circuitbreaker"
)

// ListingCache stores serialized listing results keyed by the normalized
// filter. Failures are absorbed: a broken cache degrades to the database.
type ListingCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Invalidate(ctx context.Context, prefix string)
}

// redisListingCache wraps the redis client with a circuit breaker so a
// misbehaving redis is bypassed instead of slowing every listing read.
type redisListingCache struct {
	client  *redis.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
	ttl     time.Duration
}

// NewRedisListingCache builds the cache. Returns nil (cache disabled) when
// the client is nil or the disable_listing_cache flag is set.
func NewRedisListingCache(client *redis.Client, logger *slog.Logger, ttl time.Duration) ListingCache {
	if client == nil || featureflags.Enabled("disable_listing_cache") {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisListingCache{
		client:  client,
		breaker: circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second),
		logger:  logger,
		ttl:     ttl,
	}
}

func (c *redisListingCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.breaker.AllowRequest() {
		metrics.ObserveCacheLookup("listing", "bypassed")
		return nil, false
	}

	val, err := c.client.Get(ctx, key)
	if err != nil {
		if redis.IsMiss(err) {
			c.breaker.RecordSuccess()
			metrics.ObserveCacheLookup("listing", "miss")
			return nil, false
		}
		c.breaker.RecordFailure()
		metrics.ObserveCacheLookup("listing", "error")
		c.logger.Warn("listing cache read failed", slog.String("error", err.Error()))
		return nil, false
	}

	c.breaker.RecordSuccess()
	metrics.ObserveCacheLookup("listing", "hit")
	return []byte(val), true
}

func (c *redisListingCache) Set(ctx context.Context, key string, value []byte) {
	if !c.breaker.AllowRequest() {
		return
	}
	if err := c.client.Set(ctx, key, value, c.ttl); err != nil {
		c.breaker.RecordFailure()
		c.logger.Warn("listing cache write failed", slog.String("error", err.Error()))
		return
	}
	c.breaker.RecordSuccess()
}

func (c *redisListingCache) Invalidate(ctx context.Context, prefix string) {
	if !c.breaker.AllowRequest() {
		return
	}
	if err := c.client.DeleteByPattern(ctx, prefix+"*"); err != nil {
		c.breaker.RecordFailure()
		c.logger.Warn("listing cache invalidation failed", slog.String("error", err.Error()))
		return
	}
	c.breaker.RecordSuccess()
}
