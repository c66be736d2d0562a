package refdata

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shadecraft/backend-blinds/internal/resilience"
)

// Cache wraps Redis helpers for JSON reference-data payloads. Entries expire
// after the configured TTL, bounding how stale a served rate or matrix can be
// after an admin update.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *resilience.Breaker
}

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// WithBreaker guards cache round trips with a circuit breaker. While the
// breaker is open reads behave as misses and writes are skipped, so a failing
// Redis degrades quotes to direct database reads instead of stalling them.
func (c *Cache) WithBreaker(b *resilience.Breaker) *Cache {
	c.breaker = b
	return c
}

func (c *Cache) allow(ctx context.Context) bool {
	return c.breaker == nil || c.breaker.Allow(ctx)
}

func (c *Cache) report(ctx context.Context, err error) {
	if c.breaker != nil {
		c.breaker.Report(ctx, err == nil)
	}
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	if !c.allow(ctx) {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			c.report(ctx, nil)
			return false, nil
		}
		c.report(ctx, err)
		return false, err
	}
	c.report(ctx, nil)
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if !c.allow(ctx) {
		return nil
	}
	err = c.client.Set(ctx, key, data, c.ttl).Err()
	c.report(ctx, err)
	return err
}

// Delete removes cached keys, the invalidation hook exposed to admin
// collaborators. Changed rates become visible at most one TTL window later on
// other instances even if a delete races a refill.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
