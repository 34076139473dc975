package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/fundledger/internal/infrastructure/metrics"
)

// Cache implements usecase.Cache using Redis. Values are opaque bytes; the
// balance service stores JSON snapshots and revision tokens under it.
type Cache struct {
	client  *redis.Client
	prefix  string
	metrics *metrics.Metrics
}

// NewCache creates a new Cache.
func NewCache(client *redis.Client) *Cache {
	return &Cache{
		client: client,
		prefix: "fundledger:",
	}
}

// WithMetrics enables hit/miss counters.
func (c *Cache) WithMetrics(m *metrics.Metrics) *Cache {
	c.metrics = m

	return c
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()

	if c.metrics != nil {
		if err != nil {
			c.metrics.CacheMisses.Inc()
		} else {
			c.metrics.CacheHits.Inc()
		}
	}

	return data, err
}

// Set stores a value with TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}
