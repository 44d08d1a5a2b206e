package inventory

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	stockCacheKeyPrefix = "storefront:stock:"
	defaultStockTTL     = time.Minute
)

// StockCache caches per-product stock counts for catalogue listings.
// Allocation never reads it; it is advisory display data only.
type StockCache interface {
	Get(ctx context.Context, productID string) (int64, bool)
	Set(ctx context.Context, productID string, stock int64)
	Invalidate(ctx context.Context, productID string)
}

// NopStockCache disables caching.
type NopStockCache struct{}

// Get always misses.
func (NopStockCache) Get(context.Context, string) (int64, bool) { return 0, false }

// Set does nothing.
func (NopStockCache) Set(context.Context, string, int64) {}

// Invalidate does nothing.
func (NopStockCache) Invalidate(context.Context, string) {}

// RedisStockCache stores stock counts in redis with a short TTL.
type RedisStockCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStockCache wraps a redis client. A nil client yields nil.
func NewRedisStockCache(client *redis.Client) *RedisStockCache {
	if client == nil {
		return nil
	}
	return &RedisStockCache{client: client, ttl: defaultStockTTL}
}

// Get returns the cached count for a product.
func (c *RedisStockCache) Get(ctx context.Context, productID string) (int64, bool) {
	raw, err := c.client.Get(ctx, stockCacheKeyPrefix+productID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).Debug("stock cache: get failed")
		}
		return 0, false
	}
	n, errParse := strconv.ParseInt(raw, 10, 64)
	if errParse != nil {
		return 0, false
	}
	return n, true
}

// Set stores a count for a product.
func (c *RedisStockCache) Set(ctx context.Context, productID string, stock int64) {
	if err := c.client.Set(ctx, stockCacheKeyPrefix+productID, stock, c.ttl).Err(); err != nil {
		log.WithError(err).Debug("stock cache: set failed")
	}
}

// Invalidate drops the cached count for a product.
func (c *RedisStockCache) Invalidate(ctx context.Context, productID string) {
	if err := c.client.Del(ctx, stockCacheKeyPrefix+productID).Err(); err != nil {
		log.WithError(err).Warn("stock cache: invalidate failed")
	}
}

// StockCounts resolves stock for products, consulting the cache first.
func StockCounts(ctx context.Context, cache StockCache, count func(ctx context.Context, ids []string) (map[string]int64, error), productIDs []string) (map[string]int64, error) {
	if cache == nil {
		cache = NopStockCache{}
	}
	out := make(map[string]int64, len(productIDs))
	var missing []string
	for _, id := range productIDs {
		if n, ok := cache.Get(ctx, id); ok {
			out[id] = n
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}
	fresh, err := count(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, id := range missing {
		out[id] = fresh[id]
		cache.Set(ctx, id, fresh[id])
	}
	return out, nil
}
