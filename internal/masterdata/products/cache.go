package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a Redis read-through cache for product records. Orchestrators
// look products up on every invoice line, so lookups are cached with a
// short TTL and invalidated on write.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(id int64) string {
	return fmt.Sprintf("products:%d", id)
}

// Fetch loads a cached product or populates it using the loader.
func (c *Cache) Fetch(ctx context.Context, id int64, loader func(context.Context) (Product, error)) (Product, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	payload, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if err == nil {
		var product Product
		if err := json.Unmarshal(payload, &product); err == nil {
			return product, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return Product{}, err
	}

	product, err := loader(ctx)
	if err != nil {
		return Product{}, err
	}
	raw, err := json.Marshal(product)
	if err != nil {
		return Product{}, err
	}
	if err := c.client.Set(ctx, cacheKey(id), raw, c.ttl).Err(); err != nil {
		return Product{}, err
	}
	return product, nil
}

// Invalidate drops the cached record after a write.
func (c *Cache) Invalidate(ctx context.Context, id int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	err := c.client.Del(ctx, cacheKey(id)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
