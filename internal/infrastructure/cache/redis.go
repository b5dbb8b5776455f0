// Package cache provides the Redis-backed product read cache.
package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"farmapos/internal/core/id"
	"farmapos/internal/domain/product"
)

// ProductCache caches catalog entries in Redis keyed by product id.
type ProductCache struct {
	client *redis.Client
}

var _ product.Cache = (*ProductCache)(nil)

// NewProductCache connects a product cache to the given Redis instance.
func NewProductCache(addr, password string, db int) *ProductCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &ProductCache{client: client}
}

func (c *ProductCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *ProductCache) Close() error {
	return c.client.Close()
}

func key(productID id.ID) string {
	return "product:" + productID.String()
}

func (c *ProductCache) Get(ctx context.Context, productID id.ID) (*product.Product, bool, error) {
	val, err := c.client.Get(ctx, key(productID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var p product.Product
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

func (c *ProductCache) Set(ctx context.Context, p *product.Product, ttl time.Duration) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(p.ID), payload, ttl).Err()
}

func (c *ProductCache) Invalidate(ctx context.Context, productID id.ID) error {
	return c.client.Del(ctx, key(productID)).Err()
}

// Noop is used when Redis is not configured; every lookup misses.
type Noop struct{}

var _ product.Cache = Noop{}

func (Noop) Get(ctx context.Context, productID id.ID) (*product.Product, bool, error) {
	return nil, false, nil
}

func (Noop) Set(ctx context.Context, p *product.Product, ttl time.Duration) error {
	return nil
}

func (Noop) Invalidate(ctx context.Context, productID id.ID) error {
	return nil
}
