package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the product is not cached
var ErrMiss = errors.New("cache miss")

// ProductCache caches product detail reads
type ProductCache interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

type redisProductCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewProductCache creates a Redis backed ProductCache whose entries expire after ttl
func NewProductCache(client *redis.Client, ttl time.Duration) ProductCache {
	return &redisProductCache{client: client, ttl: ttl, prefix: "product"}
}

func (c *redisProductCache) key(id uuid.UUID) string {
	return fmt.Sprintf("%s:%s", c.prefix, id)
}

func (c *redisProductCache) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read product cache: %w", err)
	}

	product := &domain.Product{}
	if err := json.Unmarshal(data, product); err != nil {
		return nil, fmt.Errorf("failed to decode cached product: %w", err)
	}
	return product, nil
}

func (c *redisProductCache) Set(ctx context.Context, product *domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to encode product: %w", err)
	}

	if err := c.client.Set(ctx, c.key(product.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write product cache: %w", err)
	}
	return nil
}

// Invalidate drops a cached product; a missing entry is not an error
func (c *redisProductCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate product cache: %w", err)
	}
	return nil
}
