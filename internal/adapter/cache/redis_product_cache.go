package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/redis/go-redis/v9"
)

type RedisProductCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisProductCache(rdb *redis.Client, ttl time.Duration) *RedisProductCache {
	return &RedisProductCache{rdb: rdb, ttl: ttl}
}

func productKey(id int64) string { return "product:" + strconv.FormatInt(id, 10) }

func (c *RedisProductCache) Get(ctx context.Context, id int64) (*domain.Product, bool, error) {
	raw, err := c.rdb.Get(ctx, productKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var p domain.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		// a stale shape is a miss; the next Set overwrites it
		return nil, false, nil
	}
	return &p, true, nil
}

func (c *RedisProductCache) Set(ctx context.Context, p *domain.Product) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, productKey(p.ID), raw, c.ttl).Err()
}

func (c *RedisProductCache) Delete(ctx context.Context, id int64) error {
	return c.rdb.Del(ctx, productKey(id)).Err()
}

var _ usecase.ProductCache = (*RedisProductCache)(nil)
