// Package cache wraps Redis for the catalog response cache and request
// counters.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Connect opens a client and verifies the server answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return client, nil
}

// Get returns the cached value and whether it was present.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Incr bumps a counter that resets window after its first increment.
func (c *RedisCache) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

// Key builds the cache key for a request: the path, "?", then every
// query parameter as k=v sorted and joined with "&".
func Key(path string, query url.Values) string {
	pairs := make([]string, 0, len(query))
	for k, values := range query {
		for _, v := range values {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)
	return path + "?" + strings.Join(pairs, "&")
}
