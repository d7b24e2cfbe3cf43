// Package cache stores rendered task listings in Redis and invalidates them
// after mutations.
//
// Invalidation bumps a generation counter that is part of every listing key,
// so stale entries are never read again and simply expire.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mtlprog/casegrid/internal/domain"
)

const (
	keyPrefix     = "casegrid:tasks"
	generationKey = keyPrefix + ":generation"
)

// RedisCache is a listing cache backed by Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing client. Entries live for ttl.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Dial parses a redis:// URL, connects and pings the server.
func Dial(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisCache(client, ttl), nil
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cache generation: %w", err)
	}
	return gen, nil
}

func (c *RedisCache) key(gen int64, q domain.TaskQuery) string {
	return keyPrefix + ":" + strconv.FormatInt(gen, 10) + ":" + q.Key()
}

// Get returns the cached page for q. The boolean is false on a miss. The
// returned generation must be passed to Set, so a listing read before an
// invalidation is never stored under the newer generation.
func (c *RedisCache) Get(ctx context.Context, q domain.TaskQuery) (*domain.TaskPage, int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	raw, err := c.client.Get(ctx, c.key(gen, q)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, fmt.Errorf("read cached listing: %w", err)
	}

	var page domain.TaskPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, gen, false, fmt.Errorf("decode cached listing: %w", err)
	}
	return &page, gen, true, nil
}

// Set stores page under generation gen.
func (c *RedisCache) Set(ctx context.Context, q domain.TaskQuery, gen int64, page *domain.TaskPage) error {
	raw, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("encode listing: %w", err)
	}

	if err := c.client.Set(ctx, c.key(gen, q), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write cached listing: %w", err)
	}
	return nil
}

// Invalidate makes every cached listing unreachable.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("bump cache generation: %w", err)
	}
	return nil
}

// Nop never hits and ignores writes. It is used when no Redis URL is configured.
type Nop struct{}

func (Nop) Get(context.Context, domain.TaskQuery) (*domain.TaskPage, int64, bool, error) {
	return nil, 0, false, nil
}

func (Nop) Set(context.Context, domain.TaskQuery, int64, *domain.TaskPage) error { return nil }

func (Nop) Invalidate(context.Context) error { return nil }
