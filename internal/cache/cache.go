package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyBook holds a cached book read model: book:{book_id}.
	KeyBook = "book:%s"

	DefaultTTL = 5 * time.Minute
)

// Cache stores read models by id. It never serves writes.
type Cache[T any] interface {
	Get(ctx context.Context, id string) (T, bool, error)
	Set(ctx context.Context, id string, value T) error
	Invalidate(ctx context.Context, ids ...string) error
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Redis keeps JSON encoded values under a key built from keyFormat and the id.
type Redis[T any] struct {
	client    redis.UniversalClient
	keyFormat string
	ttl       time.Duration
}

func NewRedis[T any](client redis.UniversalClient, keyFormat string, ttl time.Duration) *Redis[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis[T]{client: client, keyFormat: keyFormat, ttl: ttl}
}

func (c *Redis[T]) key(id string) string {
	return fmt.Sprintf(c.keyFormat, id)
}

func (c *Redis[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var value T
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return value, false, nil
	}
	if err != nil {
		return value, false, fmt.Errorf("get %s: %w", c.key(id), err)
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, false, fmt.Errorf("decode %s: %w", c.key(id), err)
	}
	return value, true, nil
}

func (c *Redis[T]) Set(ctx context.Context, id string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key(id), err)
	}
	if err := c.client.Set(ctx, c.key(id), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", c.key(id), err)
	}
	return nil
}

func (c *Redis[T]) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete %d keys: %w", len(keys), err)
	}
	return nil
}

// Noop misses on every read.
type Noop[T any] struct{}

func (Noop[T]) Get(context.Context, string) (T, bool, error) {
	var zero T
	return zero, false, nil
}

func (Noop[T]) Set(context.Context, string, T) error { return nil }

func (Noop[T]) Invalidate(context.Context, ...string) error { return nil }
