package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned when a key is absent.
var ErrCacheMiss = errors.New("cache: miss")

// KV is the key-value surface the dashboard's caches are built on. It is
// an interface so tests can substitute an in-memory map for Redis.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a value. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisKV implements KV over the global Redis client.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV returns a KV backed by the global Redis client. ConnectRedis
// must have been called first.
func NewRedisKV() *RedisKV {
	return &RedisKV{client: RedisClient}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}
