package storage

import (
	"context"
	"errors"
	"time"

	pkgredis "github.com/angelmondragon/storefront-gateway/pkg/redis"
)

type redisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	StateKey(key string) string
}

// RedisStore namespaces every key under the redis client's state prefix.
type RedisStore struct {
	client redisClient
}

func NewRedisStore(client *pkgredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.client.StateKey(key))
	if errors.Is(err, pkgredis.ErrNil) {
		return "", ErrNotFound
	}
	return value, err
}

func (r *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, r.client.StateKey(key), value, ttl)
}

func (r *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, r.client.StateKey(key), value, ttl)
}

func (r *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return r.client.IncrWithTTL(ctx, r.client.StateKey(key), ttl)
}

func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	namespaced := make([]string, 0, len(keys))
	for _, key := range keys {
		namespaced = append(namespaced, r.client.StateKey(key))
	}
	return r.client.Del(ctx, namespaced...)
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}
