package kvstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"vcregistry/pkg/platform/sentinel"
)

// Redis stores values as plain strings with no expiry.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

type RedisOption func(*Redis)

// WithKeyPrefix namespaces every key, for sharing a database between deployments.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", unavailable("redis get", err)
	}
	return v, nil
}

func (r *Redis) Put(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return unavailable("redis set", err)
	}
	return nil
}

// PutIfAbsent uses SETNX, which is atomic on the server.
func (r *Redis) PutIfAbsent(ctx context.Context, key, value string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(key), value, 0).Result()
	if err != nil {
		return false, unavailable("redis setnx", err)
	}
	return ok, nil
}

func (r *Redis) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

var _ ConditionalStore = (*Redis)(nil)
