package kvstore

import (
	"context"
	"fmt"

	"vcregistry/internal/platform/config"
	"vcregistry/internal/platform/database"
	platformredis "vcregistry/internal/platform/redis"
	"vcregistry/migrations"
)

// Backend is an opened store together with the connection it owns.
// At most one of Redis and DB is set.
type Backend struct {
	Store ConditionalStore
	Name  string
	Redis *platformredis.Client
	DB    *database.Pool
}

// Close releases the backend's connection.
func (b *Backend) Close() error {
	switch {
	case b.Redis != nil:
		return b.Redis.Close()
	case b.DB != nil:
		return b.DB.Close()
	}
	return nil
}

// Health probes the backend.
func (b *Backend) Health(ctx context.Context) error {
	if hc, ok := b.Store.(HealthChecker); ok {
		return hc.Health(ctx)
	}
	return nil
}

// Open connects the backend selected by KV_BACKEND. SQL backends have their
// schema migrated before the store is returned.
func Open(ctx context.Context, cfg config.Server, redisMetrics *platformredis.PoolMetrics) (*Backend, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return &Backend{Store: NewMemory(), Name: config.BackendMemory}, nil

	case config.BackendRedis:
		client, err := platformredis.New(ctx, cfg.Redis, redisMetrics)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, fmt.Errorf("redis backend selected without REDIS_URL")
		}
		return &Backend{Store: NewRedis(client.Client, WithKeyPrefix(cfg.Redis.KeyPrefix)), Name: config.BackendRedis, Redis: client}, nil

	case config.BackendPostgres:
		pool, err := database.OpenPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if pool == nil {
			return nil, fmt.Errorf("postgres backend selected without DATABASE_URL")
		}
		if err := migrations.Up(ctx, pool.DB()); err != nil {
			_ = pool.Close()
			return nil, err
		}
		return &Backend{Store: NewPostgres(pool.DB()), Name: config.BackendPostgres, DB: pool}, nil

	case config.BackendSQLite:
		pool, err := database.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := migrations.Up(ctx, pool.DB()); err != nil {
			_ = pool.Close()
			return nil, err
		}
		return &Backend{Store: NewSQLite(pool.DB()), Name: config.BackendSQLite, DB: pool}, nil
	}
	return nil, fmt.Errorf("unknown KV_BACKEND %q", cfg.Store.Backend)
}
