// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package contextstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBackend is the fast-KV backend for inline context documents (spec
// §4.1). Blob placement is delegated to a second Backend (typically
// BadgerBackend); RedisBackend only ever serves the PutInline/GetInline
// half of the interface, and its PutBlob/GetBlob are unused in practice
// when composed via CompositeBackend below.
type RedisBackend struct {
	client *redis.Client
	logger zerolog.Logger
}

// RedisConfig mirrors the teacher's cache.RedisConfig shape.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisBackend dials Redis and verifies connectivity with a Ping.
func NewRedisBackend(cfg RedisConfig, logger zerolog.Logger) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	logger.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("contextstore: connected to redis")
	return &RedisBackend{client: client, logger: logger}, nil
}

// NewRedisBackendFromClient wraps an already-constructed client, used by
// tests running against miniredis.
func NewRedisBackendFromClient(client *redis.Client, logger zerolog.Logger) *RedisBackend {
	return &RedisBackend{client: client, logger: logger}
}

func (b *RedisBackend) PutInline(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return b.client.Set(ctx, key, payload, ttl).Err()
}

func (b *RedisBackend) GetInline(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := b.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// PutBlob/GetBlob are present so RedisBackend alone satisfies Backend (for
// tests and small deployments that skip Badger entirely); they use the same
// keyspace as inline, under a "blob:" prefix, with Redis acting as its own
// blob store.
func (b *RedisBackend) PutBlob(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return b.client.Set(ctx, "blob:"+key, payload, ttl).Err()
}

func (b *RedisBackend) GetBlob(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := b.client.Get(ctx, "blob:"+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Close releases the underlying Redis connection pool.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// HealthCheck reports whether Redis is reachable.
func (b *RedisBackend) HealthCheck(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// CompositeBackend routes inline operations to a fast-KV Backend and blob
// operations to a separate blob Backend, matching the Context Store's
// documented two-tier storage (spec §4.1: fast-KV for small, object store
// for large).
type CompositeBackend struct {
	Inline Backend
	Blob   Backend
}

func (c CompositeBackend) PutInline(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return c.Inline.PutInline(ctx, key, payload, ttl)
}

func (c CompositeBackend) GetInline(ctx context.Context, key string) ([]byte, bool, error) {
	return c.Inline.GetInline(ctx, key)
}

func (c CompositeBackend) PutBlob(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return c.Blob.PutBlob(ctx, key, payload, ttl)
}

func (c CompositeBackend) GetBlob(ctx context.Context, key string) ([]byte, bool, error) {
	return c.Blob.GetBlob(ctx, key)
}
