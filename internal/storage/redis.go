// ABOUTME: Redis-backed descriptor store for sharing export sessions between hosts.
// ABOUTME: Thin wrapper over go-redis using the shared descriptor codec.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/harperreed/healthexport/internal/export"
)

// RedisConfig holds connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore persists export descriptors in Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisStore{client: client}, nil
}

// Load returns nil, nil when key is absent.
func (s *RedisStore) Load(ctx context.Context, key string) (*export.Descriptor, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return export.DecodeDescriptor(raw)
}

// Store writes d under key without expiry.
func (s *RedisStore) Store(ctx context.Context, key string, d export.Descriptor) error {
	raw, err := export.EncodeDescriptor(d)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Keys lists descriptor keys using SCAN.
func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, export.KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
