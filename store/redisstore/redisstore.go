// Package redisstore implements [store.Store] on top of go-redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/adminGate/store"
	"github.com/redis/go-redis/v9"
)

// Store persists gate records in Redis. Keys are written verbatim; callers own
// namespacing.
type Store struct {
	redis redis.UniversalClient
}

// New creates a Redis-backed store.
func New(redisClient redis.UniversalClient) *Store {
	return &Store{redis: redisClient}
}

// NewFromURL parses a redis:// URL and returns the store plus the underlying client
// so the caller can Close it.
func NewFromURL(url string) (*Store, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	return New(client), client, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// Ping checks connectivity to Redis.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}
