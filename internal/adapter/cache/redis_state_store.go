package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/postloom/social-auth/internal/store"
)

// RedisStateStore implements store.StateStore backed by Redis. Every entry
// carries its own TTL, mirroring the cookie semantics the store expects.
type RedisStateStore struct {
	client redis.UniversalClient
}

var _ store.StateStore = (*RedisStateStore)(nil)

// NewRedisStateStore constructs a Redis-backed state store.
func NewRedisStateStore(client redis.UniversalClient) *RedisStateStore {
	return &RedisStateStore{client: client}
}

// Get loads the value for key; the second return is false when absent.
func (s *RedisStateStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("load state: %w", err)
	}
	return value, true, nil
}

// Set persists value under key with the given TTL.
func (s *RedisStateStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

// Delete removes the key; deleting an absent key is not an error.
func (s *RedisStateStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}
