package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 500

// RedisStore is a Store backed by Redis. Keys are namespaced so several
// deployments can share one Redis database.
type RedisStore struct {
	rdb       redis.UniversalClient
	namespace string
}

// NewRedisStore wraps an existing go-redis client
func NewRedisStore(rdb redis.UniversalClient, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "securelife"
	}
	return &RedisStore{rdb: rdb, namespace: namespace}
}

func (s *RedisStore) key(k string) string {
	return s.namespace + ":" + k
}

// Get retrieves a value
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return b, true, nil
}

// Set stores a value with TTL (0 means no expiry)
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.rdb.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key under prefix using SCAN, never KEYS
func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := s.key(prefix) + "*"
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete %d keys under %s: %w", len(keys), prefix, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
