package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using redis for distributed storage.
// This is suitable for multi-instance deployments behind a load balancer.
type RedisStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedisStoreWithClient creates a namespace store over an existing client.
// The caller owns the client; sharing one connection pool across namespaces
// is the expected arrangement.
func NewRedisStoreWithClient(client *redis.Client, cfg Config) *RedisStore {
	return &RedisStore{
		client:    client,
		namespace: cfg.Namespace,
		ttl:       cfg.TTL,
	}
}

func (s *RedisStore) key(k string) string {
	return s.namespace + ":" + k
}

// Get retrieves a value from redis.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %q from redis: %w", key, err)
	}
	return data, nil
}

// Set stores a value in redis with the namespace TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %q in redis: %w", key, err)
	}
	return nil
}
