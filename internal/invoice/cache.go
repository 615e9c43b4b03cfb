package invoice

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDocumentCache keeps rendered documents in Redis. Keys embed the
// invoice and settings revision, so stale entries simply age out.
type RedisDocumentCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDocumentCache builds the cache. A nil client disables it.
func NewRedisDocumentCache(client *redis.Client, ttl time.Duration) *RedisDocumentCache {
	return &RedisDocumentCache{client: client, ttl: ttl}
}

// Get loads a cached body.
func (c *RedisDocumentCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	body, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

// Set stores body under key.
func (c *RedisDocumentCache) Set(ctx context.Context, key string, body []byte) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, key, body, c.ttl).Err()
}
