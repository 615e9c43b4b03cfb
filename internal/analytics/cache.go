package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const versionKeyPrefix = "analytics:version:"

// Cache stores analytics payloads in Redis under per-tenant versioned keys.
// Bumping a tenant's version orphans every key built before the bump.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func versionKey(tenantID uuid.UUID) string {
	return versionKeyPrefix + tenantID.String()
}

// Version returns the tenant's cache version, initialising it when missing.
func (c *Cache) Version(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := versionKey(tenantID)
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		// SETNX so a concurrent Bump is never overwritten.
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	return ver, err
}

// BuildKey composes a key for tenantID with the current version appended.
func (c *Cache) BuildKey(ctx context.Context, tenantID uuid.UUID, parts ...string) (string, error) {
	base := strings.Join(append([]string{"analytics", tenantID.String()}, parts...), ":")
	if c == nil || c.client == nil {
		return base, nil
	}
	ver, err := c.Version(ctx, tenantID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", base, ver), nil
}

// FetchJSON loads a cached value into dest or populates it using loader.
func FetchJSON[T any](ctx context.Context, c *Cache, key string, loader func(context.Context) (T, error)) (T, error) {
	var zero T
	if loader == nil {
		return zero, errors.New("analytics: loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var out T
		if err := json.Unmarshal(payload, &out); err == nil {
			return out, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return zero, err
	}
	value, err := loader(ctx)
	if err != nil {
		return zero, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return zero, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return zero, err
	}
	return value, nil
}

// Bump invalidates every cached payload of tenantID.
func (c *Cache) Bump(ctx context.Context, tenantID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, versionKey(tenantID)).Err()
}
