// Package cache memoizes analyses by dataset fingerprint and options, in
// Redis or in process memory.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"insightforge/domain/core"
	"insightforge/domain/stats"
	"insightforge/internal/errors"
	"insightforge/ports"
)

// KeyPrefix namespaces every cache entry
const KeyPrefix = "insightforge:analysis:"

// Key builds the cache key for a dataset fingerprint and an options hash
func Key(fingerprint, options core.Hash) string {
	return KeyPrefix + fingerprint.String() + ":" + options.Short()
}

// RedisCache stores analyses as JSON strings with a TTL
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis wraps an existing client; ttl <= 0 stores without expiry
func NewRedis(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// NewRedisClient opens a client for addr and verifies it with a ping
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.ExternalServiceError("redis", err)
	}
	return client, nil
}

var _ ports.ResultCache = (*RedisCache)(nil)

// Get returns the cached analysis, or ok=false on a miss
func (c *RedisCache) Get(ctx context.Context, key string) (*stats.Analysis, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, errors.ExternalServiceError("redis", err)
	}

	var analysis stats.Analysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		// a corrupt entry behaves like a miss and gets overwritten
		return nil, false, nil
	}
	return &analysis, true, nil
}

// Set stores the analysis under key
func (c *RedisCache) Set(ctx context.Context, key string, analysis *stats.Analysis) error {
	raw, err := json.Marshal(analysis)
	if err != nil {
		return errors.Wrap(err, "failed to marshal analysis for cache")
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return errors.ExternalServiceError("redis", err)
	}
	return nil
}
