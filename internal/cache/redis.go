// Package cache holds the two caches of shaderstrip: the Redis list store that
// receives finished reports and the in-memory store of live build sessions.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sigtrap/shaderstrip/internal/validation"
)

// DefaultKeyPrefix namespaces report lists.
// Example: "strip:report:6f1c..."
const DefaultKeyPrefix = "strip:report:"

// ErrReportNotFound is returned when no list exists for a build, or it expired.
var ErrReportNotFound = errors.New("report not found in cache")

// Compile-time check to verify that RedisCache implements Service.
var _ Service = (*RedisCache)(nil)

// Service defines the report cache operations.
type Service interface {
	// PushReport replaces the report list of a build and sets its expiry.
	PushReport(ctx context.Context, buildID string, lines []string, ttl time.Duration) error

	// ReportLines reads a report back in order.
	ReportLines(ctx context.Context, buildID string) ([]string, error)

	// HealthCheck pings the redis server to ensure connectivity.
	HealthCheck(ctx context.Context) error

	// Close terminates the connection.
	Close() error
}

// RedisCache implements Service on a go-redis client.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps an already connected client. An empty prefix selects DefaultKeyPrefix.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	validation.AssertNotNil(client, "redis client")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisCache{client: client, prefix: prefix}
}

// Key returns the list key of a build.
func (c *RedisCache) Key(buildID string) string {
	return c.prefix + buildID
}

// PushReport writes all lines in one MULTI/EXEC so readers never see a half-written report.
func (c *RedisCache) PushReport(ctx context.Context, buildID string, lines []string, ttl time.Duration) error {
	key := c.Key(buildID)

	values := make([]any, len(lines))
	for i, l := range lines {
		values[i] = l
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.RPush(ctx, key, values...)
		}
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push report %q to cache: %w", buildID, err)
	}
	return nil
}

// ReportLines returns the lines of a cached report.
func (c *RedisCache) ReportLines(ctx context.Context, buildID string) ([]string, error) {
	lines, err := c.client.LRange(ctx, c.Key(buildID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read report %q from cache: %w", buildID, err)
	}
	// LRANGE answers an empty list for missing keys; stored reports always have a header.
	if len(lines) == 0 {
		return nil, ErrReportNotFound
	}
	return lines, nil
}

// HealthCheck verifies the connection to the Redis server.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
