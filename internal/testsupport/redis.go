package testsupport

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/sigtrap/shaderstrip/internal/cache"
	"github.com/sigtrap/shaderstrip/internal/config"
)

const redisImage = "redis:7-alpine"

// RedisContainer is a report cache backed by a throwaway Redis.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
	Client    *goredis.Client
	// Reports stores lists under cache.DefaultKeyPrefix.
	Reports cache.Service
}

// StartRedisContainer starts Redis and connects to it by URL through
// cache.NewRedisClient.
func StartRedisContainer(ctx context.Context) (*RedisContainer, error) {
	ctr, err := redis.Run(ctx, redisImage)
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	url, err := ctr.ConnectionString(ctx)
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("failed to get redis URL: %w", err)
	}

	client, err := cache.NewRedisClient(ctx, &config.RedisConfig{
		Enabled:         true,
		URL:             url,
		PoolSize:        5,
		DialTimeout:     5 * time.Second,
		ConnectAttempts: 5,
		ConnectBackoff:  250 * time.Millisecond,
	})
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, err
	}

	return &RedisContainer{
		Container: ctr,
		URL:       url,
		Client:    client,
		Reports:   cache.NewRedisCache(client, cache.DefaultKeyPrefix),
	}, nil
}

// Flush drops every key.
func (c *RedisContainer) Flush(ctx context.Context) error {
	return c.Client.FlushDB(ctx).Err()
}

// Terminate closes the client and removes the container.
func (c *RedisContainer) Terminate(ctx context.Context) error {
	_ = c.Reports.Close()
	return c.Container.Terminate(ctx)
}
