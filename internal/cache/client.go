package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sigtrap/shaderstrip/internal/config"
	"github.com/sigtrap/shaderstrip/internal/logger"
)

// Options translates the report cache settings into go-redis options. A URL
// supplies address, credentials, database and TLS; the pool settings apply
// on top of either form.
func Options(cfg *config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		opts = parsed
	}
	if cfg.TLSEnabled && opts.TLSConfig == nil {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.PoolTimeout = cfg.PoolTimeout
	opts.MaxRetries = cfg.MaxRetries
	opts.MinRetryBackoff = cfg.MinRetryBackoff
	opts.MaxRetryBackoff = cfg.MaxRetryBackoff
	return opts, nil
}

// NewRedisClient connects the report cache. The server may boot before
// Redis does, so the first PING is retried with doubling backoff; ctx
// cancellation stops the wait.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	if err := awaitRedis(ctx, client, cfg.ConnectAttempts, cfg.ConnectBackoff); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func awaitRedis(ctx context.Context, client *redis.Client, attempts int, backoff time.Duration) error {
	log := logger.FromContext(ctx).With(slog.String("component", "redis"))
	attempts = max(attempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, client.Options().DialTimeout+backoff)
		lastErr = client.Ping(pingCtx).Err()
		cancel()

		if lastErr == nil {
			log.Info("report cache reachable", slog.Int("attempt", attempt))
			return nil
		}
		if attempt == attempts {
			break
		}

		log.Warn("report cache not reachable yet",
			slog.Int("attempt", attempt),
			slog.Int("attempts", attempts),
			slog.Duration("retry_in", backoff),
			slog.String("error", lastErr.Error()),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("gave up waiting for redis: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return fmt.Errorf("failed to connect to redis after %d attempts: %w", attempts, lastErr)
}
