// Package sinks opens the report sinks selected by configuration and the
// connections behind them. Both drivers share it.
package sinks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/sigtrap/shaderstrip/internal/cache"
	"github.com/sigtrap/shaderstrip/internal/config"
	"github.com/sigtrap/shaderstrip/internal/database"
	"github.com/sigtrap/shaderstrip/internal/observability"
	"github.com/sigtrap/shaderstrip/internal/report"
	"github.com/sigtrap/shaderstrip/internal/store"
	"github.com/sigtrap/shaderstrip/internal/validation"
)

// Set is the opened sinks plus what the drivers need to monitor them.
type Set struct {
	Sinks []report.Sink

	// Checkers feed the readiness endpoint, one per remote sink.
	Checkers []observability.Checker

	// Reports is nil unless the Postgres sink is enabled.
	Reports store.ReportRepository

	// Pool is nil unless the Postgres sink is enabled.
	Pool *pgxpool.Pool

	redis *redis.Client
}

// Open connects every enabled sink. On error, whatever was already opened is closed.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Set, error) {
	validation.AssertNotNil(cfg, "config")
	if logger == nil {
		logger = slog.Default()
	}

	s := &Set{}

	if cfg.Strip.LogDir != "" {
		s.Sinks = append(s.Sinks, report.NewFileSink(cfg.Strip.LogDir))
	}

	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open redis sink: %w", err)
		}
		s.redis = client
		s.Sinks = append(s.Sinks, report.NewRedisSink(cache.NewRedisCache(client, cfg.Redis.KeyPrefix), cfg.Redis.ReportTTL))
		s.Checkers = append(s.Checkers, cache.ReadinessCheck(client))
	}

	if cfg.Database.Enabled {
		pool, err := database.NewPostgresPool(ctx, &cfg.Database)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open postgres sink: %w", err)
		}
		s.Pool = pool
		s.Reports = store.NewPostgresStore(pool)
		s.Sinks = append(s.Sinks, report.NewPostgresSink(s.Reports))
		s.Checkers = append(s.Checkers, database.ReadinessCheck(pool))
	}

	names := make([]string, len(s.Sinks))
	for i, sink := range s.Sinks {
		names[i] = sink.Name()
	}
	if len(names) == 0 {
		logger.Warn("no report sinks configured, reports are only logged")
	} else {
		logger.Info("report sinks ready", slog.Any("sinks", names))
	}

	return s, nil
}

// Close releases the connections. It is safe on a partially opened set.
func (s *Set) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
}
