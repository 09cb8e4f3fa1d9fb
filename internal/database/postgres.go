// Package database provides the PostgreSQL connection factory for the report store.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sigtrap/shaderstrip/internal/config"
	"github.com/sigtrap/shaderstrip/internal/logger"
	"github.com/sigtrap/shaderstrip/internal/observability"
)

// NewPostgresPool initializes a PostgreSQL connection pool from configuration.
// The caller owns the pool and must Close it.
func NewPostgresPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config cannot be nil")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	// Fail fast: a build should not start if its report cannot be stored.
	initCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(initCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(initCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.FromContext(ctx).Info("connected to postgres",
		slog.Int("max_conns", cfg.MaxConns),
		slog.Int("min_conns", cfg.MinConns),
	)
	return pool, nil
}

// RunPoolMonitor samples pool statistics into Prometheus until ctx is cancelled.
// It blocks; run it in its own goroutine.
func RunPoolMonitor(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastAcquires, lastWaits int64
	var lastAcquireDur time.Duration

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := pool.Stat()

			observability.DBPoolConnections.WithLabelValues("total").Set(float64(st.TotalConns()))
			observability.DBPoolConnections.WithLabelValues("idle").Set(float64(st.IdleConns()))
			observability.DBPoolConnections.WithLabelValues("in_use").Set(float64(st.AcquiredConns()))
			observability.DBPoolConnections.WithLabelValues("max").Set(float64(st.MaxConns()))

			// pgxpool reports cumulative values; counters take the delta.
			if n := st.AcquireCount(); n > lastAcquires {
				observability.DBPoolAcquireCount.Add(float64(n - lastAcquires))
				lastAcquires = n
			}
			if n := st.EmptyAcquireCount(); n > lastWaits {
				observability.DBPoolWaitCount.Add(float64(n - lastWaits))
				lastWaits = n
			}
			if d := st.AcquireDuration(); d > lastAcquireDur {
				observability.DBPoolAcquireDuration.Add((d - lastAcquireDur).Seconds())
				lastAcquireDur = d
			}
		}
	}
}
