package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sigtrap/shaderstrip/internal/observability"
)

// readinessQuery touches the reports table without reading it, so a database
// that is up but was never migrated reads as not ready.
const readinessQuery = `SELECT 1 FROM strip_reports LIMIT 0`

// ReadinessCheck reports the report store usable.
func ReadinessCheck(pool *pgxpool.Pool) observability.Checker {
	return observability.CheckerFunc{
		Component: "postgres",
		Fn: func(ctx context.Context) error {
			if pool == nil {
				return errors.New("database pool is nil")
			}
			if _, err := pool.Exec(ctx, readinessQuery); err != nil {
				return fmt.Errorf("reports table: %w", err)
			}
			return nil
		},
	}
}
