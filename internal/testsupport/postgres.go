// Package testsupport provides Prometheus assertions for unit tests and
// throwaway report backends (PostgreSQL and Redis containers) for the
// integration-tagged tests.
package testsupport

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sigtrap/shaderstrip/internal/config"
	"github.com/sigtrap/shaderstrip/internal/database"
)

const (
	postgresImage = "postgres:15-alpine"
	testDatabase  = "shaderstrip_test"
)

// PostgresContainer is a migrated report store.
type PostgresContainer struct {
	Container        testcontainers.Container
	DB               *pgxpool.Pool
	ConnectionString string
}

// StartPostgresContainer starts PostgreSQL with every migration of
// migrationsDir applied in file name order, then connects through
// database.NewPostgresPool the way the server does.
func StartPostgresContainer(ctx context.Context, migrationsDir string) (*PostgresContainer, error) {
	scripts, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("bad migrations pattern: %w", err)
	}
	if len(scripts) == 0 {
		return nil, fmt.Errorf("no migrations in %s", migrationsDir)
	}
	slices.Sort(scripts)
	for i, s := range scripts {
		if scripts[i], err = filepath.Abs(s); err != nil {
			return nil, fmt.Errorf("failed to resolve migration %s: %w", s, err)
		}
	}

	ctr, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername("strip"),
		postgres.WithPassword("strip"),
		postgres.WithInitScripts(scripts...),
		// The server restarts once after running init scripts.
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, &config.DatabaseConfig{
		Enabled:        true,
		URL:            dsn,
		MaxConns:       5,
		MinConns:       1,
		ConnectTimeout: 5 * time.Second,
	})
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to postgres container: %w", err)
	}

	return &PostgresContainer{Container: ctr, DB: pool, ConnectionString: dsn}, nil
}

// Reset empties the reports table so subtests can share one container.
func (c *PostgresContainer) Reset(ctx context.Context) error {
	_, err := c.DB.Exec(ctx, `TRUNCATE strip_reports RESTART IDENTITY`)
	return err
}

// Terminate closes the pool and removes the container.
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	c.DB.Close()
	return c.Container.Terminate(ctx)
}
