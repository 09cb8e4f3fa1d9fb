// Package store provides the Data Access Layer (Repository) for build reports.
// It handles all direct interactions with the PostgreSQL database using the pgx driver.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sigtrap/shaderstrip/internal/validation"
)

// Compile-time check to verify that PostgresStore implements ReportRepository.
var _ ReportRepository = (*PostgresStore)(nil)

// ErrReportNotFound is returned when no report exists for a build ID.
var ErrReportNotFound = errors.New("report not found")

// Report mirrors the 'strip_reports' table.
type Report struct {
	ID          int64     `db:"id"`
	BuildID     string    `db:"build_id"`
	StartedAt   time.Time `db:"started_at"`
	FinishedAt  time.Time `db:"finished_at"`
	Invocations int       `db:"invocations"`
	VariantsIn  int       `db:"variants_in"`
	VariantsOut int       `db:"variants_out"`
	Lines       []string  `db:"lines"`
	CreatedAt   time.Time `db:"created_at"`
}

// ReportRepository defines the persistence operations for build reports.
type ReportRepository interface {
	// SaveReport inserts a report and populates ID and CreatedAt.
	SaveReport(ctx context.Context, r *Report) error

	// GetReport fetches the report of one build. Returns ErrReportNotFound if absent.
	GetReport(ctx context.Context, buildID string) (*Report, error)

	// ListReports returns a page of reports, most recent first, and the total count.
	// Lines are not loaded.
	ListReports(ctx context.Context, limit, offset int) ([]*Report, int64, error)
}

// PostgresStore is the implementation of ReportRepository backed by PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new repository instance with the given connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	validation.AssertNotNil(db, "database pool")
	return &PostgresStore{db: db}
}

// SaveReport inserts a report. Build IDs are unique.
func (s *PostgresStore) SaveReport(ctx context.Context, r *Report) error {
	query := `
		INSERT INTO strip_reports (build_id, started_at, finished_at, invocations, variants_in, variants_out, lines)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	lines := r.Lines
	if lines == nil {
		lines = []string{}
	}

	err := s.db.QueryRow(ctx, query,
		r.BuildID,
		r.StartedAt,
		r.FinishedAt,
		r.Invocations,
		r.VariantsIn,
		r.VariantsOut,
		lines,
	).Scan(&r.ID, &r.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// Error Code 23505: unique_violation
			if pgErr.Code == "23505" {
				return fmt.Errorf("report for build %q already exists", r.BuildID)
			}
		}
		return fmt.Errorf("failed to insert report: %w", err)
	}

	return nil
}

// GetReport fetches a single report including its lines.
func (s *PostgresStore) GetReport(ctx context.Context, buildID string) (*Report, error) {
	query := `
		SELECT id, build_id, started_at, finished_at, invocations, variants_in, variants_out, lines, created_at
		FROM strip_reports
		WHERE build_id = $1
	`

	var r Report
	err := s.db.QueryRow(ctx, query, buildID).Scan(
		&r.ID,
		&r.BuildID,
		&r.StartedAt,
		&r.FinishedAt,
		&r.Invocations,
		&r.VariantsIn,
		&r.VariantsOut,
		&r.Lines,
		&r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return &r, nil
}

// ListReports retrieves a page of report headers.
func (s *PostgresStore) ListReports(ctx context.Context, limit, offset int) ([]*Report, int64, error) {
	var total int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM strip_reports`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	if total == 0 {
		return []*Report{}, 0, nil
	}

	query := `
		SELECT id, build_id, started_at, finished_at, invocations, variants_in, variants_out, created_at
		FROM strip_reports
		ORDER BY finished_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}
	// Ensure rows are closed to prevent connection leaks in the pool.
	defer rows.Close()

	reports := make([]*Report, 0, limit)
	for rows.Next() {
		var r Report
		if err := rows.Scan(
			&r.ID,
			&r.BuildID,
			&r.StartedAt,
			&r.FinishedAt,
			&r.Invocations,
			&r.VariantsIn,
			&r.VariantsOut,
			&r.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan report row: %w", err)
		}
		reports = append(reports, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating report rows: %w", err)
	}

	return reports, total, nil
}
