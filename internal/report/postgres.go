package report

import (
	"context"

	"github.com/sigtrap/shaderstrip/internal/store"
	"github.com/sigtrap/shaderstrip/internal/validation"
)

var _ Sink = (*PostgresSink)(nil)

// PostgresSink stores reports through the report repository.
type PostgresSink struct {
	repo store.ReportRepository
}

// NewPostgresSink creates a sink over repo.
func NewPostgresSink(repo store.ReportRepository) *PostgresSink {
	validation.AssertPresent(repo, "report repository")
	return &PostgresSink{repo: repo}
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Deliver(ctx context.Context, r *Report) error {
	return s.repo.SaveReport(ctx, &store.Report{
		BuildID:     r.BuildID,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		Invocations: r.Invocations,
		VariantsIn:  r.VariantsIn,
		VariantsOut: r.VariantsOut,
		Lines:       r.Lines(),
	})
}
