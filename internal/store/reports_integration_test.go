//go:build integration

package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigtrap/shaderstrip/internal/database"
	"github.com/sigtrap/shaderstrip/internal/store"
	"github.com/sigtrap/shaderstrip/internal/testsupport"
)

func TestPostgresStore_Integration(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := testsupport.StartPostgresContainer(ctx, "../../migrations")
	require.NoError(t, err, "failed to start postgres container")
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	repo := store.NewPostgresStore(pgContainer.DB)
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	// Scenarios share the container state and run sequentially.

	t.Run("Should save a report and assign server fields", func(t *testing.T) {
		r := &store.Report{
			BuildID:     "build-1",
			StartedAt:   started,
			FinishedAt:  started.Add(time.Minute),
			Invocations: 3,
			VariantsIn:  40,
			VariantsOut: 12,
			Lines:       []string{"Stripped Custom/S1::ForwardBase variant 3/10 by keep-list", "Unstripped Shaders:"},
		}

		require.NoError(t, repo.SaveReport(ctx, r))
		assert.NotZero(t, r.ID)
		assert.False(t, r.CreatedAt.IsZero())
	})

	t.Run("Should reject a duplicate build ID", func(t *testing.T) {
		err := repo.SaveReport(ctx, &store.Report{BuildID: "build-1", StartedAt: started, FinishedAt: started})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("Should load a report with its lines", func(t *testing.T) {
		r, err := repo.GetReport(ctx, "build-1")
		require.NoError(t, err)

		assert.Equal(t, 3, r.Invocations)
		assert.Equal(t, 40, r.VariantsIn)
		assert.Equal(t, 12, r.VariantsOut)
		assert.Len(t, r.Lines, 2)
		assert.True(t, started.Equal(r.StartedAt))
	})

	t.Run("Should return ErrReportNotFound for unknown builds", func(t *testing.T) {
		_, err := repo.GetReport(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrReportNotFound)
	})

	t.Run("Should store reports without lines", func(t *testing.T) {
		r := &store.Report{BuildID: "build-empty", StartedAt: started, FinishedAt: started}
		require.NoError(t, repo.SaveReport(ctx, r))

		got, err := repo.GetReport(ctx, "build-empty")
		require.NoError(t, err)
		assert.Empty(t, got.Lines)
	})

	t.Run("Should list reports most recent first with pagination", func(t *testing.T) {
		for i := range 3 {
			r := &store.Report{
				BuildID:    fmt.Sprintf("page-%d", i),
				StartedAt:  started,
				FinishedAt: started.Add(time.Duration(i+2) * time.Hour),
			}
			require.NoError(t, repo.SaveReport(ctx, r))
		}

		page, total, err := repo.ListReports(ctx, 2, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, page, 2)
		assert.Equal(t, "page-2", page[0].BuildID)
		assert.Equal(t, "page-1", page[1].BuildID)
		assert.Nil(t, page[0].Lines, "listing skips lines")

		rest, _, err := repo.ListReports(ctx, 10, 2)
		require.NoError(t, err)
		assert.Len(t, rest, 3)
	})

	t.Run("Should be empty and still ready after a reset", func(t *testing.T) {
		require.NoError(t, pgContainer.Reset(ctx))

		_, total, err := repo.ListReports(ctx, 10, 0)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.NoError(t, database.ReadinessCheck(pgContainer.DB).Check(ctx))

		require.NoError(t, repo.SaveReport(ctx, &store.Report{BuildID: "build-1", StartedAt: started, FinishedAt: started}))
	})
}
