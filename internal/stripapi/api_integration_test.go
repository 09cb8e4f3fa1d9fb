//go:build integration

package stripapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigtrap/shaderstrip/internal/assets"
	"github.com/sigtrap/shaderstrip/internal/report"
	"github.com/sigtrap/shaderstrip/internal/ruleengine"
	"github.com/sigtrap/shaderstrip/internal/store"
	"github.com/sigtrap/shaderstrip/internal/stripapi"
	"github.com/sigtrap/shaderstrip/internal/testsupport"
)

// setupIntegrationEnv wires the API to real Postgres and Redis sinks.
func setupIntegrationEnv(t *testing.T) (*env, *testsupport.RedisContainer, func()) {
	t.Helper()

	ctx := context.Background()

	migrationsPath, err := filepath.Abs("../../migrations")
	require.NoError(t, err)

	pgContainer, err := testsupport.StartPostgresContainer(ctx, migrationsPath)
	require.NoError(t, err)

	redisContainer, err := testsupport.StartRedisContainer(ctx)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Keep.shadervariants"), []byte(keepDoc), 0o644))

	def, err := ruleengine.ParseDefinitions("chain.yaml", strings.NewReader(chainDoc))
	require.NoError(t, err)

	sessions, err := stripapi.NewSessionCache(16, time.Minute)
	require.NoError(t, err)

	repo := store.NewPostgresStore(pgContainer.DB)
	api := stripapi.NewAPIWithConfig(stripapi.Deps{
		Definitions: def,
		Build:       ruleengine.BuildOptions{ProjectDir: dir, Resolver: assets.NewCatalog(shaderListed, shaderUnlisted)},
		Sessions:    sessions,
		Sinks: []report.Sink{
			report.NewRedisSink(redisContainer.Reports, time.Hour),
			report.NewPostgresSink(repo),
		},
		Reports: repo,
	}, "", true)

	cleanup := func() {
		sessions.Close()
		_ = pgContainer.Terminate(ctx)
		_ = redisContainer.Terminate(ctx)
	}

	return &env{api: api}, redisContainer, cleanup
}

func TestBuildLifecycle_Integration(t *testing.T) {
	e, redisContainer, cleanup := setupIntegrationEnv(t)
	defer cleanup()

	rr := e.do(t, http.MethodPost, "/api/v1/sessions", `{"build_id":"ci-1234"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = e.do(t, http.MethodPost, "/api/v1/sessions/ci-1234/strip",
		stripBody(shaderListed, "ForwardBase", `["A","B"]`, `["C"]`))
	require.Equal(t, http.StatusOK, rr.Code)

	testsupport.AssertMetricDelta(t, "shaderstrip_report_deliveries_total",
		map[string]string{"sink": "postgres", "status": "success"}, 1, func() {
			rr = e.do(t, http.MethodPost, "/api/v1/sessions/ci-1234/finish", "")
		})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Empty(t, decode[stripapi.FinishResponse](t, rr).DeliveryErrors)

	t.Run("Should push the report lines to Redis", func(t *testing.T) {
		lines, err := redisContainer.Reports.ReportLines(context.Background(), "ci-1234")
		require.NoError(t, err)
		assert.Equal(t, "Shader stripping report for build ci-1234", lines[0])
		assert.Contains(t, lines, "Stripped Custom/Listed::ForwardBase variant 1/2 by keep-list")
	})

	t.Run("Should serve the persisted report", func(t *testing.T) {
		rr := e.do(t, http.MethodGet, "/api/v1/reports/ci-1234", "")
		require.Equal(t, http.StatusOK, rr.Code)

		got := decode[stripapi.StoredReport](t, rr)
		assert.Equal(t, 2, got.VariantsIn)
		assert.Equal(t, 1, got.VariantsOut)
		assert.NotEmpty(t, got.Lines)
	})

	t.Run("Should list persisted reports without their lines", func(t *testing.T) {
		rr := e.do(t, http.MethodGet, "/api/v1/reports?page_size=5", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var page struct {
			Data       []stripapi.StoredReport `json:"data"`
			Pagination stripapi.Pagination     `json:"pagination"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
		require.Len(t, page.Data, 1)
		assert.Equal(t, "ci-1234", page.Data[0].BuildID)
		assert.Empty(t, page.Data[0].Lines)
		assert.Equal(t, int64(1), page.Pagination.TotalItems)
	})

	t.Run("Should surface a duplicate build as a delivery error", func(t *testing.T) {
		require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/v1/sessions", `{"build_id":"ci-1234"}`).Code)

		rr := e.do(t, http.MethodPost, "/api/v1/sessions/ci-1234/finish", "")
		require.Equal(t, http.StatusOK, rr.Code)

		errs := decode[stripapi.FinishResponse](t, rr).DeliveryErrors
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "sink postgres")
		assert.Contains(t, errs[0], "already exists")
	})
}
