package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sigtrap/shaderstrip/internal/config"
	"github.com/sigtrap/shaderstrip/internal/validation"
)

// Server manages the administrative endpoints: liveness, readiness and
// Prometheus metrics. It listens on a dedicated port so scrapes and health checks
// never queue behind strip traffic on the REST or RPC listeners.
//
// Start and Shutdown are safe to call in any order; a server that was never
// started shuts down as a no-op.
type Server struct {
	logger   *slog.Logger
	cfg      *config.ObservabilityConfig
	router   *chi.Mux
	http     *http.Server
	checkers []Checker
	started  atomic.Bool
}

// NewServer creates the observability server without starting it.
//
// Each checker guards one report backend (Postgres, Redis) and is run by the
// readiness endpoint. With no checkers the process reports ready as soon as it
// listens. A nil logger falls back to slog.Default(). Panics if cfg is nil.
func NewServer(logger *slog.Logger, cfg *config.ObservabilityConfig, checkers ...Checker) *Server {
	validation.AssertNotNil(cfg, "observability config")
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		logger:   logger.With(slog.String("component", "observability")),
		cfg:      cfg,
		router:   chi.NewRouter(),
		checkers: checkers,
	}

	// A panicking checker must not take the process down; health responses
	// must never be served from a proxy cache.
	s.router.Use(middleware.Recoverer, middleware.NoCache)

	// Liveness: the process is up and serving HTTP.
	s.router.Get(cfg.LivenessPath, s.liveness)

	// Readiness: every report backend answered its check.
	s.router.Get(cfg.ReadinessPath, s.readiness)

	// Metrics: everything registered through promauto in metrics.go.
	s.router.Method(http.MethodGet, cfg.MetricsPath, promhttp.Handler())

	s.http = &http.Server{
		Addr:         net.JoinHostPort("", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		IdleTimeout:  3 * cfg.Timeout,
	}
	return s
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server in a background goroutine and returns
// immediately. Calling it more than once has no effect.
//
// A listen failure (port taken, permission denied) is logged and does not stop
// the process; the strip listeners keep serving.
func (s *Server) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}

	go func() {
		s.logger.Info("observability server listening",
			slog.String("addr", s.http.Addr),
			slog.String("metrics_path", s.cfg.MetricsPath),
		)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("observability server failed", slog.String("error", err.Error()))
		}
	}()
}

// Shutdown gracefully stops a started server, waiting for in-flight scrapes
// until ctx expires. Calling it before Start does nothing.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.started.Load() {
		return nil
	}
	s.logger.Info("stopping observability server")
	return s.http.Shutdown(ctx)
}
