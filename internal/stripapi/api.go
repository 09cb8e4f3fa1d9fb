// Package stripapi implements the REST API through which a host build driver
// opens a build session, streams compiler invocations and collects the report.
package stripapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/sigtrap/shaderstrip/internal/cache"
	"github.com/sigtrap/shaderstrip/internal/report"
	"github.com/sigtrap/shaderstrip/internal/ruleengine"
	"github.com/sigtrap/shaderstrip/internal/session"
	"github.com/sigtrap/shaderstrip/internal/store"
	"github.com/sigtrap/shaderstrip/internal/validation"
)

// defaultMaxBodyBytes applies when Deps.MaxBodyBytes is zero.
const defaultMaxBodyBytes = 32 << 20

// Deps are the collaborators of the API.
type Deps struct {
	// Definitions is the parsed chain file. Every session builds its own chain from it.
	Definitions *ruleengine.ChainDefinition

	// Build carries the project directory and shader catalog used to compile rules.
	Build ruleengine.BuildOptions

	// Sessions holds live builds. Use NewSessionCache so evicted builds are abandoned.
	Sessions *cache.MemoryCache[*session.Session]

	// Sinks receive every finished report.
	Sinks []report.Sink

	// Reports, when set, enables the read-only /reports endpoints.
	Reports store.ReportRepository

	MaxBodyBytes int64
	Logger       *slog.Logger
}

// API holds dependencies and the router for the strip service.
type API struct {
	// Router is the Chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	definitions  *ruleengine.ChainDefinition
	build        ruleengine.BuildOptions
	sessions     *cache.MemoryCache[*session.Session]
	sinks        []report.Sink
	reports      store.ReportRepository
	maxBodyBytes int64
	logger       *slog.Logger

	// apiKeyHash is the hex SHA-256 of the accepted API key.
	apiKeyHash string

	// skipAuth disables authentication (tests and local development only).
	skipAuth bool
}

// NewAPI creates an API with authentication enabled.
// Panics if apiKeyHash is empty.
func NewAPI(deps Deps, apiKeyHash string) *API {
	return NewAPIWithConfig(deps, apiKeyHash, false)
}

// NewAPIWithConfig creates an API with explicit control over authentication.
//
// Panics if:
//   - the chain definitions or the session cache are nil
//   - apiKeyHash is empty when skipAuth is false
func NewAPIWithConfig(deps Deps, apiKeyHash string, skipAuth bool) *API {
	validation.AssertNotNil(deps.Definitions, "chain definitions")
	validation.AssertNotNil(deps.Sessions, "session cache")

	if !skipAuth && apiKeyHash == "" {
		panic("stripapi: apiKeyHash cannot be empty when authentication is enabled")
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = defaultMaxBodyBytes
	}

	api := &API{
		Router:       chi.NewRouter(),
		definitions:  deps.Definitions,
		build:        deps.Build,
		sessions:     deps.Sessions,
		sinks:        deps.Sinks,
		reports:      deps.Reports,
		maxBodyBytes: deps.MaxBodyBytes,
		logger:       deps.Logger,
		apiKeyHash:   apiKeyHash,
		skipAuth:     skipAuth,
	}

	api.configureRoutes()
	return api
}

// NewSessionCache returns a session cache that abandons the builds it evicts.
func NewSessionCache(capacity int, ttl time.Duration) (*cache.MemoryCache[*session.Session], error) {
	return cache.NewMemoryCache(capacity, ttl, func(_ string, s *session.Session) {
		s.Abandon()
	})
}

// configureRoutes registers the global middleware stack and API endpoints.
func (a *API) configureRoutes() {
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(a.requestLogger)
	a.Router.Use(recordMetrics)
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	// Public
	a.Router.Get("/health", a.handleHealthCheck)

	a.Router.Route("/api/v1", func(r chi.Router) {
		r.Use(a.authenticateAPIKey)
		r.Use(a.limitBody)

		r.Get("/rules", a.handleListRules)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", a.handleCreateSession)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.handleGetSession)
				r.Delete("/", a.handleAbandonSession)
				r.Post("/strip", a.handleStrip)
				r.Post("/finish", a.handleFinishSession)
			})
		})

		if a.reports != nil {
			r.Route("/reports", func(r chi.Router) {
				r.Get("/", a.handleListReports)
				r.Get("/{id}", a.handleGetReport)
			})
		}
	})
}

func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}
