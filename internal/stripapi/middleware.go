package stripapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/sigtrap/shaderstrip/internal/logger"
	"github.com/sigtrap/shaderstrip/internal/observability"
	"github.com/sigtrap/shaderstrip/internal/validation"
)

// apiKeyHeader carries the API key. "Authorization: Bearer <key>" is accepted too.
const apiKeyHeader = "X-API-Key"

// requestLogger stores a request-scoped logger in the context and logs each
// completed request: Info for success, Warn for 4xx, Error for 5xx.
func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())

		log := a.logger.With(slog.String("request_id", reqID))
		r = r.WithContext(logger.WithContext(r.Context(), log))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		level := slog.LevelInfo
		status := ww.Status()
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}

		log.Log(r.Context(), level, "HTTP request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start).String(),
			"remote_ip", r.RemoteAddr,
		)
	})
}

// recordMetrics counts requests by route pattern, not raw path, so session
// IDs do not explode label cardinality.
func recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		observability.APIReqTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		observability.APIReqDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// authenticateAPIKey rejects requests whose key does not hash to the
// configured digest.
func (a *API) authenticateAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skipAuth {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(apiKeyHeader)
		if key == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
		}

		if !validation.APIKeyMatches(key, a.apiKeyHash) {
			logger.FromContext(r.Context()).Warn("rejected unauthenticated request", slog.String("path", r.URL.Path))
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{
				Code:    "ERR_UNAUTHORIZED",
				Message: "A valid API key is required",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// limitBody caps request bodies at maxBodyBytes.
func (a *API) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, a.maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}
