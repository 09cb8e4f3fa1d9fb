package observability

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// ReadinessReport is the readiness response body.
type ReadinessReport struct {
	Ready bool `json:"ready"`
	// Status maps each component to "up" or "down: <error>".
	Status map[string]string `json:"status"`
}

type checkResult struct {
	component string
	err       error
}

func (s *Server) liveness(w http.ResponseWriter, r *http.Request) {
	render.PlainText(w, r, "ok")
}

// readiness answers 503 when any report backend fails its check: builds that
// finish meanwhile would lose their report.
func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	rep := s.checkAll(r.Context())

	if !rep.Ready {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, rep)
}

// checkAll runs every checker concurrently under the readiness timeout.
func (s *Server) checkAll(ctx context.Context) ReadinessReport {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	results := make(chan checkResult, len(s.checkers))
	for _, c := range s.checkers {
		go func() {
			results <- checkResult{component: c.Name(), err: c.Check(ctx)}
		}()
	}

	rep := ReadinessReport{Ready: true, Status: make(map[string]string, len(s.checkers))}
	for range s.checkers {
		res := <-results
		if res.err == nil {
			rep.Status[res.component] = "up"
			continue
		}

		rep.Ready = false
		rep.Status[res.component] = "down: " + res.err.Error()
		ReadinessFailures.WithLabelValues(res.component).Inc()
		s.logger.Warn("readiness check failed",
			slog.String("component", res.component),
			slog.String("error", res.err.Error()),
		)
	}
	return rep
}
