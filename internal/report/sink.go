package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sigtrap/shaderstrip/internal/observability"
)

// Sink receives finished reports.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	Deliver(ctx context.Context, r *Report) error
}

// Deliver hands r to every sink. A failing sink does not stop the others;
// all failures are returned joined.
func Deliver(ctx context.Context, logger *slog.Logger, r *Report, sinks ...Sink) error {
	if logger == nil {
		logger = slog.Default()
	}

	var errs []error
	for _, s := range sinks {
		start := time.Now()
		err := s.Deliver(ctx, r)
		observability.ReportDeliveryDuration.WithLabelValues(s.Name()).Observe(time.Since(start).Seconds())

		if err != nil {
			observability.ReportDeliveries.WithLabelValues(s.Name(), "fail").Inc()
			logger.Error("report delivery failed",
				slog.String("sink", s.Name()),
				slog.String("build_id", r.BuildID),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
			continue
		}

		observability.ReportDeliveries.WithLabelValues(s.Name(), "success").Inc()
		logger.Info("report delivered", slog.String("sink", s.Name()), slog.String("build_id", r.BuildID))
	}
	return errors.Join(errs...)
}

// DeliveryErrors lists the sink failures joined in a Deliver error, one
// message per sink. It returns nil for a nil error.
func DeliveryErrors(err error) []string {
	if err == nil {
		return nil
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(joined.Unwrap()))
	for _, e := range joined.Unwrap() {
		out = append(out, e.Error())
	}
	return out
}
