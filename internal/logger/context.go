package logger

import (
	"context"
	"log/slog"
)

// contextKey is unexported so no other package can read or overwrite the
// logger slot. The empty struct costs no allocation as a key.
type contextKey struct{}

// WithContext returns a copy of ctx carrying logger.
// Middleware and gRPC interceptors use it to hand a request-scoped logger
// (request ID, route or RPC method) down to handlers.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext retrieves the logger stored by WithContext.
//
// Design Choice: this function NEVER returns nil. A context without a logger
// (a unit test calling a handler directly, a background job) or one holding a
// nil logger yields slog.Default(), so callers log unconditionally.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// With extends the logger carried by ctx with args and returns both the new
// context and the new logger.
//
// Handlers call it once they know which build a request is about:
//
//	ctx, log := logger.With(ctx, slog.String("build_id", id))
//
// Everything logged from ctx afterwards, including by report sinks further
// down, carries the build ID.
func With(ctx context.Context, args ...any) (context.Context, *slog.Logger) {
	log := FromContext(ctx).With(args...)
	return WithContext(ctx, log), log
}
