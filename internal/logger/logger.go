// Package logger provides the structured logger shared by the batch driver and
// the server. It wraps the standard library "log/slog" package so every
// binary formats records the same way (JSON or text, chosen by configuration)
// and applies one level policy, and it carries request-scoped loggers through
// a context.Context (see context.go).
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/sigtrap/shaderstrip/internal/config"
	"github.com/sigtrap/shaderstrip/internal/validation"
)

// New creates the process logger from cfg.
//
// Output goes to stderr, not stdout: the batch driver streams the stripped
// manifest on stdout when no output file is configured, and log lines must
// never interleave with it.
func New(cfg *config.AppConfig) *slog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter is New with an explicit destination, for tests and custom
// sinks.
//
// Every record carries the service, version and env attributes, on this
// logger and on every child derived from it. Source locations (file:line) are
// added outside production only.
//
// Panics if cfg is nil.
func NewWithWriter(cfg *config.AppConfig, w io.Writer) *slog.Logger {
	validation.AssertNotNil(cfg, "logger config")

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.LogLevel),
		// file:line on every record; left out of production output.
		AddSource: cfg.Environment != config.EnvironmentProduction,
	}

	// Identity attributes, inherited by every derived logger.
	return slog.New(newHandler(cfg.LogFormat, w, opts)).With(
		slog.String("service", cfg.Name),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Environment),
	)
}

// newHandler picks the record format.
//
//	text: time=... level=INFO msg=...          (human readable, development)
//	json: {"time":"...","level":"INFO",...}    (machine readable)
//
// Configuration only admits "json" and "text"; any other value gets JSON.
func newHandler(format string, w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	if format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// parseLevel accepts slog level names in any case, including offsets such as
// "warn+2". Anything else is info.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
