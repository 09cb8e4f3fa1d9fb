package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigtrap/shaderstrip/internal/config"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{name: "Should parse debug", input: "debug", want: slog.LevelDebug},
		{name: "Should parse mixed case", input: "WaRn", want: slog.LevelWarn},
		{name: "Should parse error", input: "error", want: slog.LevelError},
		{name: "Should parse an offset level", input: "warn+2", want: slog.LevelWarn + 2},
		{name: "Should default to info on empty input", input: "", want: slog.LevelInfo},
		{name: "Should default to info on garbage", input: "trace", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	base := config.AppConfig{
		Name:        "shaderstrip",
		Version:     "1.2.3",
		Environment: "staging",
		LogLevel:    "info",
	}

	t.Run("Should emit JSON with identity attributes", func(t *testing.T) {
		t.Parallel()

		cfg := base
		cfg.LogFormat = "json"

		var buf bytes.Buffer
		NewWithWriter(&cfg, &buf).Info("rule chain initialized", slog.Int("rules", 3))

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "shaderstrip", line["service"])
		assert.Equal(t, "1.2.3", line["version"])
		assert.Equal(t, "staging", line["env"])
		assert.Equal(t, float64(3), line["rules"])
		assert.Contains(t, line, "source", "source is added outside production")
	})

	t.Run("Should emit text when configured", func(t *testing.T) {
		t.Parallel()

		cfg := base
		cfg.LogFormat = "text"

		var buf bytes.Buffer
		NewWithWriter(&cfg, &buf).Info("hello")
		assert.Contains(t, buf.String(), "msg=hello")
		assert.Contains(t, buf.String(), "service=shaderstrip")
	})

	t.Run("Should drop records below the configured level", func(t *testing.T) {
		t.Parallel()

		cfg := base
		cfg.LogFormat = "json"
		cfg.LogLevel = "warn"

		var buf bytes.Buffer
		log := NewWithWriter(&cfg, &buf)
		log.Info("quiet")
		assert.Zero(t, buf.Len())

		log.Warn("loud")
		assert.Contains(t, buf.String(), "loud")
	})

	t.Run("Should omit source in production", func(t *testing.T) {
		t.Parallel()

		cfg := base
		cfg.LogFormat = "json"
		cfg.Environment = config.EnvironmentProduction

		var buf bytes.Buffer
		NewWithWriter(&cfg, &buf).Info("prod")
		assert.NotContains(t, buf.String(), `"source"`)
	})

	t.Run("Should add source outside production", func(t *testing.T) {
		t.Parallel()

		cfg := base
		cfg.LogFormat = "json"
		cfg.Environment = "staging"

		var buf bytes.Buffer
		NewWithWriter(&cfg, &buf).Info("dev")
		assert.Contains(t, buf.String(), `"source"`)
	})

	t.Run("Should fall back to JSON for an unknown format", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		slog.New(newHandler("logfmt", &buf, nil)).Info("fallback")
		assert.True(t, strings.HasPrefix(buf.String(), "{"), buf.String())
	})

	t.Run("Should panic without a config", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { NewWithWriter(nil, &bytes.Buffer{}) })
	})
}
