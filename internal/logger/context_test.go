package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ctx     func(l *slog.Logger) context.Context
		carried bool
	}{
		{
			name:    "Should return the carried logger",
			ctx:     func(l *slog.Logger) context.Context { return WithContext(context.Background(), l) },
			carried: true,
		},
		{
			name: "Should fall back to the default logger on a bare context",
			ctx:  func(*slog.Logger) context.Context { return context.Background() },
		},
		{
			name: "Should fall back to the default logger when nil was stored",
			ctx:  func(*slog.Logger) context.Context { return WithContext(context.Background(), nil) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			carried := slog.New(slog.NewTextHandler(io.Discard, nil))
			got := FromContext(tt.ctx(carried))

			if tt.carried {
				assert.Same(t, carried, got)
			} else {
				assert.Same(t, slog.Default(), got)
			}
		})
	}
}

func TestWith(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil)).With(slog.String("request_id", "req-7"))

	ctx, log := With(WithContext(context.Background(), base), slog.String("build_id", "ci-42"))
	assert.Same(t, log, FromContext(ctx))

	FromContext(ctx).Info("report delivered")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "req-7", rec["request_id"])
	assert.Equal(t, "ci-42", rec["build_id"])
	assert.Equal(t, "report delivered", rec["msg"])
}
