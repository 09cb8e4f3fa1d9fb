package striprpc

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/sigtrap/shaderstrip/internal/logger"
)

func TestRequestLoggerInterceptor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		md        metadata.MD
		handler   grpc.UnaryHandler
		wantLevel string
		wantLog   []string
	}{
		{
			name: "Should reuse the caller's request id",
			md:   metadata.Pairs("x-request-id", "req-42"),
			handler: func(ctx context.Context, _ any) (any, error) {
				logger.FromContext(ctx).Info("inside handler")
				return "ok", nil
			},
			wantLevel: "level=INFO",
			wantLog:   []string{"request_id=req-42", "inside handler", "code=OK", "rpc_method=" + MethodStrip},
		},
		{
			name: "Should log a missing build as expected traffic",
			handler: func(context.Context, any) (any, error) {
				return nil, status.Error(codes.NotFound, "gone")
			},
			wantLevel: "level=INFO",
			wantLog:   []string{"code=NotFound", "request_id="},
		},
		{
			name: "Should log server failures as errors",
			handler: func(context.Context, any) (any, error) {
				return nil, status.Error(codes.Internal, "boom")
			},
			wantLevel: "level=ERROR",
			wantLog:   []string{"code=Internal"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			base := slog.New(slog.NewTextHandler(&buf, nil))

			ctx := context.Background()
			if tt.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tt.md)
			}

			_, _ = RequestLoggerInterceptor(base)(ctx, nil, &grpc.UnaryServerInfo{FullMethod: MethodStrip}, tt.handler)

			out := buf.String()
			assert.Contains(t, out, "grpc request completed")
			assert.Contains(t, out, tt.wantLevel)
			for _, want := range tt.wantLog {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestAuthInterceptor_Disabled(t *testing.T) {
	t.Parallel()

	called := false
	resp, err := AuthInterceptor("")(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: MethodBegin},
		func(context.Context, any) (any, error) {
			called = true
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.True(t, called)
}
