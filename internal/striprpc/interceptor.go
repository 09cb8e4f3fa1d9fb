package striprpc

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/sigtrap/shaderstrip/internal/logger"
	"github.com/sigtrap/shaderstrip/internal/observability"
	"github.com/sigtrap/shaderstrip/internal/validation"
)

// Metadata keys. gRPC lower-cases every key on the wire.
const (
	requestIDKey     = "x-request-id"
	apiKeyKey        = "x-api-key"
	authorizationKey = "authorization"
)

// RequestLoggerInterceptor returns a UnaryServerInterceptor that handles structured logging.
// It performs three tasks:
//  1. Traceability: takes the caller's x-request-id, or generates one.
//  2. Context injection: stores a logger carrying the request ID and method,
//     so handlers call logger.FromContext(ctx).
//  3. Telemetry: logs the outcome with the status code and duration.
//
// Client mistakes (NotFound, InvalidArgument, ...) are logged at Info: a build
// farm probing for a finished build is expected traffic. Server failures are
// Error, timeouts and unknown methods Warn.
func RequestLoggerInterceptor(base *slog.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		reqID := firstMetadata(ctx, requestIDKey)
		if reqID == "" {
			reqID = uuid.NewString()
		}

		rpcLogger := base.With(
			slog.String("request_id", reqID),
			slog.String("rpc_method", info.FullMethod),
		)
		ctx = logger.WithContext(ctx, rpcLogger)

		resp, err := handler(ctx, req)

		code := status.Code(err)
		level := slog.LevelInfo
		switch code {
		case codes.Internal, codes.Unavailable, codes.DataLoss, codes.Unknown:
			level = slog.LevelError
		case codes.DeadlineExceeded, codes.Unimplemented:
			level = slog.LevelWarn
		}

		rpcLogger.Log(ctx, level, "grpc request completed",
			slog.String("code", code.String()),
			slog.Duration("duration", time.Since(start)),
			slog.String("peer_addr", peerAddr(ctx)),
		)

		return resp, err
	}
}

// ObservabilityInterceptor records the call count by method and status code
// and the handling latency by method.
//
// It sits after the logger and before authentication in the chain, so
// rejected calls are counted too.
func ObservabilityInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		observability.RPCReqDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		observability.RPCReqTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()

		return resp, err
	}
}

// AuthInterceptor accepts calls whose x-api-key (or "authorization: Bearer")
// metadata hashes to apiKeyHash, the same key the REST API accepts.
//
// An empty hash disables authentication; configuration refuses that in
// production.
func AuthInterceptor(apiKeyHash string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if apiKeyHash == "" {
			return handler(ctx, req)
		}

		key := firstMetadata(ctx, apiKeyKey)
		if key == "" {
			if auth := firstMetadata(ctx, authorizationKey); strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
		}

		if !validation.APIKeyMatches(key, apiKeyHash) {
			logger.FromContext(ctx).Warn("rejected unauthenticated call")
			return nil, status.Error(codes.Unauthenticated, "a valid API key is required")
		}
		return handler(ctx, req)
	}
}

func firstMetadata(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(key); len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

// peerAddr extracts the client address, or "unknown" (bufconn has none worth logging).
func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}
