package striprpc

import (
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"

	"github.com/sigtrap/shaderstrip/internal/config"
	"github.com/sigtrap/shaderstrip/internal/validation"
)

// NewGRPCServer builds the gRPC engine: interceptor chain, stream and message
// limits and keepalive from rpc, API key and TLS files from server. The
// caller registers services and serves it.
func NewGRPCServer(log *slog.Logger, rpc *config.RPCConfig, server *config.ServerConfig) (*grpc.Server, error) {
	validation.AssertNotNil(rpc, "rpc config")
	validation.AssertNotNil(server, "server config")

	opts := []grpc.ServerOption{
		// Order matters: the logger must wrap everything so rejected calls
		// are logged with their request ID.
		grpc.ChainUnaryInterceptor(
			RequestLoggerInterceptor(log),
			ObservabilityInterceptor(),
			AuthInterceptor(server.APIKeyHash),
		),
		grpc.MaxConcurrentStreams(rpc.MaxConcurrentStreams),
		grpc.MaxRecvMsgSize(rpc.MaxRecvMsgBytes),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:             rpc.KeepaliveTime,
			Timeout:          rpc.KeepaliveTimeout,
			MaxConnectionAge: rpc.MaxConnectionAge,
		}),
	}

	if server.TLSEnabled {
		creds, err := credentials.NewServerTLSFromFile(server.TLSCert, server.TLSKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load rpc TLS credentials: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}

	return grpc.NewServer(opts...), nil
}
