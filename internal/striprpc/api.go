// Package striprpc serves the build session lifecycle over gRPC.
//
// It is the high-throughput path for build farms: a host opens a build,
// streams one Strip call per compiler invocation and finishes the build to
// collect its report, exactly as with the REST API in stripapi. Both
// transports share one session cache, so a build opened over one can be
// driven over the other.
//
// There is no .proto contract. Messages are the Go types in messages.go,
// carried by a JSON codec registered under CodecName, and the service
// descriptor is written by hand below.
package striprpc

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"

	"github.com/sigtrap/shaderstrip/internal/cache"
	"github.com/sigtrap/shaderstrip/internal/report"
	"github.com/sigtrap/shaderstrip/internal/ruleengine"
	"github.com/sigtrap/shaderstrip/internal/session"
	"github.com/sigtrap/shaderstrip/internal/validation"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "shaderstrip.v1.Strip"

// Full method names, as seen by interceptors and in metrics.
const (
	MethodBegin   = "/" + ServiceName + "/Begin"
	MethodStrip   = "/" + ServiceName + "/Strip"
	MethodFinish  = "/" + ServiceName + "/Finish"
	MethodAbandon = "/" + ServiceName + "/Abandon"
)

// StripServer is the server side of the service.
type StripServer interface {
	Begin(context.Context, *BeginRequest) (*BeginReply, error)
	Strip(context.Context, *StripRequest) (*StripReply, error)
	Finish(context.Context, *BuildRef) (*FinishReply, error)
	Abandon(context.Context, *BuildRef) (*AbandonReply, error)
}

// Deps are the collaborators of the service. They are the same values the
// REST API receives.
type Deps struct {
	Definitions *ruleengine.ChainDefinition
	Build       ruleengine.BuildOptions

	// Sessions must be the cache the REST API uses (stripapi.NewSessionCache).
	Sessions *cache.MemoryCache[*session.Session]

	Sinks  []report.Sink
	Logger *slog.Logger
}

// Service implements StripServer.
type Service struct {
	definitions *ruleengine.ChainDefinition
	build       ruleengine.BuildOptions
	sessions    *cache.MemoryCache[*session.Session]
	sinks       []report.Sink
	logger      *slog.Logger
}

var _ StripServer = (*Service)(nil)

// NewService creates the gRPC service.
// Panics if the chain definitions or the session cache are nil.
func NewService(deps Deps) *Service {
	validation.AssertNotNil(deps.Definitions, "chain definitions")
	validation.AssertNotNil(deps.Sessions, "session cache")

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Service{
		definitions: deps.Definitions,
		build:       deps.Build,
		sessions:    deps.Sessions,
		sinks:       deps.Sinks,
		logger:      deps.Logger,
	}
}

// Register connects the service to a grpc.Server.
func (s *Service) Register(srv *grpc.Server) {
	srv.RegisterService(&serviceDesc, s)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StripServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Begin", StripServer.Begin),
		unary("Strip", StripServer.Strip),
		unary("Finish", StripServer.Finish),
		unary("Abandon", StripServer.Abandon),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shaderstrip/v1/strip",
}

// unary adapts a typed method to grpc.MethodDesc, the way protoc-gen-go-grpc
// generated handlers do: decode, then run through the interceptor chain.
func unary[Req, Resp any](name string, call func(StripServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name

	invoke := func(srv any, ctx context.Context, req *Req) (any, error) {
		out, err := call(srv.(StripServer), ctx, req)
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return invoke(srv, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return invoke(srv, ctx, req.(*Req))
			})
		},
	}
}
