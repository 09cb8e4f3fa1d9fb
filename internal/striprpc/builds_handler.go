package striprpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sigtrap/shaderstrip/internal/logger"
	"github.com/sigtrap/shaderstrip/internal/report"
	"github.com/sigtrap/shaderstrip/internal/ruleengine"
	"github.com/sigtrap/shaderstrip/internal/session"
	"github.com/sigtrap/shaderstrip/internal/validation"
)

// Begin opens a build session with its own chain compiled from the
// definitions.
//
// It returns:
//   - INVALID_ARGUMENT if the build ID is malformed.
//   - ALREADY_EXISTS if a build with that ID is running.
//   - RESOURCE_EXHAUSTED if the session cache refused the build.
//   - INTERNAL if the chain cannot be built or initialized.
func (s *Service) Begin(ctx context.Context, req *BeginRequest) (*BeginReply, error) {
	log := logger.FromContext(ctx)

	id := strings.TrimSpace(req.BuildID)
	if err := validation.BuildID(id); err != nil {
		log.Warn("bad request: invalid build_id", slog.String("error", err.Error()))
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	// Cheap early answer for an obvious duplicate; SetIfAbsent below decides races.
	if id != "" {
		if _, ok := s.sessions.Get(id); ok {
			return nil, alreadyRunning(id)
		}
	}

	chain, err := ruleengine.Build(s.definitions, s.build)
	if err != nil {
		log.Error("failed to build rule chain", slog.String("error", err.Error()))
		return nil, status.Errorf(codes.Internal, "failed to build rule chain: %v", err)
	}

	sess, err := session.Begin(ctx, chain, session.Options{
		ID:       id,
		Logger:   s.logger,
		Resolver: s.build.Resolver,
	})
	if err != nil {
		log.Error("failed to initialize build", slog.String("error", err.Error()))
		return nil, status.Error(codes.Internal, err.Error())
	}

	if !s.sessions.SetIfAbsent(sess.ID(), sess) {
		sess.Abandon()
		if _, taken := s.sessions.Get(sess.ID()); taken {
			return nil, alreadyRunning(sess.ID())
		}
		log.Error("session cache rejected build", slog.String("build_id", sess.ID()))
		return nil, status.Error(codes.ResourceExhausted, "session cache is full")
	}

	log.Info("build session opened", slog.String("build_id", sess.ID()), slog.Int("rules", chain.Len()))

	return &BeginReply{
		ID:        sess.ID(),
		StartedAt: sess.StartedAt(),
		Rules:     chain.Len(),
	}, nil
}

// Strip runs one compiler invocation through the build's chain.
//
// It returns NOT_FOUND for an unknown or finished build and INVALID_ARGUMENT
// for a malformed invocation.
func (s *Service) Strip(_ context.Context, req *StripRequest) (*StripReply, error) {
	sess, err := s.lookup(req.BuildID)
	if err != nil {
		return nil, err
	}

	inv := req.Invocation
	if err := inv.Validate(); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid invocation: %v", err)
	}

	in := len(inv.Variants)
	if err := sess.Strip(inv.Shader, inv.Pass, &inv.Variants); err != nil {
		if errors.Is(err, session.ErrFinished) {
			return nil, notFound(sess.ID())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	return &StripReply{
		Variants: inv.Variants,
		Removed:  in - len(inv.Variants),
	}, nil
}

// Finish closes the build and delivers its report to every sink. Delivery
// runs to completion even if the caller goes away.
func (s *Service) Finish(ctx context.Context, req *BuildRef) (*FinishReply, error) {
	sess, err := s.lookup(req.BuildID)
	if err != nil {
		return nil, err
	}

	rep, err := sess.Finish()
	s.sessions.Del(sess.ID())
	if err != nil {
		return nil, notFound(sess.ID())
	}

	dctx, log := logger.With(context.WithoutCancel(ctx), slog.String("build_id", sess.ID()))
	return &FinishReply{
		Summary:        rep.Summary(),
		DeliveryErrors: report.DeliveryErrors(report.Deliver(dctx, log, rep, s.sinks...)),
	}, nil
}

// Abandon drops a running build without a report.
func (s *Service) Abandon(_ context.Context, req *BuildRef) (*AbandonReply, error) {
	sess, err := s.lookup(req.BuildID)
	if err != nil {
		return nil, err
	}

	sess.Abandon()
	s.sessions.Del(sess.ID())
	return &AbandonReply{}, nil
}

func (s *Service) lookup(id string) (*session.Session, error) {
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "build_id is required")
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, notFound(id)
	}
	return sess, nil
}

func notFound(id string) error {
	return status.Errorf(codes.NotFound, "build session %q not found", id)
}

func alreadyRunning(id string) error {
	return status.Errorf(codes.AlreadyExists, "build %q is already in progress", id)
}
