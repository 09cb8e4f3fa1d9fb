// Package session owns one build: it initializes the rule chain, runs every
// compiler invocation through it, keeps the removal trail and produces the
// report when the build finishes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sigtrap/shaderstrip/internal/assets"
	"github.com/sigtrap/shaderstrip/internal/observability"
	"github.com/sigtrap/shaderstrip/internal/report"
	"github.com/sigtrap/shaderstrip/internal/ruleengine"
	"github.com/sigtrap/shaderstrip/internal/validation"
	"github.com/sigtrap/shaderstrip/internal/variant"
)

// ErrFinished is returned by Strip and Finish once a session is closed.
var ErrFinished = errors.New("session already finished")

// Session is a build in progress. It is safe for concurrent use; calls are serialized.
type Session struct {
	mu sync.Mutex

	id       string
	chain    *ruleengine.Chain
	resolver assets.Resolver
	logger   *slog.Logger
	now      func() time.Time

	startedAt time.Time
	stripTime time.Duration

	invocations int
	variantsIn  int
	variantsOut int
	removals    []ruleengine.Removal
	kept        []report.Kept

	closed bool
}

// Options tunes Begin. The zero value is usable.
type Options struct {
	// ID overrides the generated build ID, e.g. with the host's own build GUID.
	ID string
	// Logger receives per-removal debug lines. Defaults to slog.Default().
	Logger *slog.Logger
	// Clock is used for report timestamps; tests pin it.
	Clock func() time.Time
	// Resolver, if set, canonicalizes incoming shaders against the project
	// catalog. Shaders it cannot resolve are treated as built-in.
	Resolver assets.Resolver
}

// Begin initializes every active rule of chain and opens a session. A
// configuration or parse error aborts the build before any shader is seen.
func Begin(ctx context.Context, chain *ruleengine.Chain, opts Options) (*Session, error) {
	validation.AssertNotNil(chain, "rule chain")
	if err := validation.BuildID(opts.ID); err != nil {
		return nil, fmt.Errorf("invalid build id %q: %w", opts.ID, err)
	}

	s := &Session{
		id:       opts.ID,
		chain:    chain,
		resolver: opts.Resolver,
		logger:   opts.Logger,
		now:      opts.Clock,
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.logger = s.logger.With(slog.String("build_id", s.id))

	s.logger.Info("initialising shader strippers", slog.Int("rules", chain.Len()))
	if err := chain.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin build %s: %w", s.id, err)
	}

	s.startedAt = s.now()
	observability.SessionsStarted.Inc()
	observability.SessionsActive.Inc()
	return s, nil
}

// ID returns the build ID.
func (s *Session) ID() string {
	return s.id
}

// StartedAt returns when the chain finished initializing.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// Strip runs one compiler invocation through the chain, shortening list in place.
func (s *Session) Strip(shader variant.Shader, pass variant.PassType, list *variant.List) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrFinished
	}

	snip := ruleengine.Snippet{Shader: s.resolve(shader), Pass: pass}
	in := len(*list)

	start := time.Now()
	s.chain.Strip(ruleengine.RecorderFunc(s.record), snip, list)
	elapsed := time.Since(start)

	out := len(*list)
	s.stripTime += elapsed
	s.invocations++
	s.variantsIn += in
	s.variantsOut += out
	if out > 0 {
		s.kept = append(s.kept, report.Kept{Snippet: snip, Variants: out})
	}

	observability.StripInvocations.Inc()
	observability.StripVariantsIn.Add(float64(in))
	observability.StripVariantsOut.Add(float64(out))
	observability.StripDuration.Observe(elapsed.Seconds())
	return nil
}

func (s *Session) resolve(shader variant.Shader) variant.Shader {
	if s.resolver == nil {
		return shader
	}
	if known, ok := s.resolver.Resolve(shader.GUID); ok {
		return known
	}
	shader.Path = ""
	return shader
}

// record is the chain's Recorder; s.mu is held by Strip.
func (s *Session) record(r ruleengine.Removal) {
	s.removals = append(s.removals, r)

	removed := 1
	if r.Whole() {
		removed = r.Count
	}
	observability.StripRemovals.WithLabelValues(r.Rule).Add(float64(removed))

	s.logger.Debug(r.String())
}

// Finish closes the session and returns its report. Later calls fail with ErrFinished.
func (s *Session) Finish() (*report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrFinished
	}
	s.closed = true

	r := &report.Report{
		BuildID:     s.id,
		StartedAt:   s.startedAt,
		FinishedAt:  s.now(),
		StripTime:   s.stripTime,
		Invocations: s.invocations,
		VariantsIn:  s.variantsIn,
		VariantsOut: s.variantsOut,
		Removals:    s.removals,
		Kept:        s.kept,
	}

	observability.SessionsActive.Dec()
	observability.SessionsFinished.WithLabelValues("success").Inc()
	s.logger.Info("shader stripping finished",
		slog.Int64("strip_ms", s.stripTime.Milliseconds()),
		slog.Int("invocations", s.invocations),
		slog.Int("variants_in", s.variantsIn),
		slog.Int("variants_out", s.variantsOut),
	)
	return r, nil
}

// Abandon closes a session that will never finish, e.g. one evicted from the
// server's cache. It is a no-op on a closed session.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	observability.SessionsActive.Dec()
	observability.SessionsFinished.WithLabelValues("abandoned").Inc()
	s.logger.Warn("build session abandoned", slog.Int("invocations", s.invocations))
}

// Stats is a point-in-time view of a running session.
type Stats struct {
	ID          string `json:"id"`
	Invocations int    `json:"invocations"`
	VariantsIn  int    `json:"variants_in"`
	VariantsOut int    `json:"variants_out"`
	Removals    int    `json:"removals"`
	Finished    bool   `json:"finished"`
}

// Stats returns the running totals.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		ID:          s.id,
		Invocations: s.invocations,
		VariantsIn:  s.variantsIn,
		VariantsOut: s.variantsOut,
		Removals:    len(s.removals),
		Finished:    s.closed,
	}
}
