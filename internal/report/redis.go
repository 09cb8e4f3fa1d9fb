package report

import (
	"context"
	"time"

	"github.com/sigtrap/shaderstrip/internal/cache"
	"github.com/sigtrap/shaderstrip/internal/validation"
)

var _ Sink = (*RedisSink)(nil)

// RedisSink pushes report lines to a Redis list that expires after ttl.
type RedisSink struct {
	cache cache.Service
	ttl   time.Duration
}

// NewRedisSink creates a sink over the report cache.
func NewRedisSink(c cache.Service, ttl time.Duration) *RedisSink {
	validation.AssertPresent(c, "report cache")
	return &RedisSink{cache: c, ttl: ttl}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, r *Report) error {
	return s.cache.PushReport(ctx, r.BuildID, r.Lines(), s.ttl)
}
