package striprpc

import (
	"time"

	"github.com/sigtrap/shaderstrip/internal/report"
	"github.com/sigtrap/shaderstrip/internal/session"
	"github.com/sigtrap/shaderstrip/internal/variant"
)

// BeginRequest opens a build. An empty BuildID is generated by the server.
type BeginRequest struct {
	BuildID string `json:"build_id,omitempty"`
}

// BeginReply describes the opened build.
type BeginReply struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Rules     int       `json:"rules"`
}

// StripRequest carries one compiler invocation of a running build.
type StripRequest struct {
	BuildID    string             `json:"build_id"`
	Invocation session.Invocation `json:"invocation"`
}

// StripReply carries the variants that survived.
type StripReply struct {
	Variants variant.List `json:"variants"`
	Removed  int          `json:"removed"`
}

// BuildRef names a running build.
type BuildRef struct {
	BuildID string `json:"build_id"`
}

// FinishReply is the report digest. Sink failures are listed, not returned
// as an error: the build itself succeeded.
type FinishReply struct {
	Summary        report.Summary `json:"summary"`
	DeliveryErrors []string       `json:"delivery_errors,omitempty"`
}

// AbandonReply is empty.
type AbandonReply struct{}
