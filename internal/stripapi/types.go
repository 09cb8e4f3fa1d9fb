package stripapi

import (
	"strings"
	"time"

	"github.com/sigtrap/shaderstrip/internal/report"
	"github.com/sigtrap/shaderstrip/internal/validation"
	"github.com/sigtrap/shaderstrip/internal/variant"
)

// CreateSessionRequest opens a build. The body is optional.
type CreateSessionRequest struct {
	// BuildID reuses the host's own build identifier. Generated when empty.
	BuildID string `json:"build_id,omitempty"`
}

// Sanitize trims surrounding whitespace.
func (r *CreateSessionRequest) Sanitize() {
	r.BuildID = strings.TrimSpace(r.BuildID)
}

// Validate checks the build ID format.
func (r *CreateSessionRequest) Validate() *ErrorResponse {
	if err := validation.BuildID(r.BuildID); err != nil {
		msg := err.Error()
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: strings.ToUpper(msg[:1]) + msg[1:],
		}
	}
	return nil
}

// SessionResponse is returned when a build opens.
type SessionResponse struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Rules     int       `json:"rules"`
}

// StripResponse carries the variants that survived one invocation.
type StripResponse struct {
	Variants variant.List `json:"variants"`
	Removed  int          `json:"removed"`
}

// FinishResponse is the report digest of a finished build. Sink failures do
// not fail the request; they are listed instead.
type FinishResponse struct {
	report.Summary
	DeliveryErrors []string `json:"delivery_errors,omitempty"`
}

// StoredReport is a persisted report as served by /reports.
type StoredReport struct {
	BuildID     string    `json:"build_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Invocations int       `json:"invocations"`
	VariantsIn  int       `json:"variants_in"`
	VariantsOut int       `json:"variants_out"`
	Lines       []string  `json:"lines,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PaginatedResponse wraps list endpoints with offset pagination metadata.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination metadata.
type Pagination struct {
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
}

// ErrorResponse represents a structured API error.
type ErrorResponse struct {
	// Code is machine-readable, e.g. "ERR_INVALID_INPUT".
	Code string `json:"code"`

	Message string `json:"message"`

	// Details lists individual field problems, if any.
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail points at one invalid field.
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}
