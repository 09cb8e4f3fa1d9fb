package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sigtrap/shaderstrip/internal/validation"
)

var _ Sink = (*FileSink)(nil)

// FileSink writes one shaderstrip_<build-id>.log per build into a directory.
type FileSink struct {
	dir string
}

// NewFileSink returns a sink writing into dir. The directory is created on first delivery.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (s *FileSink) Name() string { return "file" }

// Path returns the file a report for buildID is written to.
func (s *FileSink) Path(buildID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("shaderstrip_%s.log", buildID))
}

// Deliver writes the report, replacing any previous file for the same build.
func (s *FileSink) Deliver(_ context.Context, r *Report) error {
	if err := validation.BuildID(r.BuildID); err != nil {
		return fmt.Errorf("refusing report file for build %q: %w", r.BuildID, err)
	}
	if r.BuildID == "" {
		return fmt.Errorf("report has no build id")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.Create(s.Path(r.BuildID))
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	if _, err := r.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return f.Close()
}
