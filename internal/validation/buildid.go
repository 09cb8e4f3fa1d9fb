package validation

import (
	"errors"
	"regexp"
	"strings"
)

// MaxBuildIDLength bounds build IDs supplied by a host.
const MaxBuildIDLength = 128

var (
	// ErrBuildIDTooLong is returned for IDs over MaxBuildIDLength.
	ErrBuildIDTooLong = errors.New("build ID must be at most 128 characters")
	// ErrBuildIDCharset is returned for IDs outside [A-Za-z0-9._-] or made of dots only.
	ErrBuildIDCharset = errors.New("build ID may only contain letters, digits, dots, underscores and hyphens")
)

var buildIDRegex = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// BuildID checks a host-supplied build ID. Build IDs become report file names
// and Redis keys, so anything that could leave the log directory or split a
// key is refused. The empty ID is valid: callers generate one.
func BuildID(id string) error {
	if id == "" {
		return nil
	}
	if len(id) > MaxBuildIDLength {
		return ErrBuildIDTooLong
	}
	// "." and ".." name directories.
	if !buildIDRegex.MatchString(id) || strings.Trim(id, ".") == "" {
		return ErrBuildIDCharset
	}
	return nil
}
