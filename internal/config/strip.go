package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sigtrap/shaderstrip/internal/validation"
)

// StripConfig contains the settings of the stripping pipeline itself.
type StripConfig struct {
	// ChainFile is the YAML rule chain definition.
	ChainFile string `envconfig:"CHAIN_FILE" default:"shaderstrip.yaml" validate:"required"`

	// ProjectDir anchors relative keep-list paths in the chain file.
	ProjectDir string `envconfig:"PROJECT_DIR" default:"."`

	// CatalogFile is the host-exported shader catalog. Keep-list rules need it.
	CatalogFile string `envconfig:"CATALOG_FILE"`

	// Batch driver input/output. An empty OutputFile streams the result to stdout.
	ManifestFile string `envconfig:"MANIFEST_FILE"`
	OutputFile   string `envconfig:"OUTPUT_FILE"`

	// BuildID names the batch run in reports and becomes the report file name
	// and Redis key, so it is held to the same charset the API enforces.
	// Generated when empty.
	BuildID string `envconfig:"BUILD_ID"`

	// LogDir receives one report file per build. Empty disables the file sink.
	LogDir string `envconfig:"LOG_DIR"`

	// MetricsFile, when set, receives a Prometheus textfile at the end of a batch run.
	MetricsFile string `envconfig:"METRICS_FILE"`

	// Sessions held by the server.
	SessionTTL      time.Duration `envconfig:"SESSION_TTL" default:"2h" validate:"min=1m"`
	SessionCapacity int           `envconfig:"SESSION_CAPACITY" default:"64" validate:"min=1"`
}

// Validate checks the paths for obvious mistakes. Existence is checked when
// the files are opened, so errors name the failing document.
func (c *StripConfig) Validate() error {
	for name, path := range map[string]string{
		"chain file":    c.ChainFile,
		"catalog file":  c.CatalogFile,
		"manifest file": c.ManifestFile,
		"output file":   c.OutputFile,
		"log dir":       c.LogDir,
		"metrics file":  c.MetricsFile,
		"build id":      c.BuildID,
	} {
		if path != "" && strings.TrimSpace(path) != path {
			return fmt.Errorf("%s cannot contain surrounding whitespace", name)
		}
	}

	if err := validation.BuildID(c.BuildID); err != nil {
		return fmt.Errorf("invalid build id %q: %w", c.BuildID, err)
	}

	if c.OutputFile != "" && c.ManifestFile != "" &&
		filepath.Clean(c.OutputFile) == filepath.Clean(c.ManifestFile) {
		return fmt.Errorf("output file cannot overwrite the manifest file")
	}

	return nil
}
