package observability

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile dumps every metric registered on the default registry to path,
// in the format read by the node_exporter textfile collector. Batch runs end
// before anything could scrape them, so this is how their numbers get out.
func WriteTextfile(path string) error {
	return WriteTextfileFrom(prometheus.DefaultGatherer, path)
}

// WriteTextfileFrom is WriteTextfile with an explicit gatherer.
func WriteTextfileFrom(g prometheus.Gatherer, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	// WriteToTextfile writes a temp file and renames it, so readers never see a partial file.
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
