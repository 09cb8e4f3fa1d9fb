package config

import (
	"fmt"
	"strings"
	"time"
)

// ObservabilityConfig configures the health and metrics listener and the
// background samplers that feed its gauges.
type ObservabilityConfig struct {
	Port string `envconfig:"PORT" default:"9090"`

	// Timeout bounds reads, writes and a full readiness pass.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"5s" validate:"min=1s"`

	LivenessPath  string `envconfig:"LIVENESS_PATH" default:"/healthz"`
	ReadinessPath string `envconfig:"READINESS_PATH" default:"/readyz"`
	MetricsPath   string `envconfig:"METRICS_PATH" default:"/metrics"`

	// MonitorInterval is how often pool and session cache gauges are sampled.
	MonitorInterval time.Duration `envconfig:"MONITOR_INTERVAL" default:"15s" validate:"min=1s"`
}

// Validate checks the port and that the three routes are distinct absolute paths.
func (o *ObservabilityConfig) Validate() error {
	if err := validatePort(o.Port, "observability"); err != nil {
		return err
	}

	seen := make(map[string]string, 3)
	for _, route := range []struct{ name, path string }{
		{"liveness", o.LivenessPath},
		{"readiness", o.ReadinessPath},
		{"metrics", o.MetricsPath},
	} {
		if !strings.HasPrefix(route.path, "/") {
			return fmt.Errorf("observability %s path must start with '/', got %q", route.name, route.path)
		}
		if other, dup := seen[route.path]; dup {
			return fmt.Errorf("observability %s and %s paths are both %q", other, route.name, route.path)
		}
		seen[route.path] = route.name
	}
	return nil
}
