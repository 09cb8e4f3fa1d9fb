// Package config loads the settings shared by the shaderstrip batch driver and
// server from SHADERSTRIP_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is prepended to every environment variable name.
	EnvPrefix = "SHADERSTRIP"

	// EnvironmentProduction switches on the stricter backend and server checks.
	EnvironmentProduction = "production"
)

// Config is the whole configuration tree. Database and Redis are report
// backends and stay unchecked unless enabled.
type Config struct {
	App           AppConfig           `envconfig:"APP"`
	Server        ServerConfig        `envconfig:"SERVER"`
	RPC           RPCConfig           `envconfig:"RPC"`
	Observability ObservabilityConfig `envconfig:"OBSERVABILITY"`
	Database      DatabaseConfig      `envconfig:"DB"`
	Redis         RedisConfig         `envconfig:"REDIS"`
	Strip         StripConfig         `envconfig:"STRIP"`
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	Name            string        `envconfig:"NAME" default:"shaderstrip"`
	Version         string        `envconfig:"VERSION" default:"dev"`
	Environment     string        `envconfig:"ENV" default:"development" validate:"oneof=development staging production"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// Load reads configuration from environment variables with the SHADERSTRIP
// prefix (SHADERSTRIP_SERVER_PORT, SHADERSTRIP_STRIP_BUILD_ID, ...), applies
// defaults and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate runs the struct tag rules, then each section's own checks in
// declaration order. The first failure wins.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	env := c.App.Environment
	for _, check := range []func() error{
		func() error { return c.Server.Validate(env) },
		c.RPC.Validate,
		c.Observability.Validate,
		c.validateListeners,
		func() error { return c.Database.Validate(env) },
		func() error { return c.Redis.Validate(env) },
		c.Strip.Validate,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// validateListeners rejects two servers bound to the same port.
func (c *Config) validateListeners() error {
	owners := map[string]string{c.Server.Port: "server"}
	ports := []struct{ name, port string }{{"observability", c.Observability.Port}}
	if c.RPC.Enabled {
		ports = append(ports, struct{ name, port string }{"rpc", c.RPC.Port})
	}
	for _, p := range ports {
		if other, taken := owners[p.port]; taken {
			return fmt.Errorf("%s port %s is already used by the %s listener", p.name, p.port, other)
		}
		owners[p.port] = p.name
	}
	return nil
}

// LogConfig logs the effective settings. Backend targets are redacted.
func (c *Config) LogConfig(log *slog.Logger) {
	attrs := []any{
		slog.Group("app",
			slog.String("name", c.App.Name),
			slog.String("version", c.App.Version),
			slog.String("environment", c.App.Environment),
			slog.String("log_level", c.App.LogLevel),
			slog.String("log_format", c.App.LogFormat),
		),
		slog.Group("strip",
			slog.String("chain_file", c.Strip.ChainFile),
			slog.String("project_dir", c.Strip.ProjectDir),
			slog.String("catalog_file", c.Strip.CatalogFile),
			slog.String("log_dir", c.Strip.LogDir),
		),
		slog.String("server_addr", c.Server.Addr()),
		slog.Bool("tls_enabled", c.Server.TLSEnabled),
		slog.String("observability_port", c.Observability.Port),
	}
	if c.RPC.Enabled {
		attrs = append(attrs, slog.String("rpc_addr", c.RPC.Addr()))
	}
	if c.Database.Enabled {
		attrs = append(attrs, slog.String("report_store", c.Database.Target()))
	}
	if c.Redis.Enabled {
		attrs = append(attrs, slog.String("report_cache", c.Redis.Target()))
	}
	log.Info("configuration loaded", attrs...)
}
