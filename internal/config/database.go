package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
	"time"
)

// maxIdentifierLen is PostgreSQL's NAMEDATALEN minus one.
const maxIdentifierLen = 63

var secureSSLModes = []string{"require", "verify-ca", "verify-full"}

// DatabaseConfig locates the PostgreSQL store that keeps finished reports for
// the server's /reports endpoints.
type DatabaseConfig struct {
	Enabled bool `envconfig:"ENABLED" default:"false"`

	// URL wins over the individual fields.
	URL      string `envconfig:"URL"`
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT"`
	Name     string `envconfig:"NAME"`
	User     string `envconfig:"USER"`
	Password string `envconfig:"PASSWORD"`
	SSLMode  string `envconfig:"SSL_MODE" default:"prefer" validate:"oneof=disable allow prefer require verify-ca verify-full"`

	// Report writes are one INSERT per finished build, so a small pool does.
	MaxConns        int           `envconfig:"MAX_CONNS" default:"5" validate:"min=1"`
	MinConns        int           `envconfig:"MIN_CONNS" default:"1" validate:"min=0"`
	MaxConnLifetime time.Duration `envconfig:"MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `envconfig:"MAX_CONN_IDLE_TIME" default:"30m"`
	ConnectTimeout  time.Duration `envconfig:"CONNECT_TIMEOUT" default:"5s"`
}

func (c *DatabaseConfig) endpoint() endpoint {
	return endpoint{
		backend:  "database",
		url:      c.URL,
		host:     c.Host,
		port:     c.Port,
		password: c.Password,
		schemes:  []string{"postgres", "postgresql"},
	}
}

// ConnectionString returns URL when set, otherwise a postgres:// URL built
// from the fields with user and password escaped.
func (c *DatabaseConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}

	user := url.User(c.User)
	if c.Password != "" {
		user = url.UserPassword(c.User, c.Password)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Target is the store's address for logs.
func (c *DatabaseConfig) Target() string {
	return c.endpoint().target()
}

// Validate is a no-op while the store is disabled. In production the
// password must be strong and the connection encrypted, whichever form the
// settings take.
func (c *DatabaseConfig) Validate(environment string) error {
	if !c.Enabled {
		return nil
	}

	u, err := c.endpoint().validate(environment)
	if err != nil {
		return err
	}

	sslMode := c.SSLMode
	if u != nil {
		if u.User == nil || u.User.Username() == "" {
			return fmt.Errorf("invalid database URL: user is required in URL")
		}
		if strings.TrimPrefix(u.Path, "/") == "" {
			return fmt.Errorf("invalid database URL: database name is required in URL path")
		}
		// libpq defaults to prefer when the URL says nothing.
		sslMode = u.Query().Get("sslmode")
		if sslMode == "" {
			sslMode = "prefer"
		}
	} else {
		if err := validateNoWhitespace(c.Name, "database name"); err != nil {
			return err
		}
		if len(c.Name) > maxIdentifierLen {
			return fmt.Errorf("database name cannot exceed %d characters", maxIdentifierLen)
		}
		if err := validateNoWhitespace(c.User, "database user"); err != nil {
			return err
		}
	}

	if environment == EnvironmentProduction && !slices.Contains(secureSSLModes, sslMode) {
		return fmt.Errorf("database SSL mode must be one of %v in production environment, got %q", secureSSLModes, sslMode)
	}

	if c.MinConns > c.MaxConns {
		return fmt.Errorf("min_conns (%d) cannot be greater than max_conns (%d)", c.MinConns, c.MaxConns)
	}
	return nil
}
