package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// maxRedisDB is the highest logical database of a stock Redis server.
const maxRedisDB = 15

// RedisConfig locates the Redis server that receives report lists and says
// how those lists are keyed and how long they live.
type RedisConfig struct {
	Enabled bool `envconfig:"ENABLED" default:"false"`

	// URL wins over the individual fields. A rediss:// URL implies TLS.
	URL        string `envconfig:"URL"`
	Host       string `envconfig:"HOST"`
	Port       string `envconfig:"PORT"`
	Password   string `envconfig:"PASSWORD"`
	DB         int    `envconfig:"DB" default:"0" validate:"min=0,max=15"`
	TLSEnabled bool   `envconfig:"TLS_ENABLED" default:"false"`

	// Report lists are stored under KeyPrefix + build ID and expire after ReportTTL.
	KeyPrefix string        `envconfig:"KEY_PREFIX" default:"strip:report:"`
	ReportTTL time.Duration `envconfig:"REPORT_TTL" default:"168h" validate:"min=1m"`

	PoolSize        int           `envconfig:"POOL_SIZE" default:"10" validate:"min=1"`
	MinIdleConns    int           `envconfig:"MIN_IDLE_CONNS" default:"2" validate:"min=0"`
	DialTimeout     time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
	PoolTimeout     time.Duration `envconfig:"POOL_TIMEOUT" default:"4s"`
	MaxRetries      int           `envconfig:"MAX_RETRIES" default:"3" validate:"min=0"`
	MinRetryBackoff time.Duration `envconfig:"MIN_RETRY_BACKOFF" default:"8ms"`
	MaxRetryBackoff time.Duration `envconfig:"MAX_RETRY_BACKOFF" default:"512ms"`

	// Startup: the first PING is tried ConnectAttempts times, doubling
	// ConnectBackoff after each failure.
	ConnectAttempts int           `envconfig:"CONNECT_ATTEMPTS" default:"5" validate:"min=1"`
	ConnectBackoff  time.Duration `envconfig:"CONNECT_BACKOFF" default:"2s" validate:"min=1ms"`
}

func (c *RedisConfig) endpoint() endpoint {
	return endpoint{
		backend:  "redis",
		url:      c.URL,
		host:     c.Host,
		port:     c.Port,
		password: c.Password,
		schemes:  []string{"redis", "rediss"},
	}
}

// Addr is host:port for the field form. Callers holding a URL parse it themselves.
func (c *RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Target is the server's address for logs.
func (c *RedisConfig) Target() string {
	return c.endpoint().target()
}

// Validate is a no-op while the cache is disabled.
func (c *RedisConfig) Validate(environment string) error {
	if !c.Enabled {
		return nil
	}

	u, err := c.endpoint().validate(environment)
	if err != nil {
		return err
	}

	tls := c.TLSEnabled
	if u != nil {
		if db := strings.TrimPrefix(u.Path, "/"); db != "" {
			n, err := strconv.Atoi(db)
			if err != nil {
				return fmt.Errorf("invalid redis URL: database number must be a valid integer: %s", db)
			}
			if n < 0 || n > maxRedisDB {
				return fmt.Errorf("invalid redis URL: database number must be between 0 and %d, got %d", maxRedisDB, n)
			}
		}
		tls = u.Scheme == "rediss"
	}
	if environment == EnvironmentProduction && !tls {
		return fmt.Errorf("redis TLS must be enabled in production environment")
	}

	if c.KeyPrefix == "" {
		return fmt.Errorf("redis key prefix cannot be empty")
	}
	if strings.ContainsAny(c.KeyPrefix, " \t\r\n") {
		return fmt.Errorf("redis key prefix cannot contain whitespace")
	}

	if c.MinIdleConns > c.PoolSize {
		return fmt.Errorf("min_idle_conns (%d) cannot be greater than pool_size (%d)", c.MinIdleConns, c.PoolSize)
	}
	return nil
}
