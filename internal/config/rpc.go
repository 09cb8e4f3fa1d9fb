package config

import (
	"fmt"
	"net"
	"time"
)

// RPCConfig configures the optional gRPC listener. It serves the same build
// sessions as the REST API and reuses the server's API key and TLS files, so
// only transport tuning lives here.
type RPCConfig struct {
	Enabled bool   `envconfig:"ENABLED" default:"false"`
	Port    string `envconfig:"PORT" default:"50051"`
	Host    string `envconfig:"HOST" default:"0.0.0.0"`

	// gRPC specific
	MaxConcurrentStreams uint32        `envconfig:"MAX_CONCURRENT_STREAMS" default:"100" validate:"min=1"`
	KeepaliveTime        time.Duration `envconfig:"KEEPALIVE_TIME" default:"120s"`
	KeepaliveTimeout     time.Duration `envconfig:"KEEPALIVE_TIMEOUT" default:"20s"`
	MaxConnectionAge     time.Duration `envconfig:"MAX_CONNECTION_AGE" default:"300s"`

	// MaxRecvMsgBytes caps one strip call, like SERVER_MAX_BODY_BYTES does for REST.
	MaxRecvMsgBytes int `envconfig:"MAX_RECV_MSG_BYTES" default:"33554432" validate:"min=1024"` // 32MB
}

// Addr returns the listen address in host:port form.
func (c *RPCConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Validate checks the listener. A disabled listener is not checked.
func (c *RPCConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if err := validatePort(c.Port, "rpc"); err != nil {
		return err
	}
	if err := validateNoWhitespace(c.Host, "rpc host"); err != nil {
		return err
	}

	// A keepalive ping that outlives its interval would never be answered in time.
	if c.KeepaliveTime > 0 && c.KeepaliveTimeout >= c.KeepaliveTime {
		return fmt.Errorf("rpc keepalive timeout (%s) must be shorter than keepalive time (%s)",
			c.KeepaliveTimeout, c.KeepaliveTime)
	}
	return nil
}
