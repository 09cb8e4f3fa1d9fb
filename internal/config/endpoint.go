package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// minProductionPasswordLen applies to every report backend.
const minProductionPasswordLen = 12

// endpoint is the part of a report backend's settings that says where it
// lives. Either url is set, or host and port are.
type endpoint struct {
	backend  string
	url      string
	host     string
	port     string
	password string
	schemes  []string
}

// validate checks whichever form is in use. When a URL was given, it is
// returned parsed so the caller can check its backend-specific parts.
func (e endpoint) validate(environment string) (*url.URL, error) {
	if e.url != "" {
		u, err := parseAndValidateURL(e.url, e.schemes)
		if err != nil {
			return nil, fmt.Errorf("invalid %s URL: %w", e.backend, err)
		}
		if environment == EnvironmentProduction {
			pw, _ := u.User.Password()
			if err := requireProductionPassword(pw, e.backend); err != nil {
				return nil, err
			}
		}
		return u, nil
	}

	if err := validateNoWhitespace(e.host, e.backend+" host"); err != nil {
		return nil, err
	}
	if err := validatePort(e.port, e.backend); err != nil {
		return nil, err
	}
	if environment == EnvironmentProduction {
		if err := requireProductionPassword(e.password, e.backend); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// target names the backend for logs, never including the password.
func (e endpoint) target() string {
	if e.url == "" {
		return net.JoinHostPort(e.host, e.port)
	}
	u, err := url.Parse(e.url)
	if err != nil {
		return "<unparseable url>"
	}
	return u.Redacted()
}

func requireProductionPassword(password, backend string) error {
	switch {
	case password == "":
		return fmt.Errorf("%s password is required in production environment", backend)
	case len(password) < minProductionPasswordLen:
		return fmt.Errorf("%s password must be at least %d characters in production", backend, minProductionPasswordLen)
	}
	return nil
}

func validatePort(port, backend string) error {
	if port == "" {
		return fmt.Errorf("%s port cannot be empty", backend)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("%s port must be a number: %w", backend, err)
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("%s port must be between 1 and 65535, got %d", backend, n)
	}
	return nil
}

func validateNoWhitespace(value, field string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if strings.ContainsFunc(value, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }) {
		return fmt.Errorf("%s cannot contain whitespace", field)
	}
	return nil
}

func parseAndValidateURL(raw string, schemes []string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if !slices.Contains(schemes, u.Scheme) {
		return nil, fmt.Errorf("invalid scheme '%s', must be one of: %v", u.Scheme, schemes)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("host is required in URL")
	}
	return u, nil
}
