package ruleengine

import "fmt"

// ConfigError reports a rule that cannot be set up: a missing or unreadable
// document, an unknown kind or an invalid definition. It aborts initialization.
type ConfigError struct {
	// Rule is the offending rule name; empty for chain-level problems.
	Rule string
	// Document is the file involved, if any.
	Document string
	Err      error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Rule != "" && e.Document != "":
		return fmt.Sprintf("ruleengine: rule %q: %s: %v", e.Rule, e.Document, e.Err)
	case e.Rule != "":
		return fmt.Sprintf("ruleengine: rule %q: %v", e.Rule, e.Err)
	case e.Document != "":
		return fmt.Sprintf("ruleengine: %s: %v", e.Document, e.Err)
	default:
		return fmt.Sprintf("ruleengine: %v", e.Err)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
