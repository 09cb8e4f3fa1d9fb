// Package match implements the name patterns used to exempt shaders from
// stripping.
package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// Mode selects how a Pattern value is compared against a name.
type Mode string

const (
	ModeEquals   Mode = "equals"
	ModeContains Mode = "contains"
	ModePrefix   Mode = "prefix"
	ModeSuffix   Mode = "suffix"
	ModeRegex    Mode = "regex"
	// ModeGlob uses '/' as separator: "UI/*" matches "UI/Default" but not
	// "UI/Lit/Text"; "UI/**" matches both.
	ModeGlob Mode = "glob"
)

// Pattern is the configuration form of a name matcher.
type Pattern struct {
	Mode  Mode   `yaml:"mode" json:"mode" validate:"required,oneof=equals contains prefix suffix regex glob"`
	Value string `yaml:"value" json:"value" validate:"required"`
}

func (p Pattern) String() string {
	return fmt.Sprintf("%s(%s)", p.Mode, p.Value)
}

// StringMatch is a compiled Pattern.
type StringMatch struct {
	pattern Pattern
	fn      func(string) bool
}

// Compile validates p and prepares it for matching. Regular expressions and
// globs are compiled once here.
func Compile(p Pattern) (*StringMatch, error) {
	if p.Value == "" {
		return nil, fmt.Errorf("empty %s pattern", p.Mode)
	}

	m := &StringMatch{pattern: p}
	v := p.Value

	switch p.Mode {
	case ModeEquals:
		m.fn = func(s string) bool { return s == v }
	case ModeContains:
		m.fn = func(s string) bool { return strings.Contains(s, v) }
	case ModePrefix:
		m.fn = func(s string) bool { return strings.HasPrefix(s, v) }
	case ModeSuffix:
		m.fn = func(s string) bool { return strings.HasSuffix(s, v) }
	case ModeRegex:
		re, err := regexp.Compile(v)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", v, err)
		}
		m.fn = re.MatchString
	case ModeGlob:
		g, err := glob.Compile(v, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", v, err)
		}
		m.fn = g.Match
	default:
		return nil, fmt.Errorf("unknown match mode %q", p.Mode)
	}

	return m, nil
}

// Evaluate reports whether name matches.
func (m *StringMatch) Evaluate(name string) bool {
	return m.fn(name)
}

// Pattern returns the configuration m was compiled from.
func (m *StringMatch) Pattern() Pattern {
	return m.pattern
}

// Set is an ordered list of matchers; a name matches the set when any member matches.
type Set []*StringMatch

// CompileAll compiles every pattern, failing on the first invalid one.
func CompileAll(patterns []Pattern) (Set, error) {
	set := make(Set, 0, len(patterns))
	for i, p := range patterns {
		m, err := Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
		set = append(set, m)
	}
	return set, nil
}

// Any returns the first matcher that accepts name.
func (s Set) Any(name string) (*StringMatch, bool) {
	for _, m := range s {
		if m.Evaluate(name) {
			return m, true
		}
	}
	return nil, false
}
