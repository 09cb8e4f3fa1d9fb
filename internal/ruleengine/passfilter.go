package ruleengine

import (
	"context"
	"fmt"
	"strings"

	"github.com/sigtrap/shaderstrip/internal/match"
	"github.com/sigtrap/shaderstrip/internal/variant"
)

// PassFilterConfig configures a PassFilter rule.
type PassFilterConfig struct {
	Passes []variant.PassType
	// Shaders restricts the rule to shaders whose name matches; empty means all.
	Shaders []match.Pattern
}

// PassFilter strips every variant of the configured pass types.
type PassFilter struct {
	Base
	cfg     PassFilterConfig
	passes  map[variant.PassType]struct{}
	shaders match.Set
}

// Compile-time check.
var _ Rule = (*PassFilter)(nil)

func NewPassFilter(base Base, cfg PassFilterConfig) *PassFilter {
	return &PassFilter{Base: base, cfg: cfg}
}

func (p *PassFilter) Kind() Kind { return KindPassFilter }

func (p *PassFilter) Capabilities() Capability { return CheckPass }

func (p *PassFilter) Description() string {
	return "Strips every variant of the selected pass types."
}

func (p *PassFilter) Help() string {
	names := make([]string, len(p.cfg.Passes))
	for i, pass := range p.cfg.Passes {
		names[i] = pass.String()
	}
	help := "Passes: " + strings.Join(names, ", ") + "."
	if len(p.cfg.Shaders) > 0 {
		help += fmt.Sprintf(" Only shaders matching %d patterns.", len(p.cfg.Shaders))
	}
	return help
}

func (p *PassFilter) Initialize(context.Context) error {
	if len(p.cfg.Passes) == 0 {
		return &ConfigError{Rule: p.Name(), Err: fmt.Errorf("no passes selected")}
	}
	shaders, err := match.CompileAll(p.cfg.Shaders)
	if err != nil {
		return &ConfigError{Rule: p.Name(), Err: fmt.Errorf("invalid shader pattern: %w", err)}
	}

	p.passes = make(map[variant.PassType]struct{}, len(p.cfg.Passes))
	for _, pass := range p.cfg.Passes {
		p.passes[pass] = struct{}{}
	}
	p.shaders = shaders
	return nil
}

func (p *PassFilter) Strip(rec Recorder, snip Snippet, list *variant.List) {
	if _, ok := p.passes[snip.Pass]; !ok {
		return
	}
	if len(p.shaders) > 0 {
		if _, ok := p.shaders.Any(snip.Shader.Name); !ok {
			return
		}
	}
	removeWhole(rec, p.Name(), snip, list)
}
