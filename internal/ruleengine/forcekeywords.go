package ruleengine

import (
	"context"
	"fmt"
	"strings"

	"github.com/sigtrap/shaderstrip/internal/variant"
)

// BuiltinCondition forces a platform define when another one is (or, with
// InvertMatch, is not) enabled. InvertForce disables Force instead.
type BuiltinCondition struct {
	Match       variant.BuiltinDefine
	Force       variant.BuiltinDefine
	InvertMatch bool
	InvertForce bool
}

// KeywordCondition is the shader keyword counterpart of BuiltinCondition.
type KeywordCondition struct {
	Match       string
	Force       string
	InvertMatch bool
	InvertForce bool
}

// ForceKeywordsConfig configures a ForceKeywords rule.
type ForceKeywordsConfig struct {
	Builtins []BuiltinCondition
	Keywords []KeywordCondition
}

// ForceKeywords rewrites variant keywords. It never removes variants.
type ForceKeywords struct {
	Base
	cfg ForceKeywordsConfig
}

// Compile-time check.
var _ Rule = (*ForceKeywords)(nil)

func NewForceKeywords(base Base, cfg ForceKeywordsConfig) *ForceKeywords {
	return &ForceKeywords{Base: base, cfg: cfg}
}

func (f *ForceKeywords) Kind() Kind { return KindForceKeywords }

func (f *ForceKeywords) Capabilities() Capability { return MutatesVariants }

func (f *ForceKeywords) Description() string {
	return "Forces keywords and builtin defines on or off when a condition matches."
}

func (f *ForceKeywords) Help() string {
	return fmt.Sprintf("%d builtin and %d keyword conditions. Never strips variants.",
		len(f.cfg.Builtins), len(f.cfg.Keywords))
}

// Initialize rejects blank keywords and out-of-range defines.
func (f *ForceKeywords) Initialize(context.Context) error {
	for i, c := range f.cfg.Keywords {
		if strings.TrimSpace(c.Match) == "" || strings.TrimSpace(c.Force) == "" {
			return &ConfigError{Rule: f.Name(), Err: fmt.Errorf("keyword condition %d: match and force are required", i)}
		}
	}
	for i, c := range f.cfg.Builtins {
		if !c.Match.Valid() || !c.Force.Valid() {
			return &ConfigError{Rule: f.Name(), Err: fmt.Errorf("builtin condition %d: unknown builtin define", i)}
		}
	}
	return nil
}

// Strip evaluates, for every variant, the builtin conditions and then the
// keyword conditions in order. Each condition sees the state left by the
// previous ones.
func (f *ForceKeywords) Strip(_ Recorder, _ Snippet, list *variant.List) {
	for i := range *list {
		v := &(*list)[i]

		for _, c := range f.cfg.Builtins {
			if v.Platform.IsEnabled(c.Match) == c.InvertMatch {
				continue
			}
			if c.InvertForce {
				v.Platform.Disable(c.Force)
			} else {
				v.Platform.Enable(c.Force)
			}
		}

		for _, c := range f.cfg.Keywords {
			if v.Keywords.IsEnabled(c.Match) == c.InvertMatch {
				continue
			}
			if c.InvertForce {
				v.Keywords.Disable(c.Force)
			} else {
				v.Keywords.Enable(c.Force)
			}
		}
	}
}
