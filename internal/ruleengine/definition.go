package ruleengine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sigtrap/shaderstrip/internal/assets"
	"github.com/sigtrap/shaderstrip/internal/match"
	"github.com/sigtrap/shaderstrip/internal/variant"
)

// ChainDefinition is the file form of a rule chain:
//
//	rules:
//	  - name: keep-list
//	    kind: keep_list
//	    order: 0
//	    keep_list:
//	      collections: [Assets/Shaders/Keep.shadervariants]
type ChainDefinition struct {
	Rules []Definition `yaml:"rules" validate:"dive"`
}

// Definition describes one rule. Exactly the section matching Kind is read.
type Definition struct {
	Name string `yaml:"name" validate:"required"`
	Kind Kind   `yaml:"kind" validate:"required,oneof=keep_list force_keywords pass_filter"`
	// Active defaults to true when omitted.
	Active *bool `yaml:"active"`
	Order  int   `yaml:"order"`

	KeepList      *KeepListDefinition      `yaml:"keep_list" validate:"required_if=Kind keep_list"`
	ForceKeywords *ForceKeywordsDefinition `yaml:"force_keywords" validate:"required_if=Kind force_keywords"`
	PassFilter    *PassFilterDefinition    `yaml:"pass_filter" validate:"required_if=Kind pass_filter"`
}

type KeepListDefinition struct {
	Collections []string        `yaml:"collections" validate:"required,min=1,dive,required"`
	StripHidden bool            `yaml:"strip_hidden"`
	Ignore      []match.Pattern `yaml:"ignore" validate:"dive"`
}

type ForceKeywordsDefinition struct {
	Builtins []ConditionDefinition `yaml:"builtins" validate:"dive"`
	Keywords []ConditionDefinition `yaml:"keywords" validate:"dive"`
}

// ConditionDefinition is shared by builtin and keyword conditions; for
// builtins Match and Force are define names such as UNITY_NO_DXT5nm.
type ConditionDefinition struct {
	Match       string `yaml:"match" validate:"required"`
	Force       string `yaml:"force" validate:"required"`
	InvertMatch bool   `yaml:"invert_match"`
	InvertForce bool   `yaml:"invert_force"`
}

type PassFilterDefinition struct {
	// Passes accepts pass names or integer codes.
	Passes  []string        `yaml:"passes" validate:"required,min=1,dive,required"`
	Shaders []match.Pattern `yaml:"shaders" validate:"dive"`
}

// LoadDefinitions reads and validates a chain definition file.
func LoadDefinitions(path string) (*ChainDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Document: path, Err: err}
	}
	defer f.Close()

	return ParseDefinitions(path, f)
}

// ParseDefinitions decodes a chain definition. Unknown fields are rejected so
// a misspelt option cannot silently fall back to its default.
func ParseDefinitions(name string, r io.Reader) (*ChainDefinition, error) {
	var def ChainDefinition

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigError{Document: name, Err: fmt.Errorf("invalid chain definition: %w", err)}
	}

	if err := validator.New().Struct(&def); err != nil {
		return nil, &ConfigError{Document: name, Err: fmt.Errorf("chain definition validation failed: %w", err)}
	}

	seen := make(map[string]struct{}, len(def.Rules))
	for _, d := range def.Rules {
		if _, dup := seen[d.Name]; dup {
			return nil, &ConfigError{Rule: d.Name, Document: name, Err: errors.New("duplicate rule name")}
		}
		seen[d.Name] = struct{}{}
	}

	return &def, nil
}

// BuildOptions carries what rules need beyond their definitions.
type BuildOptions struct {
	ProjectDir string
	Resolver   assets.Resolver
	Logger     *slog.Logger
}

// Build compiles definitions into a chain. It does not initialize the rules.
func Build(def *ChainDefinition, opts BuildOptions) (*Chain, error) {
	rules := make([]Rule, 0, len(def.Rules))
	for _, d := range def.Rules {
		r, err := compileRule(d, opts)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return New(opts.Logger, rules...), nil
}

// compileRule turns a single definition into its rule kind.
func compileRule(d Definition, opts BuildOptions) (Rule, error) {
	active := d.Active == nil || *d.Active
	base := NewBase(d.Name, active, d.Order)

	switch d.Kind {
	case KindKeepList:
		if d.KeepList == nil {
			return nil, &ConfigError{Rule: d.Name, Err: errors.New("missing keep_list section")}
		}
		if opts.Resolver == nil {
			return nil, &ConfigError{Rule: d.Name, Err: errors.New("keep_list rules need a shader catalog")}
		}
		return NewKeepList(base, KeepListConfig{
			Collections: d.KeepList.Collections,
			StripHidden: d.KeepList.StripHidden,
			Ignore:      d.KeepList.Ignore,
			ProjectDir:  opts.ProjectDir,
			Resolver:    opts.Resolver,
		}, opts.Logger), nil

	case KindForceKeywords:
		if d.ForceKeywords == nil {
			return nil, &ConfigError{Rule: d.Name, Err: errors.New("missing force_keywords section")}
		}
		cfg, err := compileForceKeywords(d.ForceKeywords)
		if err != nil {
			return nil, &ConfigError{Rule: d.Name, Err: err}
		}
		return NewForceKeywords(base, cfg), nil

	case KindPassFilter:
		if d.PassFilter == nil {
			return nil, &ConfigError{Rule: d.Name, Err: errors.New("missing pass_filter section")}
		}
		passes := make([]variant.PassType, 0, len(d.PassFilter.Passes))
		for _, s := range d.PassFilter.Passes {
			p, err := variant.ParsePassType(s)
			if err != nil {
				return nil, &ConfigError{Rule: d.Name, Err: err}
			}
			passes = append(passes, p)
		}
		return NewPassFilter(base, PassFilterConfig{Passes: passes, Shaders: d.PassFilter.Shaders}), nil

	default:
		return nil, &ConfigError{Rule: d.Name, Err: fmt.Errorf("unknown rule kind %q", d.Kind)}
	}
}

func compileForceKeywords(d *ForceKeywordsDefinition) (ForceKeywordsConfig, error) {
	var cfg ForceKeywordsConfig

	for i, b := range d.Builtins {
		m, err := variant.ParseBuiltinDefine(b.Match)
		if err != nil {
			return cfg, fmt.Errorf("builtin condition %d: %w", i, err)
		}
		f, err := variant.ParseBuiltinDefine(b.Force)
		if err != nil {
			return cfg, fmt.Errorf("builtin condition %d: %w", i, err)
		}
		cfg.Builtins = append(cfg.Builtins, BuiltinCondition{
			Match: m, Force: f, InvertMatch: b.InvertMatch, InvertForce: b.InvertForce,
		})
	}

	for _, k := range d.Keywords {
		cfg.Keywords = append(cfg.Keywords, KeywordCondition(k))
	}
	return cfg, nil
}
