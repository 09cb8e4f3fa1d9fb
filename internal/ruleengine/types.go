// Package ruleengine provides the strip rules and the chain that runs them.
// It implements a Strategy pattern: every rule kind decides on its own which
// variants of a compiler invocation survive, and the Chain applies the active
// rules in ascending order until nothing is left to strip.
package ruleengine

import (
	"context"
	"fmt"
	"strings"

	"github.com/sigtrap/shaderstrip/internal/variant"
)

// Kind is the discriminator of a rule definition.
type Kind string

const (
	KindKeepList      Kind = "keep_list"
	KindForceKeywords Kind = "force_keywords"
	KindPassFilter    Kind = "pass_filter"
)

// Capability describes at which granularity a rule inspects an invocation.
type Capability uint8

const (
	// CheckShader rules decide on the shader identity alone.
	CheckShader Capability = 1 << iota
	// CheckPass rules decide on the (shader, pass) pair.
	CheckPass
	// CheckVariants rules decide per variant.
	CheckVariants
	// MutatesVariants rules rewrite variant keywords instead of removing them.
	MutatesVariants
)

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{CheckShader, "check_shader"},
	{CheckPass, "check_pass"},
	{CheckVariants, "check_variants"},
	{MutatesVariants, "mutates_variants"},
}

// Has reports whether every flag of other is set on c.
func (c Capability) Has(other Capability) bool {
	return c&other == other
}

// Names lists the set flags, for listings.
func (c Capability) Names() []string {
	out := []string{}
	for _, n := range capabilityNames {
		if c.Has(n.c) {
			out = append(out, n.name)
		}
	}
	return out
}

func (c Capability) String() string {
	return strings.Join(c.Names(), "|")
}

// Snippet identifies one compiler invocation: a pass of a shader.
type Snippet struct {
	Shader variant.Shader   `json:"shader"`
	Pass   variant.PassType `json:"pass"`
}

func (s Snippet) String() string {
	return s.Shader.Name + "::" + s.Pass.String()
}

// Removal records a strip decision. Index is -1 when the whole variant list
// of the invocation was dropped at once.
type Removal struct {
	Rule    string  `json:"rule"`
	Snippet Snippet `json:"snippet"`
	Index   int     `json:"index"`
	Count   int     `json:"count"`
}

// Whole reports whether the removal dropped the complete variant list.
func (r Removal) Whole() bool {
	return r.Index < 0
}

func (r Removal) String() string {
	if r.Whole() {
		return fmt.Sprintf("Stripped %s [all %d variants] by %s", r.Snippet, r.Count, r.Rule)
	}
	return fmt.Sprintf("Stripped %s variant %d/%d by %s", r.Snippet, r.Index, r.Count, r.Rule)
}

// Recorder receives the removals made while stripping.
type Recorder interface {
	Record(r Removal)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(r Removal)

// Record implements Recorder.
func (f RecorderFunc) Record(r Removal) { f(r) }

// Discard is a Recorder that drops everything.
var Discard Recorder = RecorderFunc(func(Removal) {})

// Rule is a single strip strategy.
type Rule interface {
	Name() string
	Kind() Kind
	Active() bool
	Order() int
	SetOrder(order int)
	Capabilities() Capability
	Description() string
	Help() string

	// Initialize loads whatever the rule needs before the first Strip call.
	// Calling it again rebuilds that state from scratch.
	Initialize(ctx context.Context) error

	// Strip removes or rewrites entries of list in place and reports every
	// removal to rec. It must not be called with an empty list.
	Strip(rec Recorder, snip Snippet, list *variant.List)
}

// Base carries the identity fields shared by all rule kinds.
type Base struct {
	name   string
	active bool
	order  int
}

// NewBase returns the shared rule identity.
func NewBase(name string, active bool, order int) Base {
	return Base{name: name, active: active, order: order}
}

func (b *Base) Name() string       { return b.name }
func (b *Base) Active() bool       { return b.active }
func (b *Base) Order() int         { return b.order }
func (b *Base) SetOrder(order int) { b.order = order }

// removeWhole records and performs the removal of every variant of list.
func removeWhole(rec Recorder, rule string, snip Snippet, list *variant.List) {
	n := len(*list)
	if n == 0 {
		return
	}
	rec.Record(Removal{Rule: rule, Snippet: snip, Index: -1, Count: n})
	list.Clear()
}

// Info is the listing form of a rule.
type Info struct {
	Name         string   `json:"name"`
	Kind         Kind     `json:"kind"`
	Active       bool     `json:"active"`
	Order        int      `json:"order"`
	Capabilities []string `json:"capabilities"`
	Description  string   `json:"description"`
	Help         string   `json:"help"`
}

// Describe returns the listing form of r.
func Describe(r Rule) Info {
	return Info{
		Name:         r.Name(),
		Kind:         r.Kind(),
		Active:       r.Active(),
		Order:        r.Order(),
		Capabilities: r.Capabilities().Names(),
		Description:  r.Description(),
		Help:         r.Help(),
	}
}
