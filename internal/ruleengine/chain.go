package ruleengine

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/sigtrap/shaderstrip/internal/variant"
)

// Chain is the orchestrator: it runs the active rules in ascending order over
// each compiler invocation.
type Chain struct {
	mu     sync.RWMutex
	rules  []Rule
	logger *slog.Logger // Dedicated logger instance (DI)
}

// New creates a chain over rules, sorted by order (ties broken by name).
// If logger is nil, it defaults to slog.Default().
func New(logger *slog.Logger, rules ...Rule) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chain{rules: slices.Clone(rules), logger: logger}
	c.sort()
	return c
}

func (c *Chain) sort() {
	slices.SortStableFunc(c.rules, func(a, b Rule) int {
		if n := cmp.Compare(a.Order(), b.Order()); n != 0 {
			return n
		}
		return cmp.Compare(a.Name(), b.Name())
	})
}

// Rules returns the rules in evaluation order.
func (c *Chain) Rules() []Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.rules)
}

// Len returns the number of rules, active or not.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rules)
}

// Initialize prepares every active rule, stopping at the first failure.
func (c *Chain) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	active := 0
	for _, r := range c.rules {
		if !r.Active() {
			c.logger.Debug("skipping inactive rule", "rule", r.Name())
			continue
		}
		if err := r.Initialize(ctx); err != nil {
			return fmt.Errorf("failed to initialize rule %s: %w", r.Name(), err)
		}
		active++
	}

	c.logger.Info("rule chain initialized", "rules", len(c.rules), "active", active)
	return nil
}

// Strip runs the chain over one invocation. It stops as soon as the list is
// empty, so no rule ever sees an empty list.
func (c *Chain) Strip(rec Recorder, snip Snippet, list *variant.List) {
	if rec == nil {
		rec = Discard
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, r := range c.rules {
		if len(*list) == 0 {
			return
		}
		if !r.Active() || r.Capabilities() == 0 {
			continue
		}
		r.Strip(rec, snip, list)
	}
}

// Swap exchanges the order values of the rules at positions i and j and
// re-sorts. Rules that share an order value are renumbered first so the
// exchange always moves them.
func (c *Chain) Swap(i, j int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i < 0 || j < 0 || i >= len(c.rules) || j >= len(c.rules) {
		return fmt.Errorf("rule position out of range: %d, %d (have %d)", i, j, len(c.rules))
	}
	if i == j {
		return nil
	}

	a, b := c.rules[i], c.rules[j]
	if a.Order() == b.Order() {
		c.normalize()
	}
	oa, ob := a.Order(), b.Order()
	a.SetOrder(ob)
	b.SetOrder(oa)
	c.sort()
	return nil
}

// MoveUp moves the rule at i one position earlier.
func (c *Chain) MoveUp(i int) error {
	return c.Swap(i, i-1)
}

// MoveDown moves the rule at i one position later.
func (c *Chain) MoveDown(i int) error {
	return c.Swap(i, i+1)
}

// Normalize renumbers the rules 0..n-1 in their current order.
func (c *Chain) Normalize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.normalize()
}

func (c *Chain) normalize() {
	c.sort()
	for i, r := range c.rules {
		r.SetOrder(i)
	}
}
