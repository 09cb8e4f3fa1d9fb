package observability

import "context"

// Checker is implemented by every dependency the readiness endpoint verifies.
// Implementations must be thread-safe and respect the context deadline.
type Checker interface {
	// Name returns the component identifier used as key in the readiness body (e.g. "postgres").
	Name() string
	// Check returns nil when the component is usable.
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	Component string
	Fn        func(ctx context.Context) error
}

func (c CheckerFunc) Name() string                    { return c.Component }
func (c CheckerFunc) Check(ctx context.Context) error { return c.Fn(ctx) }
