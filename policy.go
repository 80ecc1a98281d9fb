package relay

import "context"

// Pattern: Decorator — each policy wraps the next handler, forming a
// composable chain where order determines execution semantics.

type (
	// Handler executes a request and produces a response or an error.
	// A terminal Transport is just a Handler with no further delegate.
	Handler func(ctx context.Context, req *Request) (*Response, error)

	// Policy wraps a Handler with additional behavior. A policy must call
	// next zero times (short-circuit, e.g. a cache hit) or exactly once;
	// calling it more than once per invocation violates the contract.
	Policy func(next Handler) Handler
)

// Chain composes multiple policies into a single policy.
//
// Chain(a, b, c) produces a(b(c(next))) — a is outermost, c is innermost:
// a's pre-logic runs first, the transport runs last, and post-logic unwinds
// in reverse order. Chain() with zero policies returns an identity policy
// that passes through to next.
//
// Separate invocations of the composed handler share nothing unless
// individual policies intentionally capture shared state (a breaker, a
// throttle, a cache).
func Chain(policies ...Policy) Policy {
	return func(next Handler) Handler {
		for i := len(policies) - 1; i >= 0; i-- {
			next = policies[i](next)
		}

		return next
	}
}

// Compose builds a ready-to-run Handler from an ordered policy list and a
// terminal transport. It is shorthand for Chain(policies...)(transport).
func Compose(transport Handler, policies ...Policy) Handler {
	return Chain(policies...)(transport)
}
