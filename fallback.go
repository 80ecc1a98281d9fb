package relay

import "context"

// Pattern: Fallback — catches a final error and either returns a static
// response or delegates to a fallback function, providing a last line of
// defence at the outer edge of the chain.

// Fallback returns a policy that swallows errors from next and returns
// resp instead.
func Fallback(resp *Response, opts ...FallbackOption) Policy {
	return FallbackFunc(func(error) (*Response, error) {
		return resp, nil
	}, opts...)
}

// FallbackFunc returns a policy that, on error from next, calls fn with
// the error and returns its result.
func FallbackFunc(fn func(err error) (*Response, error), opts ...FallbackOption) Policy {
	cfg := fallbackConfig{hooks: &Hooks{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			resp, err := next(ctx, req)
			if err != nil {
				cfg.hooks.emitFallbackUsed(err)

				return fn(err)
			}

			return resp, nil
		}
	}
}

type fallbackConfig struct {
	hooks *Hooks
}

// FallbackOption configures the fallback policy.
type FallbackOption func(*fallbackConfig)

// FallbackHooks sets the lifecycle hooks the fallback policy emits on.
func FallbackHooks(h *Hooks) FallbackOption {
	return func(cfg *fallbackConfig) {
		cfg.hooks = h
	}
}
