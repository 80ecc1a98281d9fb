package relay

import (
	"context"
	"time"
)

// Pattern: Timeout — races the downstream call against a deadline,
// returning ErrTimeout if it does not complete in time. Distinguishes
// timeout-caused cancellation from parent context cancellation. Retry and
// breaker predicates handle the resulting error like any other.

// Timeout returns a policy that cancels next after d.
func Timeout(d time.Duration, opts ...TimeoutOption) Policy {
	cfg := timeoutConfig{hooks: &Hooks{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			// If the parent context is already done, return its error
			// immediately.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			timeoutCtx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			type outcome struct {
				resp *Response
				err  error
			}

			ch := make(chan outcome, 1)

			go func() {
				resp, err := next(timeoutCtx, req)
				ch <- outcome{resp: resp, err: err}
			}()

			select {
			case o := <-ch:
				return o.resp, o.err
			case <-timeoutCtx.Done():
				// If the parent context is done, the parent was cancelled
				// externally rather than by the deadline.
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}

				cfg.hooks.emitTimeout()

				return nil, ErrTimeout
			}
		}
	}
}

type timeoutConfig struct {
	hooks *Hooks
}

// TimeoutOption configures the timeout policy.
type TimeoutOption func(*timeoutConfig)

// TimeoutHooks sets the lifecycle hooks the timeout policy emits on.
func TimeoutHooks(h *Hooks) TimeoutOption {
	return func(cfg *timeoutConfig) {
		cfg.hooks = h
	}
}
