package relay

import "context"

// Pattern: Retry — masks transient failures with bounded re-execution; a
// caller-supplied predicate decides, a caller-supplied strategy list paces.

// RetryPredicate decides whether the outcome of an attempt should be
// retried. Exactly one of resp and err is meaningful per call, mirroring
// the Handler contract. attempt is 0-indexed. The full request is provided
// so protocol-specific filtering (e.g. only retry idempotent methods) can
// be layered on without the retry policy knowing about protocols. The
// predicate may block (e.g. consult a remote decision service); it should
// honor ctx.
type RetryPredicate func(ctx context.Context, req *Request, resp *Response, err error, attempt int) bool

// RetryOnError retries any attempt that returned an error, regardless of
// classification.
func RetryOnError(_ context.Context, _ *Request, _ *Response, err error, _ int) bool {
	return err != nil
}

// RetryOnTransientError retries errors unless they are explicitly marked
// [Permanent]. Successful responses are never retried.
func RetryOnTransientError(_ context.Context, _ *Request, _ *Response, err error, _ int) bool {
	return err != nil && IsTransient(err)
}

// retryConfig holds the optional configuration for retry behavior.
type retryConfig struct {
	tries   int
	onRetry func(attempt int, err error, resp *Response)
	clock   Clock
	hooks   *Hooks
}

// RetryOption configures the retry policy.
type RetryOption func(*retryConfig)

// Tries sets the total number of attempts (first call included). Values
// below 1 are treated as 1: the call executes exactly once.
func Tries(n int) RetryOption {
	return func(cfg *retryConfig) {
		cfg.tries = n
	}
}

// OnRetry sets a side-effect-only observability callback fired before each
// re-attempt with the 1-indexed number of the attempt that just failed. It
// cannot veto or alter the retry decision.
func OnRetry(fn func(attempt int, err error, resp *Response)) RetryOption {
	return func(cfg *retryConfig) {
		cfg.onRetry = fn
	}
}

// RetryClock sets the clock used for backoff sleeps.
func RetryClock(c Clock) RetryOption {
	return func(cfg *retryConfig) {
		cfg.clock = c
	}
}

// RetryHooks sets the lifecycle hooks the retry policy emits on.
func RetryHooks(h *Hooks) RetryOption {
	return func(cfg *retryConfig) {
		cfg.hooks = h
	}
}

const defaultTries = 3

// Retry returns a policy that re-executes next while pred allows it, up to
// the configured number of tries (default 3).
//
// After every attempt — response or error alike — pred is consulted. When
// it declines, or attempts are exhausted, the last outcome is returned
// exactly as received, never wrapped. Otherwise the delay before the next
// attempt is the first defined value produced by strategies, evaluated in
// order (0 when all decline), and the wait honors ctx cancellation.
func Retry(pred RetryPredicate, strategies []DelayStrategy, opts ...RetryOption) Policy {
	cfg := retryConfig{
		tries: defaultTries,
		clock: RealClock{},
		hooks: &Hooks{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.tries < 1 {
		cfg.tries = 1
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			attempt := 0

			for {
				resp, err := next(ctx, req)

				if !pred(ctx, req, resp, err, attempt) || attempt+1 >= cfg.tries {
					return resp, err
				}

				attempt++

				cfg.hooks.emitRetry(attempt, err, resp)
				if cfg.onRetry != nil {
					cfg.onRetry(attempt, err, resp)
				}

				// Strategies see the 0-indexed retry number: 0 for the
				// delay before the first re-attempt.
				delay := firstDelay(strategies, attempt-1, req, resp, err)
				if sleepErr := sleep(ctx, cfg.clock, delay); sleepErr != nil {
					return nil, sleepErr
				}
			}
		}
	}
}
