package relay

import (
	"context"
	"time"
)

// Pattern: Hedged Request — after a delay, fire a second concurrent
// attempt. The first response wins; the loser is cancelled. This trims tail
// latency by racing redundant requests against slow downstreams.

// hedgeOutcome holds the result of one hedged attempt.
type hedgeOutcome struct {
	resp      *Response
	err       error
	isPrimary bool
}

type hedgeConfig struct {
	clock Clock
	hooks *Hooks
}

// HedgeOption configures the hedge policy.
type HedgeOption func(*hedgeConfig)

// HedgeClock sets the clock used for the hedge delay.
func HedgeClock(c Clock) HedgeOption {
	return func(cfg *hedgeConfig) {
		cfg.clock = c
	}
}

// HedgeHooks sets the lifecycle hooks the hedge policy emits on.
func HedgeHooks(h *Hooks) HedgeOption {
	return func(cfg *hedgeConfig) {
		cfg.hooks = h
	}
}

// Hedge returns a policy that, when next has not completed after delay,
// fires a second concurrent attempt with the same request. Place it
// innermost so each hedged attempt runs the real transport.
func Hedge(delay time.Duration, opts ...HedgeOption) Policy {
	cfg := hedgeConfig{
		clock: RealClock{},
		hooks: &Hooks{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			// Buffered for both attempts so neither goroutine leaks.
			results := make(chan hedgeOutcome, 2)

			primaryCtx, primaryCancel := context.WithCancel(ctx)
			defer primaryCancel()

			go func() {
				resp, err := next(primaryCtx, req)
				results <- hedgeOutcome{resp: resp, err: err, isPrimary: true}
			}()

			timer := cfg.clock.NewTimer(delay)

			select {
			case first := <-results:
				timer.Stop()

				return first.resp, first.err

			case <-timer.C():
				// Primary is still running; fire the hedge.
				cfg.hooks.emitHedgeTriggered()

				hedgeCtx, hedgeCancel := context.WithCancel(ctx)
				defer hedgeCancel()

				go func() {
					resp, err := next(hedgeCtx, req)
					results <- hedgeOutcome{resp: resp, err: err, isPrimary: false}
				}()

				return awaitHedge(ctx, results, primaryCancel, hedgeCancel)

			case <-ctx.Done():
				timer.Stop()

				return nil, ctx.Err()
			}
		}
	}
}

// awaitHedge waits for the primary and hedge attempts after both are in
// flight. The first success wins and the loser is cancelled; if both fail,
// the first error received is returned.
func awaitHedge(ctx context.Context, results chan hedgeOutcome, primaryCancel, hedgeCancel context.CancelFunc) (*Response, error) {
	select {
	case first := <-results:
		if first.err == nil {
			cancelLoser(first, primaryCancel, hedgeCancel)

			return first.resp, nil
		}

		select {
		case second := <-results:
			if second.err == nil {
				cancelLoser(second, primaryCancel, hedgeCancel)

				return second.resp, nil
			}

			return nil, first.err

		case <-ctx.Done():
			return nil, ctx.Err()
		}

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func cancelLoser(winner hedgeOutcome, primaryCancel, hedgeCancel context.CancelFunc) {
	if winner.isPrimary {
		hedgeCancel()
	} else {
		primaryCancel()
	}
}
