package relay

import (
	"context"
	"sync/atomic"
	"time"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

type (
	breakerConfig struct {
		failureThreshold int
		resetTimeout     time.Duration
		clock            Clock
		hooks            *Hooks
	}

	// BreakerOption configures a circuit breaker.
	BreakerOption func(*breakerConfig)

	// Breaker isolates a failing downstream with a three-state machine and
	// fast-fails calls while it is down.
	//
	// Pattern: Circuit Breaker — consecutive returned errors open the
	// circuit; after the reset timeout a single probe call is admitted and
	// its outcome decides between closing and re-opening. Lock-free via
	// atomic CAS; the probe slot is claimed atomically so concurrent
	// callers arriving during a probe are rejected, not queued.
	Breaker struct {
		clock Clock
		hooks *Hooks
		cfg   breakerConfig

		state         atomic.Uint32 // stateClosed | stateOpen | stateHalfOpen
		failures      atomic.Int64  // consecutive failures while closed
		openedAtNano  atomic.Int64  // unix nano of the last open transition
		probeInFlight atomic.Bool   // half-open probe slot
	}
)

// Circuit breaker states (stored in atomic.Uint32).
const (
	stateClosed   uint32 = 0
	stateOpen     uint32 = 1
	stateHalfOpen uint32 = 2
)

func defaultBreakerConfig() breakerConfig {
	return breakerConfig{
		failureThreshold: 5,
		resetTimeout:     30 * time.Second,
		clock:            RealClock{},
		hooks:            &Hooks{},
	}
}

// FailureThreshold sets the number of consecutive failures before opening.
func FailureThreshold(n int) BreakerOption {
	return func(cfg *breakerConfig) {
		cfg.failureThreshold = n
	}
}

// ResetTimeout sets how long the breaker stays open before admitting a
// half-open probe. Time is checked lazily on each call; there is no
// background timer.
func ResetTimeout(d time.Duration) BreakerOption {
	return func(cfg *breakerConfig) {
		cfg.resetTimeout = d
	}
}

// BreakerClock sets the clock used for reset timing.
func BreakerClock(c Clock) BreakerOption {
	return func(cfg *breakerConfig) {
		cfg.clock = c
	}
}

// BreakerHooks sets the lifecycle hooks the breaker emits on.
func BreakerHooks(h *Hooks) BreakerOption {
	return func(cfg *breakerConfig) {
		cfg.hooks = h
	}
}

// NewBreaker creates a circuit breaker with the given options. A breaker
// instance is owned by its caller; share one across pipelines only when
// they should trip together.
func NewBreaker(opts ...BreakerOption) *Breaker {
	cfg := defaultBreakerConfig()
	for _, o := range opts {
		o(&cfg)
	}

	return &Breaker{
		clock: cfg.clock,
		hooks: cfg.hooks,
		cfg:   cfg,
	}
}

// Allow checks whether a call may proceed. It returns nil when the breaker
// is closed, or when this caller claimed the single half-open probe slot.
// It returns ErrBreakerOpen when the circuit is open and the reset timeout
// has not elapsed, or when a probe is already in flight.
func (b *Breaker) Allow() error {
	s := b.state.Load()

	if s == stateClosed {
		return nil
	}

	if s == stateOpen {
		openedAt := time.Unix(0, b.openedAtNano.Load())
		if b.clock.Since(openedAt) < b.cfg.resetTimeout {
			b.hooks.emitBreakerReject()

			return ErrBreakerOpen
		}

		// Reset timeout elapsed: transition lazily to half-open. If the
		// CAS loses, another caller already transitioned; fall through and
		// compete for the probe slot either way.
		if b.state.CompareAndSwap(stateOpen, stateHalfOpen) {
			b.hooks.emitBreakerHalfOpen()
		}
	}

	// Half-open: exactly one concurrent call may probe.
	if b.probeInFlight.CompareAndSwap(false, true) {
		return nil
	}

	b.hooks.emitBreakerReject()

	return ErrBreakerOpen
}

// RecordSuccess records a successful call.
func (b *Breaker) RecordSuccess() {
	switch b.state.Load() {
	case stateClosed:
		b.failures.Store(0)

	case stateHalfOpen:
		// The probe succeeded: close the circuit.
		if b.state.CompareAndSwap(stateHalfOpen, stateClosed) {
			b.failures.Store(0)
			b.probeInFlight.Store(false)
			b.hooks.emitBreakerClose()
		}

	default:
		// stateOpen — no action on success
	}
}

// RecordFailure records a failed call.
func (b *Breaker) RecordFailure() {
	switch b.state.Load() {
	case stateClosed:
		if b.failures.Add(1) < int64(b.cfg.failureThreshold) {
			break
		}

		if b.state.CompareAndSwap(stateClosed, stateOpen) {
			b.openedAtNano.Store(b.clock.Now().UnixNano())
			b.hooks.emitBreakerOpen()
		}

	case stateHalfOpen:
		// The probe failed: back to open, restarting the reset window.
		if b.state.CompareAndSwap(stateHalfOpen, stateOpen) {
			b.openedAtNano.Store(b.clock.Now().UnixNano())
			b.probeInFlight.Store(false)
			b.hooks.emitBreakerOpen()
		}

	default:
		// stateOpen — already open, no state change needed
	}
}

// State returns the current state as a string: "closed", "open", or
// "half_open".
func (b *Breaker) State() string {
	switch b.state.Load() {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Policy returns a policy that guards next with b. Failure counting is
// based solely on returned errors; response status codes are not
// inspected — an upstream adapter that raises on bad statuses supplies
// that classification.
func (b *Breaker) Policy() Policy {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if err := b.Allow(); err != nil {
				return nil, err
			}

			resp, err := next(ctx, req)
			if err != nil {
				b.RecordFailure()
			} else {
				b.RecordSuccess()
			}

			return resp, err
		}
	}
}

// CircuitBreaker returns a policy backed by a fresh breaker instance. Use
// [NewBreaker] plus [Breaker.Policy] when the instance must be shared or
// inspected.
func CircuitBreaker(opts ...BreakerOption) Policy {
	return NewBreaker(opts...).Policy()
}
