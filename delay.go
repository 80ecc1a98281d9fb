package relay

import (
	"math"
	"math/rand"
	"time"
)

// DelayStrategy computes the wait before a retry attempt.
//
// Pattern: Strategy — swap delay algorithms (constant, exponential, linear,
// jitter, Retry-After-derived) without changing retry logic.
type DelayStrategy interface {
	// Delay returns the duration to wait before the given retry attempt
	// (0-indexed: attempt 0 is the delay before the first retry) and
	// whether the strategy has an opinion for this outcome. The failed
	// attempt's request, response and error are available so adapters can
	// derive protocol-aware delays; plain backoffs ignore them.
	Delay(attempt int, req *Request, resp *Response, err error) (time.Duration, bool)
}

// DelayFunc adapts an ordinary function into a [DelayStrategy]. This allows
// callers to provide ad-hoc delay logic without defining a type.
type DelayFunc func(attempt int, req *Request, resp *Response, err error) (time.Duration, bool)

// Delay calls the underlying function.
func (f DelayFunc) Delay(attempt int, req *Request, resp *Response, err error) (time.Duration, bool) {
	return f(attempt, req, resp, err)
}

// firstDelay evaluates strategies in order and returns the first defined
// delay (short-circuit, not additive). If every strategy declines, the
// delay is 0.
func firstDelay(strategies []DelayStrategy, attempt int, req *Request, resp *Response, err error) time.Duration {
	for _, s := range strategies {
		if d, ok := s.Delay(attempt, req, resp, err); ok {
			return d
		}
	}

	return 0
}

// ---------------------------------------------------------------------------
// ConstantDelay
// ---------------------------------------------------------------------------

// constantDelay returns the same delay for every attempt.
type constantDelay struct {
	d time.Duration
}

func (b *constantDelay) Delay(int, *Request, *Response, error) (time.Duration, bool) {
	return b.d, true
}

// ConstantDelay returns a [DelayStrategy] that always returns a fixed delay
// d regardless of the attempt number.
func ConstantDelay(d time.Duration) DelayStrategy {
	return &constantDelay{d: d}
}

// ---------------------------------------------------------------------------
// ExponentialBackoff
// ---------------------------------------------------------------------------

// exponentialBackoff returns base * 2^attempt.
type exponentialBackoff struct {
	base time.Duration
}

func (b *exponentialBackoff) Delay(attempt int, _ *Request, _ *Response, _ error) (time.Duration, bool) {
	return time.Duration(float64(b.base) * math.Pow(2, float64(attempt))), true
}

// ExponentialBackoff returns a [DelayStrategy] whose delay doubles with
// each attempt: base * 2^attempt.
func ExponentialBackoff(base time.Duration) DelayStrategy {
	return &exponentialBackoff{base: base}
}

// ---------------------------------------------------------------------------
// LinearBackoff
// ---------------------------------------------------------------------------

// linearBackoff returns step * (attempt + 1).
type linearBackoff struct {
	step time.Duration
}

func (b *linearBackoff) Delay(attempt int, _ *Request, _ *Response, _ error) (time.Duration, bool) {
	return b.step * time.Duration(attempt+1), true
}

// LinearBackoff returns a [DelayStrategy] whose delay increases linearly:
// step * (attempt + 1).
func LinearBackoff(step time.Duration) DelayStrategy {
	return &linearBackoff{step: step}
}

// ---------------------------------------------------------------------------
// ExponentialJitterBackoff
// ---------------------------------------------------------------------------

// exponentialJitterBackoff returns a random duration in [0, base * 2^attempt].
type exponentialJitterBackoff struct {
	base time.Duration
}

func (b *exponentialJitterBackoff) Delay(attempt int, _ *Request, _ *Response, _ error) (time.Duration, bool) {
	max := int64(float64(b.base) * math.Pow(2, float64(attempt)))
	if max <= 0 {
		return 0, true
	}

	return time.Duration(rand.Int63n(max + 1)), true
}

// ExponentialJitterBackoff returns a [DelayStrategy] whose delay is a
// random duration uniformly distributed in [0, base * 2^attempt]. This
// prevents thundering-herd problems by spreading retries across time.
func ExponentialJitterBackoff(base time.Duration) DelayStrategy {
	return &exponentialJitterBackoff{base: base}
}

// ---------------------------------------------------------------------------
// CappedDelay
// ---------------------------------------------------------------------------

// cappedDelay clamps another strategy's delay to a maximum.
type cappedDelay struct {
	inner DelayStrategy
	max   time.Duration
}

func (b *cappedDelay) Delay(attempt int, req *Request, resp *Response, err error) (time.Duration, bool) {
	d, ok := b.inner.Delay(attempt, req, resp, err)
	if !ok {
		return 0, false
	}

	if d > b.max {
		d = b.max
	}

	return d, true
}

// CappedDelay wraps inner so that its delay never exceeds max.
func CappedDelay(inner DelayStrategy, max time.Duration) DelayStrategy {
	return &cappedDelay{inner: inner, max: max}
}
