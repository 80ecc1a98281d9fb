package relay

import "time"

// Hooks holds optional callback functions for pipeline lifecycle events.
// All fields are nil by default; callers set only the hooks they care about.
// Hooks are strictly observational: they cannot veto or alter any control
// flow decision. Once constructed, a Hooks value must not be mutated — emit
// methods read the function fields without synchronisation, which is safe
// as long as the struct is read-only after initialisation.
//
// Pattern: Observer — decouples pipeline event emission from consumers
// (logging, metrics, alerting) without policies knowing about observers.
type Hooks struct {
	// OnRetry fires before each re-attempt with the 1-indexed attempt
	// number that just failed and its outcome.
	OnRetry func(attempt int, err error, resp *Response)
	// OnBreakerOpen fires when the breaker transitions to open.
	OnBreakerOpen func()
	// OnBreakerClose fires when a probe succeeds and the breaker closes.
	OnBreakerClose func()
	// OnBreakerHalfOpen fires when the reset timeout elapses and the
	// breaker starts probing.
	OnBreakerHalfOpen func()
	// OnBreakerReject fires when a call is refused with ErrBreakerOpen.
	OnBreakerReject func()
	// OnThrottleQueued fires when a call exceeds the window limit and
	// starts waiting.
	OnThrottleQueued func()
	// OnThrottleAdmitted fires when a queued call is admitted, with the
	// time it spent waiting.
	OnThrottleAdmitted func(waited time.Duration)
	// OnCacheHit fires when a fresh cached response is served.
	OnCacheHit func(key string)
	// OnCacheMiss fires when no usable entry exists for a cacheable
	// request.
	OnCacheMiss func(key string)
	// OnCacheStore fires when a response is persisted, with its TTL.
	OnCacheStore func(key string, ttl time.Duration)
	// OnCacheRevalidated fires when a stale entry is confirmed by a 304.
	OnCacheRevalidated func(key string)
	// OnBulkheadFull fires when the bulkhead rejects a call.
	OnBulkheadFull func()
	// OnTimeout fires when a call exceeds its deadline.
	OnTimeout func()
	// OnStaleServed fires when a stale result is served after a failure.
	OnStaleServed func(key string)
	// OnHedgeTriggered fires when the hedge delay elapses and a second
	// attempt launches.
	OnHedgeTriggered func()
	// OnFallbackUsed fires when a fallback value replaces an error.
	OnFallbackUsed func(err error)
}

func (h *Hooks) emitRetry(attempt int, err error, resp *Response) {
	if h.OnRetry != nil {
		h.OnRetry(attempt, err, resp)
	}
}

func (h *Hooks) emitBreakerOpen() {
	if h.OnBreakerOpen != nil {
		h.OnBreakerOpen()
	}
}

func (h *Hooks) emitBreakerClose() {
	if h.OnBreakerClose != nil {
		h.OnBreakerClose()
	}
}

func (h *Hooks) emitBreakerHalfOpen() {
	if h.OnBreakerHalfOpen != nil {
		h.OnBreakerHalfOpen()
	}
}

func (h *Hooks) emitBreakerReject() {
	if h.OnBreakerReject != nil {
		h.OnBreakerReject()
	}
}

func (h *Hooks) emitThrottleQueued() {
	if h.OnThrottleQueued != nil {
		h.OnThrottleQueued()
	}
}

func (h *Hooks) emitThrottleAdmitted(waited time.Duration) {
	if h.OnThrottleAdmitted != nil {
		h.OnThrottleAdmitted(waited)
	}
}

func (h *Hooks) emitCacheHit(key string) {
	if h.OnCacheHit != nil {
		h.OnCacheHit(key)
	}
}

func (h *Hooks) emitCacheMiss(key string) {
	if h.OnCacheMiss != nil {
		h.OnCacheMiss(key)
	}
}

func (h *Hooks) emitCacheStore(key string, ttl time.Duration) {
	if h.OnCacheStore != nil {
		h.OnCacheStore(key, ttl)
	}
}

func (h *Hooks) emitCacheRevalidated(key string) {
	if h.OnCacheRevalidated != nil {
		h.OnCacheRevalidated(key)
	}
}

func (h *Hooks) emitBulkheadFull() {
	if h.OnBulkheadFull != nil {
		h.OnBulkheadFull()
	}
}

func (h *Hooks) emitTimeout() {
	if h.OnTimeout != nil {
		h.OnTimeout()
	}
}

func (h *Hooks) emitStaleServed(key string) {
	if h.OnStaleServed != nil {
		h.OnStaleServed(key)
	}
}

func (h *Hooks) emitHedgeTriggered() {
	if h.OnHedgeTriggered != nil {
		h.OnHedgeTriggered()
	}
}

func (h *Hooks) emitFallbackUsed(err error) {
	if h.OnFallbackUsed != nil {
		h.OnFallbackUsed(err)
	}
}
