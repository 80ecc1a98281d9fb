package relay

import "time"

// Pattern: Factory Function — each preset produces a ready-made option
// bundle for a common client profile, avoiding boilerplate configuration.

// StandardClient returns options suitable for a typical network client:
// 5s timeout, 3 tries with 100ms exponential backoff on transient errors,
// and a circuit breaker with a 5-failure threshold and 30s reset.
func StandardClient() []any {
	return []any{
		WithTimeout(5 * time.Second),
		WithRetry(
			RetryOnTransientError,
			[]DelayStrategy{ExponentialBackoff(100 * time.Millisecond)},
			Tries(3),
		),
		WithCircuitBreaker(
			FailureThreshold(5),
			ResetTimeout(30*time.Second),
		),
	}
}

// AggressiveClient returns options for latency-sensitive clients:
// 2s timeout, 5 tries with jittered 50ms backoff capped at 5s, a
// 3-failure breaker with 15s reset, and a bulkhead of 20 concurrent calls.
func AggressiveClient() []any {
	return []any{
		WithTimeout(2 * time.Second),
		WithRetry(
			RetryOnTransientError,
			[]DelayStrategy{
				CappedDelay(ExponentialJitterBackoff(50*time.Millisecond), 5*time.Second),
			},
			Tries(5),
		),
		WithCircuitBreaker(
			FailureThreshold(3),
			ResetTimeout(15*time.Second),
		),
		WithBulkhead(20),
	}
}

// CachingReadClient returns options for read-heavy clients hitting
// cache-friendly endpoints: a response cache with a 1m default TTL clamped
// to 1h, plus the standard retry and breaker settings.
func CachingReadClient() []any {
	return append(
		StandardClient(),
		WithCache(
			CacheDefaultTTL(time.Minute),
			CacheMaxTTL(time.Hour),
		),
	)
}
