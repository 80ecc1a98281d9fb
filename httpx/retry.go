package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/relaykit/relay"
)

// idempotentMethods are the HTTP methods safe to re-send without
// coordination.
var idempotentMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

// IdempotentOnly narrows pred so that non-idempotent methods (POST,
// PATCH) are never retried.
func IdempotentOnly(pred relay.RetryPredicate) relay.RetryPredicate {
	return func(ctx context.Context, req *relay.Request, resp *relay.Response, err error, attempt int) bool {
		if !idempotentMethods[req.Method] {
			return false
		}

		return pred(ctx, req, resp, err, attempt)
	}
}

// RetryOnStatus retries outcomes whose status — on the response or inside
// a [StatusError] — is in codes. Plain errors without a status are
// retried.
func RetryOnStatus(codes ...int) relay.RetryPredicate {
	allowed := make(map[int]bool, len(codes))
	for _, code := range codes {
		allowed[code] = true
	}

	return func(_ context.Context, _ *relay.Request, resp *relay.Response, err error, _ int) bool {
		if resp != nil {
			return allowed[resp.Status]
		}

		if err == nil {
			return false
		}

		if classified := ResponseFromError(err); classified != nil {
			return allowed[classified.Status]
		}

		return true
	}
}

// RetryAfter returns a [relay.DelayStrategy] that honors the Retry-After
// header — integer seconds or an HTTP date — found on the outcome's
// response (direct or carried by a [StatusError]). It has no opinion when
// the header is absent or malformed, letting later strategies in the list
// decide.
func RetryAfter() relay.DelayStrategy {
	return RetryAfterClock(relay.RealClock{})
}

// RetryAfterClock is [RetryAfter] with an explicit clock for HTTP-date
// arithmetic.
func RetryAfterClock(clock relay.Clock) relay.DelayStrategy {
	return relay.DelayFunc(func(_ int, _ *relay.Request, resp *relay.Response, err error) (time.Duration, bool) {
		if resp == nil {
			resp = ResponseFromError(err)
		}

		if resp == nil {
			return 0, false
		}

		value := resp.Header.Get("Retry-After")
		if value == "" {
			return 0, false
		}

		if secs, parseErr := strconv.Atoi(value); parseErr == nil {
			if secs < 0 {
				return 0, false
			}

			return time.Duration(secs) * time.Second, true
		}

		if at, parseErr := http.ParseTime(value); parseErr == nil {
			d := at.Sub(clock.Now())
			if d < 0 {
				d = 0
			}

			return d, true
		}

		return 0, false
	})
}
