package httpx

import (
	"context"
	"errors"
	"strconv"

	"github.com/relaykit/relay"
)

// ErrorClass tells the pipeline how to treat an HTTP status code.
type ErrorClass int

const (
	// Success means the request succeeded (e.g. 2xx).
	Success ErrorClass = iota
	// Transient means the status is retriable (e.g. 429, 503).
	Transient
	// Permanent means the status is non-retriable (e.g. 400).
	Permanent
)

// Classifier maps an HTTP status code to an ErrorClass.
//
// Pattern: Strategy — the caller injects classification logic without
// modifying the adapter.
type Classifier func(statusCode int) ErrorClass

// DefaultClassifier treats 2xx and 3xx as success, 429 and 5xx as
// transient, and every other 4xx as permanent.
func DefaultClassifier(statusCode int) ErrorClass {
	switch {
	case statusCode < 400:
		return Success
	case statusCode == http429 || statusCode >= 500:
		return Transient
	default:
		return Permanent
	}
}

const http429 = 429

// StatusError is raised when a [Classifier] marks a status code as
// Transient or Permanent. The original response remains accessible for
// header and body inspection, e.g. by a Retry-After delay strategy.
type StatusError struct {
	// Response is the response that triggered the error.
	Response *relay.Response
	// StatusCode is the classified status.
	StatusCode int
}

// Error returns a human-readable description of the status error.
func (e *StatusError) Error() string {
	return "http status " + strconv.Itoa(e.StatusCode)
}

// ClassifyStatus returns a policy that converts responses with failing
// statuses into errors, wrapped [relay.Transient] or [relay.Permanent]
// according to cl. This is the upstream adapter the breaker and retry
// policies rely on for status-based failure decisions: the core patterns
// only ever classify returned errors.
func ClassifyStatus(cl Classifier) relay.Policy {
	return func(next relay.Handler) relay.Handler {
		return func(ctx context.Context, req *relay.Request) (*relay.Response, error) {
			resp, err := next(ctx, req)
			if err != nil {
				return nil, err
			}

			switch cl(resp.Status) {
			case Transient:
				return nil, relay.Transient(&StatusError{Response: resp, StatusCode: resp.Status})
			case Permanent:
				return nil, relay.Permanent(&StatusError{Response: resp, StatusCode: resp.Status})
			default:
				return resp, nil
			}
		}
	}
}

// ResponseFromError recovers the response carried by a [StatusError], or
// nil when err holds none.
func ResponseFromError(err error) *relay.Response {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Response
	}

	return nil
}
