package relay

import "errors"

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------

type (
	// PipelineError identifies errors produced by the pipeline itself, as
	// opposed to errors surfaced from the wrapped transport.
	PipelineError interface {
		error
		// IsPipeline reports whether this error originates from the
		// pipeline layer.
		IsPipeline() bool
	}

	// pipelineError is the concrete type backing all sentinel errors.
	pipelineError string

	// transientError marks a wrapped error as transient (retriable).
	transientError struct {
		err error
	}

	// permanentError marks a wrapped error as permanent (non-retriable).
	permanentError struct {
		err error
	}
)

// Sentinel pipeline errors. Callers discriminate kinds structurally with
// errors.Is; no type hierarchy walk is required.
var (
	// ErrBreakerOpen is returned when the circuit breaker refuses a call
	// outright: the circuit is open, or a half-open probe is already in
	// flight. It marks a call that never ran, as opposed to one that ran
	// and failed.
	ErrBreakerOpen error = pipelineError("circuit breaker is open")
	// ErrBulkheadFull is returned when the bulkhead has no free slot.
	ErrBulkheadFull error = pipelineError("bulkhead full")
	// ErrTimeout is returned when an operation exceeds its deadline.
	ErrTimeout error = pipelineError("timeout")
)

func (e pipelineError) Error() string { return string(e) }

// IsPipeline reports whether the error is a pipeline infrastructure error.
func (pipelineError) IsPipeline() bool { return true }

// TransportError wraps a failure raised by the terminal transport (e.g. a
// connection refusal), preserving the operation and target for diagnostics.
type TransportError struct {
	// Err is the underlying transport failure.
	Err error
	// Op is the operation verb that failed.
	Op string
	// URL is the target of the failed call.
	URL string
}

// Error returns a description including the operation and target.
func (e *TransportError) Error() string {
	return "transport: " + e.Op + " " + e.URL + ": " + e.Err.Error()
}

// Unwrap returns the underlying transport failure.
func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError

	return errors.As(err, &te)
}

func (e *transientError) Error() string { return "transient: " + e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func (e *permanentError) Error() string { return "permanent: " + e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Transient wraps err to mark it as a transient (retriable) error.
// Returns nil if err is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}

	return &transientError{err: err}
}

// Permanent wraps err to mark it as a permanent (non-retriable) error.
// Returns nil if err is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

// IsTransient reports whether err is transient. Unclassified errors are
// treated as transient. Returns false for nil.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pe *permanentError

	return !errors.As(err, &pe)
}

// IsPermanent reports whether err was explicitly marked as permanent.
// Returns false for nil and for unclassified errors.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var pe *permanentError

	return errors.As(err, &pe)
}
