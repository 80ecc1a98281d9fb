package relay

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrorsArePipelineErrors(t *testing.T) {
	for _, err := range []error{ErrBreakerOpen, ErrBulkheadFull, ErrTimeout} {
		var pe PipelineError
		if !errors.As(err, &pe) || !pe.IsPipeline() {
			t.Fatalf("%v must implement PipelineError", err)
		}
	}
}

func TestSentinelErrorsDiscriminateWithIs(t *testing.T) {
	wrapped := fmt.Errorf("call failed: %w", ErrBreakerOpen)

	if !errors.Is(wrapped, ErrBreakerOpen) {
		t.Fatal("errors.Is must match through wrapping")
	}
	if errors.Is(wrapped, ErrBulkheadFull) {
		t.Fatal("distinct sentinels must not match each other")
	}
}

func TestTransientPermanentClassification(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name      string
		err       error
		transient bool
		permanent bool
	}{
		{"nil", nil, false, false},
		{"unclassified defaults transient", base, true, false},
		{"explicit transient", Transient(base), true, false},
		{"explicit permanent", Permanent(base), false, true},
		{"wrapped permanent", fmt.Errorf("ctx: %w", Permanent(base)), false, true},
		{"sentinel", ErrBreakerOpen, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.transient {
				t.Fatalf("IsTransient = %v, want %v", got, tt.transient)
			}
			if got := IsPermanent(tt.err); got != tt.permanent {
				t.Fatalf("IsPermanent = %v, want %v", got, tt.permanent)
			}
		})
	}
}

func TestClassifierWrappersPreserveCause(t *testing.T) {
	base := errors.New("boom")

	if !errors.Is(Transient(base), base) {
		t.Fatal("Transient must unwrap to the cause")
	}
	if !errors.Is(Permanent(base), base) {
		t.Fatal("Permanent must unwrap to the cause")
	}
}

func TestClassifierWrappersNilPassThrough(t *testing.T) {
	if Transient(nil) != nil || Permanent(nil) != nil {
		t.Fatal("wrapping nil must return nil")
	}
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &TransportError{Err: cause, Op: "GET", URL: "x://host/r"}

	if !errors.Is(err, cause) {
		t.Fatal("TransportError must unwrap to the cause")
	}
	if !IsTransport(err) {
		t.Fatal("IsTransport(TransportError) = false")
	}
	if !IsTransport(fmt.Errorf("outer: %w", err)) {
		t.Fatal("IsTransport must match through wrapping")
	}
	if IsTransport(cause) {
		t.Fatal("IsTransport on a bare cause = true")
	}

	want := "transport: GET x://host/r: connection refused"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
