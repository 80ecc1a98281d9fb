package relay

import (
	"context"
	"errors"
	"testing"
)

func TestFallbackReturnsStaticResponseOnError(t *testing.T) {
	degraded := &Response{Status: 200, StatusText: "OK", Data: "degraded"}

	handler := Fallback(degraded)(func(_ context.Context, _ *Request) (*Response, error) {
		return nil, errors.New("down")
	})

	resp, err := handler(context.Background(), NewRequest("GET", "x://host/r"))
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if resp != degraded {
		t.Fatalf("resp = %v, want the fallback response", resp)
	}
}

func TestFallbackPassesThroughSuccess(t *testing.T) {
	degraded := &Response{Status: 200, Data: "degraded"}
	real := &Response{Status: 200, Data: "real"}

	handler := Fallback(degraded)(func(_ context.Context, _ *Request) (*Response, error) {
		return real, nil
	})

	resp, _ := handler(context.Background(), NewRequest("GET", "x://host/r"))
	if resp != real {
		t.Fatalf("resp = %v, want the real response untouched", resp)
	}
}

func TestFallbackFuncReceivesError(t *testing.T) {
	boom := errors.New("down")
	var seen error

	handler := FallbackFunc(func(err error) (*Response, error) {
		seen = err
		return nil, errors.New("fallback also failed")
	})(func(_ context.Context, _ *Request) (*Response, error) {
		return nil, boom
	})

	_, err := handler(context.Background(), NewRequest("GET", "x://host/r"))
	if !errors.Is(seen, boom) {
		t.Fatalf("fallback saw %v, want the original error", seen)
	}
	if err == nil || err.Error() != "fallback also failed" {
		t.Fatalf("err = %v, want the fallback's own error", err)
	}
}

func TestFallbackHooks(t *testing.T) {
	var used int
	hooks := &Hooks{OnFallbackUsed: func(error) { used++ }}

	handler := Fallback(&Response{Status: 200}, FallbackHooks(hooks))(
		func(_ context.Context, _ *Request) (*Response, error) {
			return nil, errors.New("down")
		})

	_, _ = handler(context.Background(), NewRequest("GET", "x://host/r"))
	if used != 1 {
		t.Fatalf("fallback hook calls = %d, want 1", used)
	}
}
