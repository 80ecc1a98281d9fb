package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/relaykit/relay"
)

func statusTransport(status int) relay.Handler {
	return func(_ context.Context, _ *relay.Request) (*relay.Response, error) {
		return &relay.Response{Status: status, Header: make(relay.Header)}, nil
	}
}

func TestDefaultClassifier(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{200, Success},
		{204, Success},
		{301, Success},
		{400, Permanent},
		{404, Permanent},
		{429, Transient},
		{500, Transient},
		{503, Transient},
	}
	for _, tt := range tests {
		if got := DefaultClassifier(tt.status); got != tt.want {
			t.Fatalf("DefaultClassifier(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestClassifyStatusPassesSuccessThrough(t *testing.T) {
	handler := ClassifyStatus(DefaultClassifier)(statusTransport(200))

	resp, err := handler(context.Background(), relay.NewRequest(http.MethodGet, "http://host/r"))
	if err != nil || resp.Status != 200 {
		t.Fatalf("resp=%v err=%v", resp, err)
	}
}

func TestClassifyStatusRaisesTransient(t *testing.T) {
	handler := ClassifyStatus(DefaultClassifier)(statusTransport(503))

	resp, err := handler(context.Background(), relay.NewRequest(http.MethodGet, "http://host/r"))
	if resp != nil {
		t.Fatalf("resp = %v, want nil when classified as error", resp)
	}
	if !relay.IsTransient(err) || relay.IsPermanent(err) {
		t.Fatalf("err = %v, want transient classification", err)
	}

	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != 503 {
		t.Fatalf("err = %v, want a StatusError carrying 503", err)
	}
	if se.Response == nil || se.Response.Status != 503 {
		t.Fatal("StatusError must carry the original response")
	}
}

func TestClassifyStatusRaisesPermanent(t *testing.T) {
	handler := ClassifyStatus(DefaultClassifier)(statusTransport(400))

	_, err := handler(context.Background(), relay.NewRequest(http.MethodGet, "http://host/r"))
	if !relay.IsPermanent(err) {
		t.Fatalf("err = %v, want permanent classification", err)
	}
}

func TestClassifyStatusPropagatesTransportErrors(t *testing.T) {
	boom := errors.New("dial failed")
	handler := ClassifyStatus(DefaultClassifier)(
		func(_ context.Context, _ *relay.Request) (*relay.Response, error) {
			return nil, boom
		})

	_, err := handler(context.Background(), relay.NewRequest(http.MethodGet, "http://host/r"))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the transport error untouched", err)
	}
}

func TestResponseFromError(t *testing.T) {
	resp := &relay.Response{Status: 429, Header: make(relay.Header)}
	err := relay.Transient(&StatusError{Response: resp, StatusCode: 429})

	if got := ResponseFromError(err); got != resp {
		t.Fatalf("ResponseFromError = %v, want the carried response", got)
	}
	if got := ResponseFromError(fmt.Errorf("plain")); got != nil {
		t.Fatalf("ResponseFromError(plain) = %v, want nil", got)
	}
	if got := ResponseFromError(nil); got != nil {
		t.Fatalf("ResponseFromError(nil) = %v, want nil", got)
	}
}

func TestClassifyStatusDrivesBreaker(t *testing.T) {
	b := relay.NewBreaker(relay.FailureThreshold(2))

	handler := relay.Compose(statusTransport(503),
		b.Policy(),
		ClassifyStatus(DefaultClassifier),
	)

	ctx := context.Background()
	_, _ = handler(ctx, relay.NewRequest(http.MethodGet, "http://host/r"))
	_, _ = handler(ctx, relay.NewRequest(http.MethodGet, "http://host/r"))

	if got := b.State(); got != "open" {
		t.Fatalf("state = %q, want open; classified statuses must count as failures", got)
	}
}
