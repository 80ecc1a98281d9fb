package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/relaykit/relay"
)

// Transport returns a terminal [relay.Handler] that executes requests with
// hc. Request bodies may be nil, []byte, string, or io.Reader; response
// bodies are read fully into Data as []byte. Network failures surface as
// [relay.TransportError].
//
// Pattern: Adapter — bridges net/http and the pipeline by translating
// between relay and http request/response shapes.
func Transport(hc *http.Client) relay.Handler {
	return func(ctx context.Context, req *relay.Request) (*relay.Response, error) {
		body, err := requestBody(req.Body)
		if err != nil {
			return nil, err
		}

		httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
		if err != nil {
			return nil, fmt.Errorf("httpx: build request: %w", err)
		}

		for k, v := range req.Header {
			httpReq.Header.Set(k, v)
		}

		httpResp, err := hc.Do(httpReq)
		if err != nil {
			return nil, &relay.TransportError{Err: err, Op: req.Method, URL: req.URL}
		}
		defer httpResp.Body.Close()

		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, &relay.TransportError{Err: err, Op: req.Method, URL: req.URL}
		}

		return &relay.Response{
			Status:     httpResp.StatusCode,
			StatusText: statusText(httpResp),
			Header:     responseHeader(httpResp.Header),
			Data:       data,
		}, nil
	}
}

// requestBody converts the opaque request body into an io.Reader.
func requestBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	case io.Reader:
		return b, nil
	default:
		return nil, fmt.Errorf("httpx: unsupported body type %T", body)
	}
}

// statusText extracts the reason phrase from an http.Response status line.
func statusText(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}

// responseHeader flattens an http.Header into a relay.Header, keeping the
// first value of multi-valued fields.
func responseHeader(h http.Header) relay.Header {
	out := make(relay.Header, len(h))
	for k, values := range h {
		if len(values) > 0 {
			out.Set(k, values[0])
		}
	}

	return out
}
