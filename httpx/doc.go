// Package httpx adapts net/http to the relay pipeline.
//
// It supplies the pieces the protocol-agnostic core deliberately does not
// own: a terminal Transport backed by an http.Client, a status-code
// classifier policy that raises transient or permanent errors so retry and
// breaker policies can react to bad statuses, HTTP-aware retry predicates,
// and a Retry-After-driven delay strategy.
package httpx
