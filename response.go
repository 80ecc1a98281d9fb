package relay

// Cache result tags set on the X-Cache response header by the response
// cache policy.
const (
	// CacheHit marks a fresh cache hit served without calling the transport.
	CacheHit = "HIT"
	// CacheMiss marks a response fetched from the transport.
	CacheMiss = "MISS"
	// CacheRevalidated marks a stale entry confirmed by a 304 and served
	// with its original body.
	CacheRevalidated = "REVALIDATED"
	// CacheBypass marks a response that did not participate in caching.
	CacheBypass = "BYPASS"
	// CacheNoStore marks a response excluded by a no-store directive.
	CacheNoStore = "NO-STORE"
	// CacheNoCache marks a response whose computed TTL was not positive.
	CacheNoCache = "NO-CACHE"
)

// xCacheHeader carries the cache policy's result tag upstream.
const xCacheHeader = "X-Cache"

// Response is the protocol-agnostic result of a downstream call.
type Response struct {
	// Status is the numeric status code.
	Status int
	// StatusText is the human-readable status line.
	StatusText string
	// Header holds response headers, case-insensitively.
	Header Header
	// Data is the opaque response payload.
	Data any
}

// OK reports whether the response is a success, derived from Status so the
// two can never disagree: true iff 200 <= Status < 300.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// CacheStatus returns the cache result tag attached by the response cache
// policy, or "" if the response never passed through one.
func (r *Response) CacheStatus() string {
	return r.Header.Get(xCacheHeader)
}

// Clone returns a copy of r with its own header map. Data is shared.
func (r *Response) Clone() *Response {
	cloned := *r
	cloned.Header = r.Header.Clone()

	return &cloned
}
