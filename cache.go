package relay

import (
	"context"
	"time"

	"github.com/lestrrat-go/httpcc"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

type (
	// KeyGenerator derives the cache key for a request. The default is
	// "METHOD:url".
	KeyGenerator func(req *Request) string

	// CacheOption configures a response cache.
	CacheOption func(*ResponseCache)

	// ResponseCache caches successful responses and serves or revalidates
	// them on subsequent requests, RFC 7234 style: freshness comes from the
	// response's Cache-Control (s-maxage over max-age, falling back to a
	// default TTL, clamped to a maximum), staleness is the policy's own
	// judgement against stored absolute expiry, and stale entries carrying
	// validators are revalidated with conditional requests instead of
	// refetched.
	ResponseCache struct {
		storage        Storage
		defaultTTL     time.Duration
		maxTTL         time.Duration
		methods        map[string]bool
		statusCodes    map[int]bool
		keyGen         KeyGenerator
		respectNoStore bool
		revalidate     bool
		clock          Clock
		hooks          *Hooks
	}
)

// DefaultKeyGenerator keys entries by "METHOD:url".
func DefaultKeyGenerator(req *Request) string {
	return req.Method + ":" + req.URL
}

// CacheStorage sets the backend. Default: in-memory, 512 entries.
func CacheStorage(s Storage) CacheOption {
	return func(c *ResponseCache) {
		c.storage = s
	}
}

// CacheDefaultTTL sets the freshness lifetime used when the response
// carries no max-age or s-maxage directive. Default: 5 minutes.
func CacheDefaultTTL(d time.Duration) CacheOption {
	return func(c *ResponseCache) {
		c.defaultTTL = d
	}
}

// CacheMaxTTL clamps every computed freshness lifetime. Zero (the default)
// means no clamp.
func CacheMaxTTL(d time.Duration) CacheOption {
	return func(c *ResponseCache) {
		c.maxTTL = d
	}
}

// CacheMethods sets the request methods that participate in caching.
// Default: GET and HEAD. Requests with other methods bypass untouched.
func CacheMethods(methods ...string) CacheOption {
	return func(c *ResponseCache) {
		c.methods = make(map[string]bool, len(methods))
		for _, m := range methods {
			c.methods[m] = true
		}
	}
}

// CacheStatusCodes sets the response statuses eligible for storing.
// Default: 200 only.
func CacheStatusCodes(codes ...int) CacheOption {
	return func(c *ResponseCache) {
		c.statusCodes = make(map[int]bool, len(codes))
		for _, code := range codes {
			c.statusCodes[code] = true
		}
	}
}

// CacheKey sets the key generator.
func CacheKey(fn KeyGenerator) CacheOption {
	return func(c *ResponseCache) {
		c.keyGen = fn
	}
}

// IgnoreNoStore disables honoring no-store/no-cache directives on requests
// and no-store on responses. By default they are respected.
func IgnoreNoStore() CacheOption {
	return func(c *ResponseCache) {
		c.respectNoStore = false
	}
}

// DisableRevalidation disables conditional requests for stale entries;
// stale entries are then refetched in full. Enabled by default.
func DisableRevalidation() CacheOption {
	return func(c *ResponseCache) {
		c.revalidate = false
	}
}

// CacheClock sets the clock used for freshness decisions.
func CacheClock(clk Clock) CacheOption {
	return func(c *ResponseCache) {
		c.clock = clk
	}
}

// CacheHooks sets the observability hooks. Hook callbacks never influence
// control flow.
func CacheHooks(h *Hooks) CacheOption {
	return func(c *ResponseCache) {
		c.hooks = h
	}
}

const defaultCacheCapacity = 512

// NewResponseCache creates a response cache with the given options.
func NewResponseCache(opts ...CacheOption) *ResponseCache {
	c := &ResponseCache{
		defaultTTL:     5 * time.Minute,
		methods:        map[string]bool{"GET": true, "HEAD": true},
		statusCodes:    map[int]bool{200: true},
		keyGen:         DefaultKeyGenerator,
		respectNoStore: true,
		revalidate:     true,
		clock:          RealClock{},
		hooks:          &Hooks{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.storage == nil {
		c.storage = NewMemoryStorage(defaultCacheCapacity)
	}

	return c
}

// Invalidate removes the entry for req, if any.
func (c *ResponseCache) Invalidate(ctx context.Context, req *Request) error {
	return c.storage.Delete(ctx, c.keyGen(req))
}

// Clear removes every entry from the backing storage.
func (c *ResponseCache) Clear(ctx context.Context) error {
	return c.storage.Clear(ctx)
}

// ---------------------------------------------------------------------------
// Policy
// ---------------------------------------------------------------------------

// Policy returns the caching policy backed by c.
func (c *ResponseCache) Policy() Policy {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if !c.methods[req.Method] {
				return next(ctx, req)
			}

			if c.respectNoStore && requestForbidsCache(req) {
				resp, err := next(ctx, req)
				tag(resp, CacheBypass)

				return resp, err
			}

			key := c.keyGen(req)

			entry, err := c.storage.Get(ctx, key)
			if err != nil {
				return nil, err
			}

			now := c.clock.Now()

			// Fresh hit: serve the stored response without calling next.
			if entry != nil && now.Before(entry.Expires) {
				c.hooks.emitCacheHit(key)

				return c.respond(entry, CacheHit), nil
			}

			// Stale entry with validators: revalidate conditionally.
			if entry != nil && c.revalidate && (entry.ETag != "" || entry.LastModified != "") {
				return c.revalidateEntry(ctx, next, req, key, entry)
			}

			// No usable entry: fetch and run the store decision.
			c.hooks.emitCacheMiss(key)

			resp, err := next(ctx, req)
			if err != nil {
				return nil, err
			}

			c.store(ctx, key, resp)

			return resp, nil
		}
	}
}

// revalidateEntry reissues the call with conditional headers derived from
// the stale entry's validators. A 304 refreshes the entry's expiry and
// serves the original cached body — a 304 carries none of its own. Any
// other outcome is treated as a fresh response.
func (c *ResponseCache) revalidateEntry(ctx context.Context, next Handler, req *Request, key string, entry *Entry) (*Response, error) {
	conditional := req.Clone()
	if entry.ETag != "" {
		conditional.Header.Set("If-None-Match", entry.ETag)
	}

	if entry.LastModified != "" {
		conditional.Header.Set("If-Modified-Since", entry.LastModified)
	}

	resp, err := next(ctx, conditional)
	if err != nil {
		return nil, err
	}

	if resp.Status == 304 {
		// Only the expiry moves; data and validators stay as stored.
		entry.Expires = c.clock.Now().Add(c.ttlFor(resp))
		if setErr := c.storage.Set(ctx, key, entry); setErr != nil {
			return nil, setErr
		}

		c.hooks.emitCacheRevalidated(key)

		return c.respond(entry, CacheRevalidated), nil
	}

	c.hooks.emitCacheMiss(key)
	c.store(ctx, key, resp)

	return resp, nil
}

// store runs the store decision for a fetched response and tags it.
func (c *ResponseCache) store(ctx context.Context, key string, resp *Response) {
	if !c.statusCodes[resp.Status] {
		tag(resp, CacheBypass)

		return
	}

	if c.respectNoStore && responseForbidsStore(resp) {
		tag(resp, CacheNoStore)

		return
	}

	ttl := c.ttlFor(resp)
	if ttl <= 0 {
		tag(resp, CacheNoCache)

		return
	}

	entry := &Entry{
		Data:         resp.Data,
		Header:       resp.Header.Clone(),
		Status:       resp.Status,
		StatusText:   resp.StatusText,
		Expires:      c.clock.Now().Add(ttl),
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}

	// Storage failures only cost a future hit; the fetched response is
	// served either way.
	if err := c.storage.Set(ctx, key, entry); err == nil {
		c.hooks.emitCacheStore(key, ttl)
	}

	tag(resp, CacheMiss)
}

// ttlFor computes the freshness lifetime of resp: s-maxage over max-age,
// falling back to the default TTL, clamped to the configured maximum.
func (c *ResponseCache) ttlFor(resp *Response) time.Duration {
	ttl := c.defaultTTL

	if cc := resp.Header.Get("Cache-Control"); cc != "" {
		if dir, err := httpcc.ParseResponse(cc); err == nil {
			if v, ok := dir.SMaxAge(); ok {
				ttl = time.Duration(v) * time.Second
			} else if v, ok := dir.MaxAge(); ok {
				ttl = time.Duration(v) * time.Second
			}
		}
	}

	if c.maxTTL > 0 && ttl > c.maxTTL {
		ttl = c.maxTTL
	}

	return ttl
}

// respond materializes a stored entry as a Response.
func (c *ResponseCache) respond(entry *Entry, status string) *Response {
	resp := &Response{
		Status:     entry.Status,
		StatusText: entry.StatusText,
		Header:     entry.Header.Clone(),
		Data:       entry.Data,
	}
	tag(resp, status)

	return resp
}

// tag records the cache result on the response header.
func tag(resp *Response, status string) {
	if resp == nil {
		return
	}

	if resp.Header == nil {
		resp.Header = make(Header)
	}

	resp.Header.Set(xCacheHeader, status)
}

// requestForbidsCache reports whether the request's Cache-Control asks to
// skip the cache entirely.
func requestForbidsCache(req *Request) bool {
	cc := req.Header.Get("Cache-Control")
	if cc == "" {
		return false
	}

	dir, err := httpcc.ParseRequest(cc)
	if err != nil {
		return false
	}

	return dir.NoStore() || dir.NoCache()
}

// responseForbidsStore reports whether the response's Cache-Control forbids
// persisting it.
func responseForbidsStore(resp *Response) bool {
	cc := resp.Header.Get("Cache-Control")
	if cc == "" {
		return false
	}

	dir, err := httpcc.ParseResponse(cc)
	if err != nil {
		return false
	}

	return dir.NoStore()
}
