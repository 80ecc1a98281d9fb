package relay

import (
	"context"
	"testing"
	"time"
)

func cacheTransport(calls *int, resp *Response) Handler {
	return func(_ context.Context, _ *Request) (*Response, error) {
		*calls++
		// Fresh response per call so tagging one never leaks into the next.
		return resp.Clone(), nil
	}
}

func okResponse(headers ...string) *Response {
	h := make(Header)
	for i := 0; i+1 < len(headers); i += 2 {
		h.Set(headers[i], headers[i+1])
	}
	return &Response{Status: 200, StatusText: "OK", Header: h, Data: "payload"}
}

func TestCacheMissThenHit(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk))
	calls := 0
	handler := c.Policy()(cacheTransport(&calls, okResponse()))
	ctx := context.Background()
	req := NewRequest("GET", "x://host/users")

	first, err := handler(ctx, req)
	if err != nil {
		t.Fatalf("first call = %v", err)
	}
	if got := first.CacheStatus(); got != CacheMiss {
		t.Fatalf("first CacheStatus = %q, want MISS", got)
	}

	second, err := handler(ctx, req)
	if err != nil {
		t.Fatalf("second call = %v", err)
	}
	if got := second.CacheStatus(); got != CacheHit {
		t.Fatalf("second CacheStatus = %q, want HIT", got)
	}
	if second.Data != "payload" {
		t.Fatalf("hit Data = %v, want payload", second.Data)
	}
	if calls != 1 {
		t.Fatalf("transport calls = %d, want 1", calls)
	}
}

func TestCacheDefaultTTLExpiry(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk), CacheDefaultTTL(time.Minute))
	calls := 0
	handler := c.Policy()(cacheTransport(&calls, okResponse()))
	ctx := context.Background()
	req := NewRequest("GET", "x://host/users")

	_, _ = handler(ctx, req)
	clk.advance(59 * time.Second)
	resp, _ := handler(ctx, req)
	if got := resp.CacheStatus(); got != CacheHit {
		t.Fatalf("CacheStatus inside TTL = %q, want HIT", got)
	}

	clk.advance(2 * time.Second)
	resp, _ = handler(ctx, req)
	if got := resp.CacheStatus(); got != CacheMiss {
		t.Fatalf("CacheStatus after TTL = %q, want MISS refetch", got)
	}
	if calls != 2 {
		t.Fatalf("transport calls = %d, want 2", calls)
	}
}

func TestCacheMaxAgeOverridesDefaultTTL(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk), CacheDefaultTTL(time.Hour))
	calls := 0
	handler := c.Policy()(cacheTransport(&calls, okResponse("Cache-Control", "max-age=10")))
	ctx := context.Background()
	req := NewRequest("GET", "x://host/users")

	_, _ = handler(ctx, req)
	clk.advance(11 * time.Second)

	resp, _ := handler(ctx, req)
	if got := resp.CacheStatus(); got != CacheMiss {
		t.Fatalf("CacheStatus after max-age = %q, want MISS", got)
	}
}

func TestCacheSMaxAgeBeatsMaxAge(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk))
	calls := 0
	handler := c.Policy()(cacheTransport(&calls,
		okResponse("Cache-Control", "max-age=10, s-maxage=60")))
	ctx := context.Background()
	req := NewRequest("GET", "x://host/users")

	_, _ = handler(ctx, req)
	clk.advance(30 * time.Second)

	resp, _ := handler(ctx, req)
	if got := resp.CacheStatus(); got != CacheHit {
		t.Fatalf("CacheStatus at 30s with s-maxage=60 = %q, want HIT", got)
	}
}

func TestCacheMaxTTLClampsDirectives(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk), CacheMaxTTL(5*time.Second))
	calls := 0
	handler := c.Policy()(cacheTransport(&calls, okResponse("Cache-Control", "max-age=3600")))
	ctx := context.Background()
	req := NewRequest("GET", "x://host/users")

	_, _ = handler(ctx, req)
	clk.advance(6 * time.Second)

	resp, _ := handler(ctx, req)
	if got := resp.CacheStatus(); got != CacheMiss {
		t.Fatalf("CacheStatus past clamp = %q, want MISS", got)
	}
}

func TestCacheNonCacheableMethodBypassesUntouched(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk))
	calls := 0
	handler := c.Policy()(cacheTransport(&calls, okResponse()))
	ctx := context.Background()

	resp, err := handler(ctx, NewRequest("POST", "x://host/users"))
	if err != nil {
		t.Fatalf("POST = %v", err)
	}
	// Untouched responses carry no cache tag at all.
	if got := resp.CacheStatus(); got != "" {
		t.Fatalf("POST CacheStatus = %q, want empty", got)
	}

	_, _ = handler(ctx, NewRequest("POST", "x://host/users"))
	if calls != 2 {
		t.Fatalf("transport calls = %d, want 2 (POST never cached)", calls)
	}
}

func TestCacheRequestNoStoreBypasses(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk))
	calls := 0
	handler := c.Policy()(cacheTransport(&calls, okResponse()))
	ctx := context.Background()

	req := NewRequest("GET", "x://host/users")
	req.Header.Set("Cache-Control", "no-store")

	resp, _ := handler(ctx, req)
	if got := resp.CacheStatus(); got != CacheBypass {
		t.Fatalf("CacheStatus = %q, want BYPASS", got)
	}

	// Nothing was stored: a plain request misses.
	plain := NewRequest("GET", "x://host/users")
	resp, _ = handler(ctx, plain)
	if got := resp.CacheStatus(); got != CacheMiss {
		t.Fatalf("plain CacheStatus = %q, want MISS", got)
	}
}

func TestCacheResponseNoStoreNotPersisted(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk))
	calls := 0
	handler := c.Policy()(cacheTransport(&calls, okResponse("Cache-Control", "no-store")))
	ctx := context.Background()
	req := NewRequest("GET", "x://host/users")

	resp, _ := handler(ctx, req)
	if got := resp.CacheStatus(); got != CacheNoStore {
		t.Fatalf("CacheStatus = %q, want NO-STORE", got)
	}

	_, _ = handler(ctx, req)
	if calls != 2 {
		t.Fatalf("transport calls = %d, want 2 (no-store never cached)", calls)
	}
}

func TestCacheIgnoreNoStoreOverride(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk), IgnoreNoStore())
	calls := 0
	handler := c.Policy()(cacheTransport(&calls, okResponse("Cache-Control", "no-store")))
	ctx := context.Background()
	req := NewRequest("GET", "x://host/users")

	_, _ = handler(ctx, req)
	resp, _ := handler(ctx, req)
	if got := resp.CacheStatus(); got != CacheHit {
		t.Fatalf("CacheStatus with IgnoreNoStore = %q, want HIT", got)
	}
}

func TestCacheIneligibleStatusNotStored(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk))
	calls := 0
	notFound := &Response{Status: 404, StatusText: "Not Found", Header: make(Header)}
	handler := c.Policy()(cacheTransport(&calls, notFound))
	ctx := context.Background()
	req := NewRequest("GET", "x://host/missing")

	resp, _ := handler(ctx, req)
	if got := resp.CacheStatus(); got != CacheBypass {
		t.Fatalf("404 CacheStatus = %q, want BYPASS", got)
	}

	_, _ = handler(ctx, req)
	if calls != 2 {
		t.Fatalf("transport calls = %d, want 2", calls)
	}
}

func TestCacheStatusCodesOption(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk), CacheStatusCodes(200, 404))
	calls := 0
	notFound := &Response{Status: 404, StatusText: "Not Found", Header: make(Header)}
	handler := c.Policy()(cacheTransport(&calls, notFound))
	ctx := context.Background()
	req := NewRequest("GET", "x://host/missing")

	_, _ = handler(ctx, req)
	resp, _ := handler(ctx, req)
	if got := resp.CacheStatus(); got != CacheHit {
		t.Fatalf("cached 404 CacheStatus = %q, want HIT", got)
	}
	if resp.Status != 404 {
		t.Fatalf("cached Status = %d, want 404", resp.Status)
	}
}

func TestCacheRevalidation304ServesOriginalBody(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk), CacheDefaultTTL(time.Minute))

	calls := 0
	var gotConditional *Request
	transport := func(_ context.Context, req *Request) (*Response, error) {
		calls++
		if calls == 1 {
			return okResponse("ETag", `"v1"`, "Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT"), nil
		}
		gotConditional = req
		return &Response{Status: 304, StatusText: "Not Modified", Header: make(Header)}, nil
	}

	handler := c.Policy()(transport)
	ctx := context.Background()
	req := NewRequest("GET", "x://host/users")

	_, _ = handler(ctx, req)
	clk.advance(2 * time.Minute)

	resp, err := handler(ctx, req)
	if err != nil {
		t.Fatalf("revalidating call = %v", err)
	}
	if got := resp.CacheStatus(); got != CacheRevalidated {
		t.Fatalf("CacheStatus = %q, want REVALIDATED", got)
	}
	if resp.Status != 200 || resp.Data != "payload" {
		t.Fatalf("revalidated resp = %d %v, want original 200 payload", resp.Status, resp.Data)
	}

	if gotConditional.Header.Get("If-None-Match") != `"v1"` {
		t.Fatalf("If-None-Match = %q, want the stored ETag", gotConditional.Header.Get("If-None-Match"))
	}
	if gotConditional.Header.Get("If-Modified-Since") == "" {
		t.Fatal("If-Modified-Since not set from stored Last-Modified")
	}
	// The caller's request is untouched; conditionals go on a clone.
	if req.Header.Has("If-None-Match") {
		t.Fatal("conditional header leaked onto the caller's request")
	}
}

func TestCacheRevalidationRefreshesExpiry(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk), CacheDefaultTTL(time.Minute))

	calls := 0
	transport := func(_ context.Context, _ *Request) (*Response, error) {
		calls++
		if calls == 1 {
			return okResponse("ETag", `"v1"`), nil
		}
		return &Response{Status: 304, StatusText: "Not Modified", Header: make(Header)}, nil
	}

	handler := c.Policy()(transport)
	ctx := context.Background()
	req := NewRequest("GET", "x://host/users")

	_, _ = handler(ctx, req)
	clk.advance(2 * time.Minute)
	_, _ = handler(ctx, req) // 304, expiry refreshed

	clk.advance(30 * time.Second)
	resp, _ := handler(ctx, req)
	if got := resp.CacheStatus(); got != CacheHit {
		t.Fatalf("CacheStatus after refresh = %q, want HIT", got)
	}
	if calls != 2 {
		t.Fatalf("transport calls = %d, want 2", calls)
	}
}

func TestCacheRevalidationFullResponseReplacesEntry(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk), CacheDefaultTTL(time.Minute))

	calls := 0
	transport := func(_ context.Context, _ *Request) (*Response, error) {
		calls++
		if calls == 1 {
			return okResponse("ETag", `"v1"`), nil
		}
		fresh := okResponse("ETag", `"v2"`)
		fresh.Data = "updated"
		return fresh, nil
	}

	handler := c.Policy()(transport)
	ctx := context.Background()
	req := NewRequest("GET", "x://host/users")

	_, _ = handler(ctx, req)
	clk.advance(2 * time.Minute)

	resp, _ := handler(ctx, req)
	if got := resp.CacheStatus(); got != CacheMiss {
		t.Fatalf("CacheStatus on replaced entry = %q, want MISS", got)
	}
	if resp.Data != "updated" {
		t.Fatalf("Data = %v, want updated", resp.Data)
	}

	hit, _ := handler(ctx, req)
	if hit.CacheStatus() != CacheHit || hit.Data != "updated" {
		t.Fatalf("follow-up = %q %v, want HIT with updated body", hit.CacheStatus(), hit.Data)
	}
}

func TestCacheDisableRevalidationRefetches(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk), CacheDefaultTTL(time.Minute), DisableRevalidation())

	calls := 0
	transport := func(_ context.Context, req *Request) (*Response, error) {
		calls++
		if req.Header.Has("If-None-Match") {
			t.Fatal("conditional request sent with revalidation disabled")
		}
		return okResponse("ETag", `"v1"`), nil
	}

	handler := c.Policy()(transport)
	ctx := context.Background()
	req := NewRequest("GET", "x://host/users")

	_, _ = handler(ctx, req)
	clk.advance(2 * time.Minute)

	resp, _ := handler(ctx, req)
	if got := resp.CacheStatus(); got != CacheMiss {
		t.Fatalf("CacheStatus = %q, want full MISS refetch", got)
	}
	if calls != 2 {
		t.Fatalf("transport calls = %d, want 2", calls)
	}
}

func TestCacheStaleWithoutValidatorsRefetches(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk), CacheDefaultTTL(time.Minute))
	calls := 0
	handler := c.Policy()(cacheTransport(&calls, okResponse()))
	ctx := context.Background()
	req := NewRequest("GET", "x://host/users")

	_, _ = handler(ctx, req)
	clk.advance(2 * time.Minute)

	resp, _ := handler(ctx, req)
	if got := resp.CacheStatus(); got != CacheMiss {
		t.Fatalf("CacheStatus = %q, want MISS (no validators to revalidate with)", got)
	}
}

func TestCacheCustomKeyGenerator(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk), CacheKey(func(req *Request) string {
		return req.URL // method-insensitive keys
	}), CacheMethods("GET", "HEAD", "REPORT"))

	calls := 0
	handler := c.Policy()(cacheTransport(&calls, okResponse()))
	ctx := context.Background()

	_, _ = handler(ctx, NewRequest("GET", "x://host/users"))
	resp, _ := handler(ctx, NewRequest("REPORT", "x://host/users"))
	if got := resp.CacheStatus(); got != CacheHit {
		t.Fatalf("CacheStatus across methods sharing a key = %q, want HIT", got)
	}
}

func TestCacheInvalidate(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk))
	calls := 0
	handler := c.Policy()(cacheTransport(&calls, okResponse()))
	ctx := context.Background()
	req := NewRequest("GET", "x://host/users")

	_, _ = handler(ctx, req)
	if err := c.Invalidate(ctx, req); err != nil {
		t.Fatalf("Invalidate = %v", err)
	}

	resp, _ := handler(ctx, req)
	if got := resp.CacheStatus(); got != CacheMiss {
		t.Fatalf("CacheStatus after Invalidate = %q, want MISS", got)
	}
}

func TestCacheClear(t *testing.T) {
	clk := newTestClock()
	c := NewResponseCache(CacheClock(clk))
	calls := 0
	handler := c.Policy()(cacheTransport(&calls, okResponse()))
	ctx := context.Background()

	_, _ = handler(ctx, NewRequest("GET", "x://host/a"))
	_, _ = handler(ctx, NewRequest("GET", "x://host/b"))
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear = %v", err)
	}

	resp, _ := handler(ctx, NewRequest("GET", "x://host/a"))
	if got := resp.CacheStatus(); got != CacheMiss {
		t.Fatalf("CacheStatus after Clear = %q, want MISS", got)
	}
}

func TestCacheStoredEntryHasNoCacheTag(t *testing.T) {
	clk := newTestClock()
	store := NewMemoryStorage(8)
	c := NewResponseCache(CacheClock(clk), CacheStorage(store))
	calls := 0
	handler := c.Policy()(cacheTransport(&calls, okResponse()))
	ctx := context.Background()
	req := NewRequest("GET", "x://host/users")

	_, _ = handler(ctx, req)

	entry, err := store.Get(ctx, DefaultKeyGenerator(req))
	if err != nil || entry == nil {
		t.Fatalf("stored entry = %v, %v", entry, err)
	}
	// The tag describes one delivery, not the entry; stored headers stay
	// clean so hits and revalidations can tag themselves.
	if entry.Header.Has(xCacheHeader) {
		t.Fatalf("stored entry carries %s = %q", xCacheHeader, entry.Header.Get(xCacheHeader))
	}
}

func TestCacheHooks(t *testing.T) {
	clk := newTestClock()

	var hits, misses, stores, revalidated int
	hooks := &Hooks{
		OnCacheHit:         func(string) { hits++ },
		OnCacheMiss:        func(string) { misses++ },
		OnCacheStore:       func(string, time.Duration) { stores++ },
		OnCacheRevalidated: func(string) { revalidated++ },
	}

	c := NewResponseCache(CacheClock(clk), CacheHooks(hooks), CacheDefaultTTL(time.Minute))

	calls := 0
	transport := func(_ context.Context, _ *Request) (*Response, error) {
		calls++
		if calls == 1 {
			return okResponse("ETag", `"v1"`), nil
		}
		return &Response{Status: 304, StatusText: "Not Modified", Header: make(Header)}, nil
	}

	handler := c.Policy()(transport)
	ctx := context.Background()
	req := NewRequest("GET", "x://host/users")

	_, _ = handler(ctx, req) // miss + store
	_, _ = handler(ctx, req) // hit
	clk.advance(2 * time.Minute)
	_, _ = handler(ctx, req) // revalidated

	if misses != 1 || stores != 1 || hits != 1 || revalidated != 1 {
		t.Fatalf("hooks miss=%d store=%d hit=%d revalidated=%d, want all 1",
			misses, stores, hits, revalidated)
	}
}
