package relay

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// Pipeline — the facade over a composed chain
// ---------------------------------------------------------------------------

// Pipeline binds an ordered set of policies to a terminal transport behind
// a single [Pipeline.Do] method, and owns the stateful pattern instances
// (breaker, throttle, cache, bulkhead) so they can be inspected and
// reported for readiness. Use [NewPipeline] with functional options to
// configure it; for ad-hoc composition without a facade use [Chain] or
// [Compose] directly.
//
// Pattern: Functional Options — configures the pipeline via composable
// option descriptors typed as any, so pattern options and plain setup
// options mix in one variadic list.
type Pipeline struct {
	name    string
	hooks   Hooks
	clock   Clock
	handler Handler

	// References to stateful patterns (needed later for health reporting).
	entries  []PolicyEntry
	breaker  *Breaker
	throttle *Throttle
	bulkhead *Bulkhead
	cache    *ResponseCache

	// Hierarchical health dependencies.
	deps []HealthReporter

	// Registry this pipeline is registered with (nil if anonymous or
	// opted out).
	registry *Registry
}

// Name returns the pipeline's name.
func (p *Pipeline) Name() string { return p.name }

// Do executes req through the composed chain.
func (p *Pipeline) Do(ctx context.Context, req *Request) (*Response, error) {
	return p.handler(ctx, req)
}

// Breaker returns the pipeline's circuit breaker, or nil.
func (p *Pipeline) Breaker() *Breaker { return p.breaker }

// Throttle returns the pipeline's throttle, or nil.
func (p *Pipeline) Throttle() *Throttle { return p.throttle }

// Cache returns the pipeline's response cache, or nil.
func (p *Pipeline) Cache() *ResponseCache { return p.cache }

// ---------------------------------------------------------------------------
// Option descriptors — stored as any, interpreted by NewPipeline
// ---------------------------------------------------------------------------

// pipelineOptionFunc is a setup option that modifies pipelineSetup.
type pipelineOptionFunc func(*pipelineSetup)

// pipelineSetup holds configuration collected during NewPipeline phase 1.
type pipelineSetup struct {
	clock    Clock
	hooks    Hooks
	registry *Registry
}

// timeoutDesc holds deferred timeout configuration.
type timeoutDesc struct {
	d time.Duration
}

// retryDesc holds deferred retry configuration.
type retryDesc struct {
	pred       RetryPredicate
	strategies []DelayStrategy
	opts       []RetryOption
}

// breakerDesc holds deferred circuit breaker configuration.
type breakerDesc struct {
	opts []BreakerOption
}

// throttleDesc holds deferred throttle configuration.
type throttleDesc struct {
	limit    int
	interval time.Duration
}

// bulkheadDesc holds deferred bulkhead configuration.
type bulkheadDesc struct {
	maxConcurrent int
}

// hedgeDesc holds deferred hedge configuration.
type hedgeDesc struct {
	delay time.Duration
}

// cacheDesc holds deferred response cache configuration.
type cacheDesc struct {
	opts []CacheOption
}

// fallbackDesc holds a static fallback response.
type fallbackDesc struct {
	resp *Response
}

// fallbackFuncDesc holds a fallback function.
type fallbackFuncDesc struct {
	fn func(error) (*Response, error)
}

// customDesc holds a caller-supplied policy with an explicit priority.
type customDesc struct {
	policy   Policy
	name     string
	priority int
}

// dependsOnDesc holds health reporters this pipeline depends on.
type dependsOnDesc struct {
	reporters []HealthReporter
}

// ---------------------------------------------------------------------------
// With* functions — all return any
// ---------------------------------------------------------------------------

// WithClock sets the clock used by all patterns within this pipeline.
func WithClock(c Clock) any {
	return pipelineOptionFunc(func(s *pipelineSetup) {
		s.clock = c
	})
}

// WithHooks sets the lifecycle hooks for all patterns within this pipeline.
func WithHooks(h Hooks) any {
	return pipelineOptionFunc(func(s *pipelineSetup) {
		s.hooks = h
	})
}

// WithRegistry sets an explicit registry for the pipeline to register
// with. If not provided, named pipelines auto-register with
// DefaultRegistry.
func WithRegistry(reg *Registry) any {
	return pipelineOptionFunc(func(s *pipelineSetup) {
		s.registry = reg
	})
}

// WithTimeout adds a timeout that cancels slow calls after d.
func WithTimeout(d time.Duration) any {
	return timeoutDesc{d: d}
}

// WithRetry adds retry logic driven by pred and paced by strategies.
func WithRetry(pred RetryPredicate, strategies []DelayStrategy, opts ...RetryOption) any {
	return retryDesc{pred: pred, strategies: strategies, opts: opts}
}

// WithCircuitBreaker adds a circuit breaker that fast-fails while the
// downstream is unhealthy.
func WithCircuitBreaker(opts ...BreakerOption) any {
	return breakerDesc{opts: opts}
}

// WithThrottle adds a rolling-window limiter admitting at most limit call
// starts per interval.
func WithThrottle(limit int, interval time.Duration) any {
	return throttleDesc{limit: limit, interval: interval}
}

// WithBulkhead adds a concurrency limiter that rejects calls when all
// slots are in use.
func WithBulkhead(maxConcurrent int) any {
	return bulkheadDesc{maxConcurrent: maxConcurrent}
}

// WithHedge adds a hedged request that fires a second concurrent call
// after delay.
func WithHedge(delay time.Duration) any {
	return hedgeDesc{delay: delay}
}

// WithCache adds a response cache.
func WithCache(opts ...CacheOption) any {
	return cacheDesc{opts: opts}
}

// WithFallback adds a static fallback response returned when the call
// fails.
func WithFallback(resp *Response) any {
	return fallbackDesc{resp: resp}
}

// WithFallbackFunc adds a fallback function called with the final error.
func WithFallbackFunc(fn func(error) (*Response, error)) any {
	return fallbackFuncDesc{fn: fn}
}

// WithPolicy adds a caller-supplied policy at an explicit priority,
// letting protocol adapters slot classifiers or auth layers between the
// built-ins.
func WithPolicy(name string, priority int, policy Policy) any {
	return customDesc{policy: policy, name: name, priority: priority}
}

// DependsOn declares hierarchical health dependencies. If any dependency
// reports CriticalityCritical and is unhealthy, this pipeline's health
// status is degraded.
func DependsOn(reporters ...HealthReporter) any {
	return dependsOnDesc{reporters: reporters}
}

// ---------------------------------------------------------------------------
// NewPipeline — construct and wire up
// ---------------------------------------------------------------------------

// NewPipeline creates a pipeline around transport with the given name and
// options. Options are processed in two phases: setup options (clock,
// hooks, registry) are collected first, then pattern descriptors build
// their policies using the resolved clock and hooks. Policies are
// auto-sorted by priority via [SortPolicies] before chaining.
func NewPipeline(name string, transport Handler, opts ...any) *Pipeline {
	var setup pipelineSetup

	// Phase 1: collect setup options to resolve clock and hooks first.
	for _, opt := range opts {
		if pof, ok := opt.(pipelineOptionFunc); ok {
			pof(&setup)
		}
	}

	if setup.clock == nil {
		setup.clock = RealClock{}
	}

	hooks := setup.hooks
	clock := setup.clock

	p := &Pipeline{
		name:  name,
		hooks: hooks,
		clock: clock,
		deps:  nil,
	}

	// Phase 2: build policy entries from pattern descriptors.
	for _, opt := range opts {
		switch desc := opt.(type) {
		case pipelineOptionFunc:
			// Already processed in phase 1.

		case timeoutDesc:
			p.entries = append(p.entries, PolicyEntry{
				Priority: priorityTimeout,
				Name:     "timeout",
				Policy:   Timeout(desc.d, TimeoutHooks(&p.hooks)),
			})

		case retryDesc:
			retryOpts := append(
				[]RetryOption{RetryClock(clock), RetryHooks(&p.hooks)},
				desc.opts...,
			)
			p.entries = append(p.entries, PolicyEntry{
				Priority: priorityRetry,
				Name:     "retry",
				Policy:   Retry(desc.pred, desc.strategies, retryOpts...),
			})

		case breakerDesc:
			breakerOpts := append(
				[]BreakerOption{BreakerClock(clock), BreakerHooks(&p.hooks)},
				desc.opts...,
			)
			p.breaker = NewBreaker(breakerOpts...)
			p.entries = append(p.entries, PolicyEntry{
				Priority: priorityBreaker,
				Name:     "circuit_breaker",
				Policy:   p.breaker.Policy(),
			})

		case throttleDesc:
			p.throttle = NewThrottle(
				desc.limit,
				desc.interval,
				ThrottleClock(clock),
				ThrottleHooks(&p.hooks),
			)
			p.entries = append(p.entries, PolicyEntry{
				Priority: priorityThrottle,
				Name:     "throttle",
				Policy:   p.throttle.Policy(),
			})

		case bulkheadDesc:
			p.bulkhead = NewBulkhead(desc.maxConcurrent, BulkheadHooks(&p.hooks))
			p.entries = append(p.entries, PolicyEntry{
				Priority: priorityBulkhead,
				Name:     "bulkhead",
				Policy:   p.bulkhead.Policy(),
			})

		case hedgeDesc:
			p.entries = append(p.entries, PolicyEntry{
				Priority: priorityHedge,
				Name:     "hedge",
				Policy:   Hedge(desc.delay, HedgeClock(clock), HedgeHooks(&p.hooks)),
			})

		case cacheDesc:
			cacheOpts := append(
				[]CacheOption{CacheClock(clock), CacheHooks(&p.hooks)},
				desc.opts...,
			)
			p.cache = NewResponseCache(cacheOpts...)
			p.entries = append(p.entries, PolicyEntry{
				Priority: priorityCache,
				Name:     "cache",
				Policy:   p.cache.Policy(),
			})

		case fallbackDesc:
			p.entries = append(p.entries, PolicyEntry{
				Priority: priorityFallback,
				Name:     "fallback",
				Policy:   Fallback(desc.resp, FallbackHooks(&p.hooks)),
			})

		case fallbackFuncDesc:
			p.entries = append(p.entries, PolicyEntry{
				Priority: priorityFallback,
				Name:     "fallback_func",
				Policy:   FallbackFunc(desc.fn, FallbackHooks(&p.hooks)),
			})

		case customDesc:
			p.entries = append(p.entries, PolicyEntry{
				Priority: desc.priority,
				Name:     desc.name,
				Policy:   desc.policy,
			})

		case dependsOnDesc:
			p.deps = append(p.deps, desc.reporters...)
		}
	}

	p.handler = Compose(transport, SortPolicies(p.entries)...)

	// Auto-register if the pipeline has a name.
	if name != "" {
		reg := setup.registry
		if reg == nil {
			reg = DefaultRegistry()
		}

		p.registry = reg
		reg.Register(p)
	}

	return p
}
