package relay

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

type (
	// configFile is the top-level structure of a config document.
	configFile struct {
		Pipelines map[string]PipelineConfig `json:"pipelines" yaml:"pipelines"`
	}

	// PipelineConfig holds the decoded configuration for a single
	// pipeline. Export it to embed in your own app config structs for
	// JSON or YAML unmarshaling, then call [BuildOptions] to obtain
	// functional options for [NewPipeline].
	PipelineConfig struct {
		// CircuitBreaker configures the circuit breaker pattern.
		// Optional. Example: {"failure_threshold": 5}.
		CircuitBreaker *BreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
		// Retry configures the retry pattern.
		// Optional. Example: {"tries": 3, "backoff": "exponential"}.
		Retry *RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
		// Throttle configures the rolling-window limiter.
		// Optional. Example: {"limit": 10, "interval": "1s"}.
		Throttle *ThrottleConfig `json:"throttle,omitempty" yaml:"throttle,omitempty"`
		// Cache configures the response cache.
		// Optional. Example: {"default_ttl": "5m", "max_entries": 512}.
		Cache *CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
		// Timeout is the maximum duration for a single call.
		// Optional. Parsed via time.ParseDuration. Example: "2s".
		Timeout *string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
		// Hedge is the delay before launching a hedged request.
		// Optional. Parsed via time.ParseDuration. Example: "200ms".
		Hedge *string `json:"hedge,omitempty" yaml:"hedge,omitempty"`
		// Bulkhead is the maximum concurrent requests.
		// Optional. Example: 10.
		Bulkhead *int `json:"bulkhead,omitempty" yaml:"bulkhead,omitempty"`
	}

	// BreakerConfig holds circuit breaker configuration values.
	BreakerConfig struct {
		// ResetTimeout is the duration the breaker stays open.
		// Optional. Parsed via time.ParseDuration. Example: "30s".
		ResetTimeout *string `json:"reset_timeout,omitempty" yaml:"reset_timeout,omitempty"`
		// FailureThreshold is the number of failures before opening.
		// Optional. Example: 5.
		FailureThreshold *int `json:"failure_threshold,omitempty" yaml:"failure_threshold,omitempty"`
	}

	// RetryConfig holds retry configuration values. Config-built retries
	// use the [RetryOnTransientError] predicate; code-level predicates
	// are supplied through [NewPipeline] options instead.
	RetryConfig struct {
		// Backoff is the delay strategy name.
		// Required. One of: "constant", "exponential", "linear",
		// "exponential_jitter".
		Backoff *string `json:"backoff,omitempty" yaml:"backoff,omitempty"`
		// BaseDelay is the base delay for the strategy.
		// Required. Parsed via time.ParseDuration. Example: "100ms".
		BaseDelay *string `json:"base_delay,omitempty" yaml:"base_delay,omitempty"`
		// MaxDelay caps the computed delay.
		// Optional. Parsed via time.ParseDuration. Example: "30s".
		MaxDelay *string `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
		// Tries is the total number of attempts.
		// Required. Example: 3.
		Tries *int `json:"tries,omitempty" yaml:"tries,omitempty"`
	}

	// ThrottleConfig holds rolling-window limiter configuration values.
	ThrottleConfig struct {
		// Interval is the window length.
		// Required. Parsed via time.ParseDuration. Example: "1s".
		Interval *string `json:"interval,omitempty" yaml:"interval,omitempty"`
		// Limit is the number of call starts per window.
		// Required. Example: 10.
		Limit *int `json:"limit,omitempty" yaml:"limit,omitempty"`
	}

	// CacheConfig holds response cache configuration values.
	CacheConfig struct {
		// DefaultTTL is the freshness lifetime when the response carries
		// no max-age. Optional. Example: "5m".
		DefaultTTL *string `json:"default_ttl,omitempty" yaml:"default_ttl,omitempty"`
		// MaxTTL clamps every computed lifetime. Optional. Example: "1h".
		MaxTTL *string `json:"max_ttl,omitempty" yaml:"max_ttl,omitempty"`
		// Methods lists the request methods that participate.
		// Optional. Default: GET, HEAD.
		Methods []string `json:"methods,omitempty" yaml:"methods,omitempty"`
		// StatusCodes lists the response statuses eligible for storing.
		// Optional. Default: 200.
		StatusCodes []int `json:"status_codes,omitempty" yaml:"status_codes,omitempty"`
		// MaxEntries bounds the default in-memory storage.
		// Optional. Example: 512.
		MaxEntries *int `json:"max_entries,omitempty" yaml:"max_entries,omitempty"`
	}
)

// LoadConfig reads a configuration file and stores the pipeline
// configurations in a [Registry]. Files ending in .yaml or .yml are parsed
// as YAML, everything else as JSON. Actual [Pipeline] instances are not
// created until [GetPipeline] is called, allowing the caller to provide
// the transport and additional code-level options.
//
// Duration values (timeout, reset_timeout, base_delay, max_delay, hedge,
// interval, default_ttl, max_ttl) are parsed using [time.ParseDuration].
func LoadConfig(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("relay: read config: %w", err)
	}

	var cfg configFile

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("relay: parse config: %w", err)
		}
	default:
		if err = json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("relay: parse config: %w", err)
		}
	}

	// Validate all pipelines eagerly so errors surface at load time.
	for name, pc := range cfg.Pipelines {
		if _, buildErr := BuildOptions(&pc); buildErr != nil {
			return nil, fmt.Errorf("relay: pipeline %q: %w", name, buildErr)
		}
	}

	reg := NewRegistry()
	reg.mu.Lock()
	reg.configs = cfg.Pipelines
	reg.mu.Unlock()

	return reg, nil
}

// BuildOptions converts a [PipelineConfig] into a slice of option values
// suitable for [NewPipeline]. Use this when you embed [PipelineConfig] in
// your own config struct and want to build a pipeline without going
// through [LoadConfig].
func BuildOptions(pc *PipelineConfig) ([]any, error) {
	var opts []any

	if pc.Timeout != nil {
		d, err := time.ParseDuration(*pc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("timeout: %w", err)
		}

		opts = append(opts, WithTimeout(d))
	}

	if pc.CircuitBreaker != nil {
		var breakerOpts []BreakerOption

		if pc.CircuitBreaker.FailureThreshold != nil {
			breakerOpts = append(
				breakerOpts,
				FailureThreshold(*pc.CircuitBreaker.FailureThreshold),
			)
		}

		if pc.CircuitBreaker.ResetTimeout != nil {
			resetDur, err := time.ParseDuration(*pc.CircuitBreaker.ResetTimeout)
			if err != nil {
				return nil, fmt.Errorf("circuit_breaker.reset_timeout: %w", err)
			}

			breakerOpts = append(breakerOpts, ResetTimeout(resetDur))
		}

		opts = append(opts, WithCircuitBreaker(breakerOpts...))
	}

	if pc.Retry != nil {
		retryOpt, err := buildRetryOption(pc.Retry)
		if err != nil {
			return nil, fmt.Errorf("retry: %w", err)
		}

		opts = append(opts, retryOpt)
	}

	if pc.Throttle != nil {
		if pc.Throttle.Limit == nil || pc.Throttle.Interval == nil {
			return nil, fmt.Errorf("throttle: limit and interval are required")
		}

		interval, err := time.ParseDuration(*pc.Throttle.Interval)
		if err != nil {
			return nil, fmt.Errorf("throttle.interval: %w", err)
		}

		opts = append(opts, WithThrottle(*pc.Throttle.Limit, interval))
	}

	if pc.Cache != nil {
		cacheOpts, err := buildCacheOptions(pc.Cache)
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}

		opts = append(opts, WithCache(cacheOpts...))
	}

	if pc.Bulkhead != nil {
		opts = append(opts, WithBulkhead(*pc.Bulkhead))
	}

	if pc.Hedge != nil {
		d, err := time.ParseDuration(*pc.Hedge)
		if err != nil {
			return nil, fmt.Errorf("hedge: %w", err)
		}

		opts = append(opts, WithHedge(d))
	}

	return opts, nil
}

// buildRetryOption maps a RetryConfig to a WithRetry option using the
// transient-error predicate.
func buildRetryOption(rc *RetryConfig) (any, error) {
	strategy, err := parseDelayStrategy(rc.Backoff, rc.BaseDelay)
	if err != nil {
		return nil, err
	}

	if rc.MaxDelay != nil {
		maxDel, maxDelErr := time.ParseDuration(*rc.MaxDelay)
		if maxDelErr != nil {
			return nil, fmt.Errorf("max_delay: %w", maxDelErr)
		}

		strategy = CappedDelay(strategy, maxDel)
	}

	tries := 0
	if rc.Tries != nil {
		tries = *rc.Tries
	}

	return WithRetry(
		RetryOnTransientError,
		[]DelayStrategy{strategy},
		Tries(tries),
	), nil
}

// buildCacheOptions maps a CacheConfig to response cache options.
func buildCacheOptions(cc *CacheConfig) ([]CacheOption, error) {
	var cacheOpts []CacheOption

	if cc.DefaultTTL != nil {
		ttl, err := time.ParseDuration(*cc.DefaultTTL)
		if err != nil {
			return nil, fmt.Errorf("default_ttl: %w", err)
		}

		cacheOpts = append(cacheOpts, CacheDefaultTTL(ttl))
	}

	if cc.MaxTTL != nil {
		ttl, err := time.ParseDuration(*cc.MaxTTL)
		if err != nil {
			return nil, fmt.Errorf("max_ttl: %w", err)
		}

		cacheOpts = append(cacheOpts, CacheMaxTTL(ttl))
	}

	if len(cc.Methods) > 0 {
		cacheOpts = append(cacheOpts, CacheMethods(cc.Methods...))
	}

	if len(cc.StatusCodes) > 0 {
		cacheOpts = append(cacheOpts, CacheStatusCodes(cc.StatusCodes...))
	}

	if cc.MaxEntries != nil {
		cacheOpts = append(cacheOpts, CacheStorage(NewMemoryStorage(*cc.MaxEntries)))
	}

	return cacheOpts, nil
}

// parseDelayStrategy maps a strategy name + base delay to a DelayStrategy.
// Both fields are required pointers; nil values produce an error.
func parseDelayStrategy(name, baseDelayStr *string) (DelayStrategy, error) {
	const errCtx = "parsing delay strategy"

	if name == nil {
		return nil, fmt.Errorf("%s: backoff is required", errCtx)
	}

	if baseDelayStr == nil {
		return nil, fmt.Errorf("%s: base_delay is required", errCtx)
	}

	base, err := time.ParseDuration(*baseDelayStr)
	if err != nil {
		return nil, fmt.Errorf("base_delay: %w", err)
	}

	switch *name {
	case "constant":
		return ConstantDelay(base), nil
	case "exponential":
		return ExponentialBackoff(base), nil
	case "linear":
		return LinearBackoff(base), nil
	case "exponential_jitter":
		return ExponentialJitterBackoff(base), nil
	default:
		return nil, fmt.Errorf("unknown delay strategy: %q", *name)
	}
}

// GetPipeline retrieves a named pipeline configuration from a
// config-loaded [Registry] and returns a [Pipeline] around transport. If
// the name is not found in the stored configs, a bare pipeline is created
// with only the provided opts.
//
// Additional options can be provided to augment or override the
// config-loaded settings (e.g., a custom retry predicate, hooks, a clock,
// or fallbacks). User-provided options are applied after config options,
// so they take precedence.
func GetPipeline(reg *Registry, name string, transport Handler, opts ...any) *Pipeline {
	reg.mu.Lock()
	pc, ok := reg.configs[name]
	reg.mu.Unlock()

	var allOpts []any

	allOpts = append(allOpts, WithRegistry(reg))

	if ok {
		configOpts, err := BuildOptions(&pc)
		if err == nil {
			allOpts = append(allOpts, configOpts...)
		}
	}

	// User opts come last so they can override config values.
	allOpts = append(allOpts, opts...)

	return NewPipeline(name, transport, allOpts...)
}
