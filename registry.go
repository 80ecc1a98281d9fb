package relay

import (
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// ReadinessStatus — result of checking all registered pipelines
// ---------------------------------------------------------------------------

type (
	// ReadinessStatus is the result of checking all registered pipelines.
	ReadinessStatus struct {
		Pipelines []PipelineStatus `json:"pipelines"`
		Ready     bool             `json:"ready"`
	}

	// Registry tracks HealthReporter instances and derives readiness
	// status. It also stores configurations loaded by [LoadConfig] until
	// [GetPipeline] materializes them.
	//
	// Pattern: Singleton — DefaultRegistry uses sync.OnceValue for safe
	// lazy init; explicit registries can be created for testing or
	// multi-tenant scenarios.
	Registry struct {
		reporters atomic.Pointer[[]HealthReporter]
		configs   map[string]PipelineConfig
		mu        sync.Mutex
	}
)

var defaultRegistry = sync.OnceValue(NewRegistry)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}

	var empty []HealthReporter

	r.reporters.Store(&empty)

	return r
}

// Register adds a HealthReporter to the registry. This is typically called
// during startup by NewPipeline. It is safe for concurrent use but
// intended for initialization only.
func (r *Registry) Register(hr HealthReporter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := *r.reporters.Load()
	// Copy-on-write so concurrent readers never see a mutated slice.
	updated := make([]HealthReporter, len(old), len(old)+1)
	copy(updated, old)
	updated = append(updated, hr)
	r.reporters.Store(&updated)
}

// CheckReadiness iterates all registered reporters and builds a
// ReadinessStatus. Ready is false if any pipeline is CriticalityCritical
// and unhealthy.
func (r *Registry) CheckReadiness() ReadinessStatus {
	reporters := *r.reporters.Load()

	status := ReadinessStatus{
		Ready:     true,
		Pipelines: make([]PipelineStatus, 0, len(reporters)),
	}

	for _, hr := range reporters {
		ps := hr.HealthStatus()
		status.Pipelines = append(status.Pipelines, ps)

		if ps.Criticality == CriticalityCritical && !ps.Healthy {
			status.Ready = false
		}
	}

	return status
}

// DefaultRegistry returns the package-level registry, creating it on first
// call.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}
