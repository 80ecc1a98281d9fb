package relay

// ---------------------------------------------------------------------------
// HealthReporter interface
// ---------------------------------------------------------------------------

type (
	// HealthReporter is implemented by [Pipeline]. The interface keeps the
	// registry independent of pipeline internals, so applications can
	// register their own reporters alongside pipelines.
	HealthReporter interface {
		// Name returns the reporter's name.
		Name() string
		// HealthStatus returns the current health state.
		HealthStatus() PipelineStatus
	}

	// Criticality represents how a pattern's unhealthy state affects
	// readiness.
	Criticality int

	// PipelineStatus represents the current health state of a pipeline.
	PipelineStatus struct {
		Name         string           `json:"name"`
		State        string           `json:"state"`
		Dependencies []PipelineStatus `json:"dependencies,omitempty"`
		Criticality  Criticality      `json:"criticality"`
		Healthy      bool             `json:"healthy"`
	}
)

const (
	// CriticalityNone means the pattern has no persistent health state.
	CriticalityNone Criticality = iota
	// CriticalityDegraded means the client can still serve but is impaired.
	CriticalityDegraded
	// CriticalityCritical means the client cannot reliably issue requests.
	CriticalityCritical
)

// String returns the criticality level as a human-readable string.
func (c Criticality) String() string {
	switch c {
	case CriticalityDegraded:
		return "degraded"
	case CriticalityCritical:
		return "critical"
	default:
		return "none"
	}
}

// ---------------------------------------------------------------------------
// HealthStatus on Pipeline
// ---------------------------------------------------------------------------

// HealthStatus derives the pipeline's current health by inspecting its
// stateful patterns.
func (p *Pipeline) HealthStatus() PipelineStatus {
	status := PipelineStatus{
		Name:    p.name,
		Healthy: true,
		State:   "healthy",
	}

	// Circuit breaker — Critical
	if p.breaker != nil {
		switch p.breaker.State() {
		case "open":
			status.Healthy = false
			status.Criticality = CriticalityCritical
			status.State = "circuit_open"
		case "half_open":
			// Recovering, not unhealthy.
			status.State = "circuit_half_open"
		default:
			// closed — no action needed
		}
	}

	// Throttle — Degraded (only if not already Critical)
	if p.throttle != nil && p.throttle.Saturated() {
		if status.Criticality < CriticalityDegraded {
			status.Criticality = CriticalityDegraded
		}

		if status.Healthy && status.State == "healthy" {
			status.State = "throttled"
		}
	}

	// Bulkhead — Degraded (only if not already Critical)
	if p.bulkhead != nil && p.bulkhead.Full() {
		if status.Criticality < CriticalityDegraded {
			status.Criticality = CriticalityDegraded
		}

		if status.Healthy && status.State == "healthy" {
			status.State = "bulkhead_full"
		}
	}

	// Dependencies — propagate health from sub-dependencies.
	for _, dep := range p.deps {
		depStatus := dep.HealthStatus()
		status.Dependencies = append(status.Dependencies, depStatus)

		// An unhealthy critical dependency degrades this pipeline.
		if depStatus.Criticality != CriticalityCritical || depStatus.Healthy {
			continue
		}

		if status.Criticality < CriticalityDegraded {
			status.Criticality = CriticalityDegraded
		}
	}

	return status
}
