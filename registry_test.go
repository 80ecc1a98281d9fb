package relay

import (
	"context"
	"sync"
	"testing"
	"time"
)

// staticReporter is a HealthReporter with a fixed status, standing in for
// application components registered alongside pipelines.
type staticReporter struct {
	name   string
	status PipelineStatus
}

func (r *staticReporter) Name() string                 { return r.name }
func (r *staticReporter) HealthStatus() PipelineStatus { return r.status }

func TestRegistryEmptyIsReady(t *testing.T) {
	reg := NewRegistry()

	status := reg.CheckReadiness()
	if !status.Ready || len(status.Pipelines) != 0 {
		t.Fatalf("status = %+v, want ready and empty", status)
	}
}

func TestRegistryReadyWithHealthyPipelines(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&staticReporter{name: "a", status: PipelineStatus{Name: "a", Healthy: true}})
	reg.Register(&staticReporter{name: "b", status: PipelineStatus{Name: "b", Healthy: true}})

	status := reg.CheckReadiness()
	if !status.Ready || len(status.Pipelines) != 2 {
		t.Fatalf("status = %+v, want ready with 2 pipelines", status)
	}
}

func TestRegistryCriticalUnhealthyFlipsReady(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&staticReporter{name: "ok", status: PipelineStatus{Name: "ok", Healthy: true}})
	reg.Register(&staticReporter{name: "down", status: PipelineStatus{
		Name:        "down",
		Healthy:     false,
		Criticality: CriticalityCritical,
	}})

	if reg.CheckReadiness().Ready {
		t.Fatal("Ready = true with a critical unhealthy pipeline")
	}
}

func TestRegistryDegradedDoesNotFlipReady(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&staticReporter{name: "slow", status: PipelineStatus{
		Name:        "slow",
		Healthy:     true,
		Criticality: CriticalityDegraded,
	}})

	if !reg.CheckReadiness().Ready {
		t.Fatal("Ready = false for a merely degraded pipeline")
	}
}

func TestRegistryReflectsLiveBreakerState(t *testing.T) {
	clk := newTestClock()
	reg := NewRegistry()

	p := NewPipeline("payments", downTransport(),
		WithRegistry(reg),
		WithClock(clk),
		WithCircuitBreaker(FailureThreshold(1), ResetTimeout(time.Minute)),
	)

	if !reg.CheckReadiness().Ready {
		t.Fatal("Ready = false before any failure")
	}

	_, _ = p.Do(context.Background(), NewRequest("GET", "x://host/r"))
	if reg.CheckReadiness().Ready {
		t.Fatal("Ready = true with the payments breaker open")
	}

	// Recovery: probe succeeds, breaker closes, readiness returns.
	clk.advance(time.Minute)
	if err := p.Breaker().Allow(); err != nil {
		t.Fatalf("probe Allow = %v", err)
	}
	p.Breaker().RecordSuccess()

	if !reg.CheckReadiness().Ready {
		t.Fatal("Ready = false after the breaker recovered")
	}
}

func TestRegistryConcurrentRegisterAndCheck(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.Register(&staticReporter{status: PipelineStatus{Healthy: true}})
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.CheckReadiness()
		}()
	}
	wg.Wait()

	if n := len(reg.CheckReadiness().Pipelines); n != 20 {
		t.Fatalf("registered = %d, want 20", n)
	}
}

func TestDefaultRegistryIsSingleton(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Fatal("DefaultRegistry must return the same instance")
	}
}
