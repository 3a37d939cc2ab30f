package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_SetReadyQueueDepth(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetReadyQueueDepth(3)
	if got := testutil.ToFloat64(m.readyQueueDepth); got != 3 {
		t.Errorf("readyQueueDepth = %v, want 3", got)
	}
}

func TestMetrics_SetActiveAgents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetActiveAgents(2)
	if got := testutil.ToFloat64(m.activeAgents); got != 2 {
		t.Errorf("activeAgents = %v, want 2", got)
	}
}

func TestMetrics_AddCostCentsIgnoresNonPositive(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.AddCostCents(0)
	m.AddCostCents(-5)
	if got := testutil.ToFloat64(m.costCentsTotal); got != 0 {
		t.Errorf("costCentsTotal = %v, want 0 after non-positive adds", got)
	}

	m.AddCostCents(42)
	if got := testutil.ToFloat64(m.costCentsTotal); got != 42 {
		t.Errorf("costCentsTotal = %v, want 42", got)
	}
}

func TestMetrics_IncEvent(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncEvent("swarm_start")
	m.IncEvent("swarm_start")
	if got := testutil.ToFloat64(m.eventsTotal.WithLabelValues("swarm_start")); got != 2 {
		t.Errorf("eventsTotal[swarm_start] = %v, want 2", got)
	}
}

func TestMetrics_ObserveNodeLatencyMS(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveNodeLatencyMS("node-a", "completed", 120)
	count := testutil.CollectAndCount(m.nodeLatency)
	if count == 0 {
		t.Error("ObserveNodeLatencyMS should have produced at least one histogram series")
	}
}

func TestMetrics_DisableSuppressesAllRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Disable()

	m.SetReadyQueueDepth(5)
	m.SetActiveAgents(5)
	m.AddCostCents(100)
	m.IncEvent("swarm_done")

	if got := testutil.ToFloat64(m.readyQueueDepth); got != 0 {
		t.Errorf("readyQueueDepth = %v, want 0 while disabled", got)
	}
	if got := testutil.ToFloat64(m.costCentsTotal); got != 0 {
		t.Errorf("costCentsTotal = %v, want 0 while disabled", got)
	}
}

func TestMetrics_EnableResumesRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Disable()
	m.Enable()

	m.SetReadyQueueDepth(7)
	if got := testutil.ToFloat64(m.readyQueueDepth); got != 7 {
		t.Errorf("readyQueueDepth = %v, want 7 after re-enabling", got)
	}
}
