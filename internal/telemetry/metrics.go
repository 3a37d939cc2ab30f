// Package telemetry provides Prometheus metrics and OpenTelemetry tracing
// for swarm runs.
//
// Grounded on dshills-langgraph-go/graph/metrics.go's PrometheusMetrics
// (promauto factory, namespaced gauge/histogram/counter set, an `enabled`
// flag so Disable can be called in tests), narrowed to the metrics this
// spec's scheduler/cost/event subsystems can actually produce.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the swarm's Prometheus metrics set, namespaced "swarm_".
type Metrics struct {
	mu      sync.RWMutex
	enabled bool

	readyQueueDepth prometheus.Gauge
	activeAgents    prometheus.Gauge
	costCentsTotal  prometheus.Counter
	eventsTotal     *prometheus.CounterVec
	nodeLatency     *prometheus.HistogramVec
}

// New creates and registers the swarm's metrics against registry. A nil
// registry uses prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		enabled: true,
		readyQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "swarm",
			Name:      "ready_queue_depth",
			Help:      "Number of nodes currently ready to run but not yet dispatched",
		}),
		activeAgents: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "swarm",
			Name:      "active_agents",
			Help:      "Number of agent invocations currently running",
		}),
		costCentsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "swarm",
			Name:      "cost_cents_total",
			Help:      "Cumulative cost in integer cents across all runs",
		}),
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swarm",
			Name:      "events_total",
			Help:      "Cumulative count of swarm events emitted, by type",
		}, []string{"type"}),
		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "swarm",
			Name:      "node_latency_ms",
			Help:      "Node execution duration in milliseconds",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 30000, 60000},
		}, []string{"node_id", "status"}),
	}
}

// SetReadyQueueDepth records the scheduler's current ready-set size.
func (m *Metrics) SetReadyQueueDepth(depth int) {
	if !m.isEnabled() {
		return
	}
	m.readyQueueDepth.Set(float64(depth))
}

// SetActiveAgents records the scheduler's current running-node count.
func (m *Metrics) SetActiveAgents(count int) {
	if !m.isEnabled() {
		return
	}
	m.activeAgents.Set(float64(count))
}

// AddCostCents adds cents to the cumulative cost counter.
func (m *Metrics) AddCostCents(cents int64) {
	if !m.isEnabled() || cents <= 0 {
		return
	}
	m.costCentsTotal.Add(float64(cents))
}

// IncEvent increments the per-type event counter.
func (m *Metrics) IncEvent(eventType string) {
	if !m.isEnabled() {
		return
	}
	m.eventsTotal.WithLabelValues(eventType).Inc()
}

// ObserveNodeLatencyMS records one node run's duration.
func (m *Metrics) ObserveNodeLatencyMS(nodeID, status string, ms float64) {
	if !m.isEnabled() {
		return
	}
	m.nodeLatency.WithLabelValues(nodeID, status).Observe(ms)
}

func (m *Metrics) isEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Disable stops recording, useful in tests that don't want to pollute a
// shared registry's counters.
func (m *Metrics) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
}

// Enable re-enables recording after Disable.
func (m *Metrics) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}
