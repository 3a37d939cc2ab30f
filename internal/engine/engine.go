// Package engine implements the top-level Engine Façade: construction and
// wiring of every subsystem, graph validation, provider resolution, and
// delegation to the Executor for a single run.
//
// Grounded on internal/multiagent/orchestrator.go's NewOrchestrator
// (construct config defaults, wire sub-components, register configured
// agents, panic-free error return on bad config) and
// internal/agent/routing/router.go's provider-fallback idiom
// (registry[name] ?? default), generalized from a conversational
// multi-agent orchestrator to a one-shot graph-run façade.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/nexusswarm/swarm/internal/contextpack"
	"github.com/nexusswarm/swarm/internal/contextsource"
	"github.com/nexusswarm/swarm/internal/cost"
	"github.com/nexusswarm/swarm/internal/events"
	"github.com/nexusswarm/swarm/internal/executor"
	"github.com/nexusswarm/swarm/internal/graph"
	"github.com/nexusswarm/swarm/internal/lifecycle"
	"github.com/nexusswarm/swarm/internal/memory"
	"github.com/nexusswarm/swarm/internal/persistence"
	"github.com/nexusswarm/swarm/internal/provider"
	"github.com/nexusswarm/swarm/internal/runner"
	"github.com/nexusswarm/swarm/internal/scheduler"
	"github.com/nexusswarm/swarm/internal/telemetry"
)

// Config configures one Engine instance.
type Config struct {
	MaxConcurrentAgents int
	MaxDuration         time.Duration
	SwarmBudget         *cost.Budget
	AgentBudget         *cost.Budget
	ContextTokenBudget  int
	ScratchpadPerKey    int
	ScratchpadTotal     int
	Pricing             map[string]cost.Pricing

	Sink        events.Sink
	Persistence persistence.Adapter
	Hooks       lifecycle.Hooks
	Context     contextsource.Providers

	Metrics *telemetry.Metrics // nil disables Prometheus recording
	Tracer  *telemetry.Tracer  // nil disables OpenTelemetry spans
}

func (c Config) sanitized() Config {
	if c.Persistence == nil {
		c.Persistence = persistence.Nop{}
	}
	if c.Hooks == nil {
		c.Hooks = lifecycle.Nop{}
	}
	return c
}

// Engine wires a provider registry together with the config and exposes
// Run as the single entry point for executing a graph.
type Engine struct {
	cfg       Config
	providers *provider.Registry
}

// New creates an Engine. fallbackProviderID names the adapter resolved
// when a node specifies no ProviderID (spec §4.11).
func New(cfg Config, fallbackProviderID string) *Engine {
	return &Engine{
		cfg:       cfg.sanitized(),
		providers: provider.NewRegistry(fallbackProviderID),
	}
}

// RegisterProvider adds a named provider adapter, analogous to
// Orchestrator.RegisterAgent's role of populating a lookup table before a
// run starts.
func (e *Engine) RegisterProvider(id string, adapter provider.Adapter) {
	e.providers.Register(id, adapter)
}

// Validate runs pre-execution checks against g using the engine's
// currently registered providers.
func (e *Engine) Validate(g *graph.Graph) graph.ValidationResult {
	return graph.Validate(g, e.providers.Known())
}

// Run validates g and, if valid, executes it to completion, returning
// per-node outputs and the final cost summary.
func (e *Engine) Run(ctx context.Context, g *graph.Graph) (map[string]string, cost.Summary, error) {
	validation := e.Validate(g)
	if validation.Err != nil {
		return nil, cost.Summary{}, fmt.Errorf("graph validation: %w", validation.Err)
	}

	emitter := events.NewEmitter(e.cfg.Sink)
	costs := cost.NewTracker(e.cfg.Pricing, e.cfg.SwarmBudget, e.cfg.AgentBudget)
	scratch := memory.NewScratchpad(e.cfg.ScratchpadPerKey, e.cfg.ScratchpadTotal)
	channels := memory.NewChannels()
	assembler := contextpack.New(e.cfg.ContextTokenBudget)
	sched := scheduler.New(g, e.cfg.MaxConcurrentAgents)
	evaluator := executor.NewEvaluator(e.providers)

	run := runner.New(runner.Deps{
		Providers:  e.providers,
		Cost:       costs,
		Emitter:    emitter,
		Scratchpad: scratch,
		Channels:   channels,
		Assembler:  assembler,
		Context:    e.cfg.Context,
	})

	e.cfg.Hooks.OnSwarmStart(ctx, g)

	exec := executor.New(g, sched, run, emitter, costs, evaluator, executor.Config{
		MaxConcurrentAgents: e.cfg.MaxConcurrentAgents,
		MaxDuration:         e.cfg.MaxDuration,
		SwarmBudget:         e.cfg.SwarmBudget,
		AgentBudget:         e.cfg.AgentBudget,
	}).WithTelemetry(e.cfg.Metrics, e.cfg.Tracer)

	outputs, total, err := exec.Run(ctx)

	if err != nil {
		e.cfg.Hooks.OnSwarmError(ctx, err, total)
	} else {
		e.cfg.Hooks.OnSwarmDone(ctx, outputs, total)
	}

	if persistErr := e.persistFinal(ctx, g.ID, outputs, total); persistErr != nil {
		// Persistence failures are advisory: the run's result already
		// happened and must not be discarded because of a storage error.
		_ = persistErr
	}

	return outputs, total, err
}

func (e *Engine) persistFinal(ctx context.Context, runID string, outputs map[string]string, total cost.Summary) error {
	return e.cfg.Persistence.AppendEvent(ctx, runID, events.Event{
		Type: events.TypeSwarmDone,
		SwarmDone: &events.SwarmDonePayload{
			Results:   outputs,
			TotalCost: total,
		},
	})
}
