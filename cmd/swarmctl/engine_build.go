package main

import (
	"context"
	"fmt"

	"github.com/nexusswarm/swarm/internal/config"
	"github.com/nexusswarm/swarm/internal/contextsource"
	"github.com/nexusswarm/swarm/internal/engine"
	"github.com/nexusswarm/swarm/internal/events"
	"github.com/nexusswarm/swarm/internal/provider"
	"github.com/nexusswarm/swarm/internal/telemetry"
)

// consoleSink prints one line per event to stdout, grounded on the
// teacher's event-to-console rendering in cmd/nexus/handlers.go's
// streaming handlers.
type consoleSink struct{}

func (consoleSink) Emit(_ context.Context, e events.Event) {
	switch e.Type {
	case events.TypeSwarmStart:
		fmt.Printf("[swarm] start: %d nodes\n", e.SwarmStart.NodeCount)
	case events.TypeSwarmProgress:
		fmt.Printf("[swarm] progress: %d/%d complete, running %v\n", e.SwarmProgress.Completed, e.SwarmProgress.Total, e.SwarmProgress.RunningNodes)
	case events.TypeSwarmDone:
		fmt.Printf("[swarm] done: cost %d cents\n", e.SwarmDone.TotalCost.CostCents)
	case events.TypeSwarmError:
		fmt.Printf("[swarm] error: %s\n", e.SwarmError.Message)
	case events.TypeSwarmCancelled:
		fmt.Printf("[swarm] cancelled: %d nodes completed\n", len(e.SwarmCancelled.CompletedNodes))
	case events.TypeAgentStart:
		fmt.Printf("[%s] start (%s)\n", e.AgentStart.NodeID, e.AgentStart.AgentRole)
	case events.TypeAgentDone:
		fmt.Printf("[%s] done: %d cents\n", e.AgentDone.NodeID, e.AgentDone.Cost.CostCents)
	case events.TypeAgentError:
		fmt.Printf("[%s] error: %s (%s)\n", e.AgentError.NodeID, e.AgentError.Message, e.AgentError.ErrorType)
	case events.TypeRouteDecision:
		fmt.Printf("[route] %s -> %s (%s)\n", e.RouteDecision.FromNode, e.RouteDecision.ToNode, e.RouteDecision.Reason)
	case events.TypeBudgetExceeded:
		fmt.Printf("[budget] exceeded: used %d of %d\n", e.BudgetExceeded.Used, e.BudgetExceeded.Limit)
	}
}

// buildEngine wires an Engine from a loaded GraphConfig. The fallback
// provider is a deterministic echo adapter so run/dry-run work out of the
// box against a graph whose nodes specify no provider_id; a real
// deployment registers production adapters before calling Run. A
// vector_memory block in cfg.Run initializes a real embedding-backed
// MemoryProvider; omitting it leaves recall at its Nop default.
func buildEngine(cfg *config.GraphConfig, sink events.Sink, metrics *telemetry.Metrics, tracer *telemetry.Tracer) (*engine.Engine, error) {
	const fallbackProviderID = "echo"

	mem, err := cfg.Run.MemoryProvider()
	if err != nil {
		return nil, err
	}

	eng := engine.New(engine.Config{
		MaxConcurrentAgents: cfg.Run.MaxConcurrentAgents,
		MaxDuration:         cfg.Run.MaxDuration(),
		SwarmBudget:         cfg.Run.SwarmBudget(),
		AgentBudget:         cfg.Run.AgentBudget(),
		ContextTokenBudget:  cfg.Run.ContextTokenBudget,
		ScratchpadPerKey:    cfg.Run.ScratchpadPerKey,
		ScratchpadTotal:     cfg.Run.ScratchpadTotal,
		Sink:                sink,
		Metrics:             metrics,
		Tracer:              tracer,
		Context:             contextsource.Providers{Memory: mem},
	}, fallbackProviderID)

	eng.RegisterProvider(fallbackProviderID, provider.NewFake(fallbackProviderID))

	return eng, nil
}
