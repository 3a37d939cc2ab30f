package main

import (
	"context"
	"testing"

	"github.com/nexusswarm/swarm/internal/config"
	"github.com/nexusswarm/swarm/internal/cost"
	"github.com/nexusswarm/swarm/internal/events"
)

func TestConsoleSink_EmitDoesNotPanicForAnyEventType(t *testing.T) {
	sink := consoleSink{}
	ctx := context.Background()

	cases := []events.Event{
		{Type: events.TypeSwarmStart, SwarmStart: &events.SwarmStartPayload{NodeCount: 3}},
		{Type: events.TypeSwarmProgress, SwarmProgress: &events.SwarmProgressPayload{Completed: 1, Total: 3}},
		{Type: events.TypeSwarmDone, SwarmDone: &events.SwarmDonePayload{TotalCost: cost.Summary{CostCents: 42}}},
		{Type: events.TypeSwarmError, SwarmError: &events.SwarmErrorPayload{Message: "boom"}},
		{Type: events.TypeSwarmCancelled, SwarmCancelled: &events.SwarmCancelledPayload{}},
		{Type: events.TypeAgentStart, AgentStart: &events.AgentStartPayload{NodeID: "a", AgentRole: "writer"}},
		{Type: events.TypeAgentDone, AgentDone: &events.AgentDonePayload{NodeID: "a", Cost: cost.Summary{CostCents: 1}}},
		{Type: events.TypeAgentError, AgentError: &events.AgentErrorPayload{NodeID: "a", Message: "fail", ErrorType: "timeout"}},
		{Type: events.TypeRouteDecision, RouteDecision: &events.RouteDecisionPayload{FromNode: "a", ToNode: "b", Reason: "rule"}},
		{Type: events.TypeBudgetExceeded, BudgetExceeded: &events.BudgetPayload{Used: 100, Limit: 50}},
	}

	for _, e := range cases {
		sink.Emit(ctx, e)
	}
}

func TestBuildEngine_RegistersFallbackProviderAndValidates(t *testing.T) {
	cfg := &config.GraphConfig{
		ID:    "demo",
		Nodes: []config.NodeSpec{{ID: "a"}},
	}

	eng, err := buildEngine(cfg, events.NopSink{}, nil, nil)
	if err != nil {
		t.Fatalf("buildEngine: %v", err)
	}

	g, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	result := eng.Validate(g)
	if result.Err != nil {
		t.Errorf("Validate() = %v, want nil (echo fallback should cover a node with no provider_id)", result.Err)
	}
}

func TestBuildEngine_AcceptsRunConfigLimits(t *testing.T) {
	cfg := &config.GraphConfig{
		ID: "demo",
		Run: config.RunConfig{
			MaxConcurrentAgents: 4,
			SwarmBudgetCents:    1000,
		},
	}

	eng, err := buildEngine(cfg, events.NopSink{}, nil, nil)
	if err != nil {
		t.Fatalf("buildEngine: %v", err)
	}
	if eng == nil {
		t.Fatal("buildEngine() returned nil")
	}
}

func TestGraphNodeCanEmitDAGFlowsThroughConfig(t *testing.T) {
	cfg := &config.GraphConfig{
		Nodes: []config.NodeSpec{{ID: "coordinator", CanEmitDAG: true}},
	}
	g, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	node, ok := g.GetNode("coordinator")
	if !ok || !node.CanEmitDAG {
		t.Errorf("GetNode(coordinator) = %+v, %v, want CanEmitDAG true", node, ok)
	}
}
