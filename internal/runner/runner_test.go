package runner

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/nexusswarm/swarm/internal/contextsource"
	"github.com/nexusswarm/swarm/internal/cost"
	"github.com/nexusswarm/swarm/internal/events"
	"github.com/nexusswarm/swarm/internal/graph"
	"github.com/nexusswarm/swarm/internal/memory"
	"github.com/nexusswarm/swarm/internal/provider"
)

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingSink) Emit(ctx context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func newTestDeps(sink events.Sink, reg *provider.Registry) Deps {
	return Deps{
		Providers: reg,
		Cost:      cost.NewTracker(nil, nil, nil),
		Emitter:   events.NewEmitter(sink),
		Scratchpad: memory.NewScratchpad(0, 0),
		Channels:   memory.NewChannels(),
	}
}

func testNode(providerID string) graph.Node {
	return graph.Node{
		ID: "node-a",
		Agent: graph.AgentDescriptor{
			ID:         "agent-a",
			Role:       "writer",
			Model:      "echo-model",
			ProviderID: providerID,
		},
	}
}

func TestRunner_Run_UnknownProviderReturnsAgentError(t *testing.T) {
	sink := &recordingSink{}
	reg := provider.NewRegistry("")
	r := New(newTestDeps(sink, reg))

	_, agentErr := r.Run(context.Background(), testNode("ghost"), "do the task", nil)
	if agentErr == nil {
		t.Fatal("Run() with an unresolvable provider should return an AgentError")
	}
}

func TestRunner_Run_HappyPathRecordsOutputAndCost(t *testing.T) {
	sink := &recordingSink{}
	fake := provider.NewFake("echo")
	fake.SetPricing("echo-model", provider.Pricing{InputCentsPerM: 100, OutputCentsPerM: 100})
	reg := provider.NewRegistry("echo")
	reg.Register("echo", fake)

	r := New(newTestDeps(sink, reg))
	result, agentErr := r.Run(context.Background(), testNode("echo"), "say hi", nil)
	if agentErr != nil {
		t.Fatalf("Run() error: %v", agentErr)
	}
	if result.Output == "" {
		t.Error("Run() returned empty output from the echo adapter")
	}

	found := map[events.Type]bool{}
	for _, ty := range sink.types() {
		found[ty] = true
	}
	if !found[events.TypeAgentStart] || !found[events.TypeAgentDone] {
		t.Errorf("expected AgentStart and AgentDone events, got %v", sink.types())
	}
}

func TestRunner_Run_StreamErrorEmitsAgentErrorEvent(t *testing.T) {
	sink := &recordingSink{}
	reg := provider.NewRegistry("echo")
	reg.Register("echo", &failingAdapter{})

	r := New(newTestDeps(sink, reg))
	_, agentErr := r.Run(context.Background(), testNode("echo"), "say hi", nil)
	if agentErr == nil {
		t.Fatal("Run() should surface the stream error as an AgentError")
	}

	found := false
	for _, ty := range sink.types() {
		if ty == events.TypeAgentError {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an AgentError event, got %v", sink.types())
	}
}

func TestRunner_DispatchTool_SendMessageDirectAndBroadcast(t *testing.T) {
	sink := &recordingSink{}
	fake := provider.NewFake("echo")
	fake.Script("echo-model", []provider.Event{
		{Kind: provider.EventToolUse, Tool: &provider.ToolUse{
			Name:  "send_message",
			Input: []byte(`{"to":"node-b","content":"hello b"}`),
		}},
		{Kind: provider.EventToolUse, Tool: &provider.ToolUse{
			Name:  "send_message",
			Input: []byte(`{"to":"*","content":"hello everyone"}`),
		}},
		{Kind: provider.EventChunk, Text: "done"},
	})
	reg := provider.NewRegistry("echo")
	reg.Register("echo", fake)

	deps := newTestDeps(sink, reg)
	r := New(deps)

	_, agentErr := r.Run(context.Background(), testNode("echo"), "coordinate", nil)
	if agentErr != nil {
		t.Fatalf("Run(): %v", agentErr)
	}

	inboxB := deps.Channels.Inbox("node-b")
	if len(inboxB) != 2 {
		t.Fatalf("Inbox(node-b) len = %d, want 2 (direct + broadcast)", len(inboxB))
	}
}

func TestRunner_DispatchTool_ScratchpadSetAndAppend(t *testing.T) {
	sink := &recordingSink{}
	fake := provider.NewFake("echo")
	fake.Script("echo-model", []provider.Event{
		{Kind: provider.EventToolUse, Tool: &provider.ToolUse{
			Name:  "scratchpad_set",
			Input: []byte(`{"key":"k","value":"v1"}`),
		}},
		{Kind: provider.EventToolUse, Tool: &provider.ToolUse{
			Name:  "scratchpad_append",
			Input: []byte(`{"key":"list","value":"item1"}`),
		}},
		{Kind: provider.EventChunk, Text: "done"},
	})
	reg := provider.NewRegistry("echo")
	reg.Register("echo", fake)

	deps := newTestDeps(sink, reg)
	r := New(deps)

	_, agentErr := r.Run(context.Background(), testNode("echo"), "coordinate", nil)
	if agentErr != nil {
		t.Fatalf("Run(): %v", agentErr)
	}

	if v, ok := deps.Scratchpad.Get("k"); !ok || v != "v1" {
		t.Errorf("Scratchpad.Get(k) = %v, %v, want v1, true", v, ok)
	}
	if list := deps.Scratchpad.GetList("list"); len(list) != 1 || list[0] != "item1" {
		t.Errorf("Scratchpad.GetList(list) = %v, want [item1]", list)
	}
}

func TestRunner_AssemblePrompt_IncludesUpstreamAndScratchpad(t *testing.T) {
	sink := &recordingSink{}
	reg := provider.NewRegistry("echo")
	fake := provider.NewFake("echo")
	reg.Register("echo", fake)

	deps := newTestDeps(sink, reg)
	deps.Scratchpad.Set("shared-key", "shared-value", "agent-x")
	r := New(deps)

	prompt := r.assemblePrompt(context.Background(), r.deps.Assembler, testNode("echo"), "the task", map[string]string{"upstream-node": "upstream output"})
	if !strings.Contains(prompt, "the task") || !strings.Contains(prompt, "upstream output") || !strings.Contains(prompt, "shared-value") {
		t.Errorf("assemblePrompt() = %q, want task, upstream output, and scratchpad content", prompt)
	}
}

type stubMemory struct{ text string }

func (s stubMemory) Recall(ctx context.Context, nodeID, query string) (string, error) {
	return s.text, nil
}

type stubPersona struct{ text string }

func (s stubPersona) Persona(ctx context.Context, agentID string) (string, error) {
	return s.text, nil
}

func TestRunner_AssemblePrompt_IncludesRecalledMemory(t *testing.T) {
	sink := &recordingSink{}
	reg := provider.NewRegistry("echo")
	reg.Register("echo", provider.NewFake("echo"))

	deps := newTestDeps(sink, reg)
	deps.Context = contextsource.Providers{Memory: stubMemory{text: "recalled fact"}}
	r := New(deps)

	prompt := r.assemblePrompt(context.Background(), r.deps.Assembler, testNode("echo"), "the task", nil)
	if !strings.Contains(prompt, "recalled fact") {
		t.Errorf("assemblePrompt() = %q, want recalled memory text included", prompt)
	}
}

func TestRunner_PrependPersona_PrefixesSystemPrompt(t *testing.T) {
	sink := &recordingSink{}
	reg := provider.NewRegistry("echo")
	reg.Register("echo", provider.NewFake("echo"))

	deps := newTestDeps(sink, reg)
	deps.Context = contextsource.Providers{Persona: stubPersona{text: "You are terse."}}
	r := New(deps)

	node := testNode("echo")
	node.Agent.SystemPrompt = "Write a summary."
	system := r.prependPersona(context.Background(), node)
	if !strings.Contains(system, "You are terse.") || !strings.Contains(system, "Write a summary.") {
		t.Errorf("prependPersona() = %q, want persona text and original system prompt", system)
	}
}

func TestRunner_PrependPersona_NopDefaultsReturnsOriginalSystemPrompt(t *testing.T) {
	sink := &recordingSink{}
	reg := provider.NewRegistry("echo")
	reg.Register("echo", provider.NewFake("echo"))

	deps := newTestDeps(sink, reg)
	r := New(deps)

	node := testNode("echo")
	node.Agent.SystemPrompt = "Write a summary."
	system := r.prependPersona(context.Background(), node)
	if system != "Write a summary." {
		t.Errorf("prependPersona() = %q, want unchanged system prompt when no persona is configured", system)
	}
}

type failingAdapter struct{}

func (failingAdapter) Stream(ctx context.Context, params provider.StreamParams, onEvent func(provider.Event)) error {
	return context.DeadlineExceeded
}
func (failingAdapter) Name() string { return "failing" }
func (failingAdapter) EstimateCost(model string, inputTokens, outputTokens int64) int64 { return 0 }
func (failingAdapter) ModelLimits(model string) (provider.ModelLimits, bool)            { return provider.ModelLimits{}, false }
