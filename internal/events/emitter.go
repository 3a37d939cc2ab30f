package events

import (
	"context"
	"sync/atomic"

	"github.com/nexusswarm/swarm/internal/cost"
)

// Emitter generates Events with a monotonic sequence number and dispatches
// them to a Sink. Grounded on internal/agent/event_emitter.go's
// EventEmitter: an atomic sequence counter plus one typed method per event
// variant.
type Emitter struct {
	sequence atomic.Uint64
	sink     Sink
}

// NewEmitter creates an Emitter dispatching to sink. A nil sink is
// replaced with NopSink, matching the teacher's constructor.
func NewEmitter(sink Sink) *Emitter {
	if sink == nil {
		sink = NopSink{}
	}
	return &Emitter{sink: sink}
}

func (e *Emitter) nextSeq() uint64 {
	return e.sequence.Add(1)
}

func (e *Emitter) emit(ctx context.Context, ev Event) Event {
	ev.Sequence = e.nextSeq()
	e.sink.Emit(ctx, ev)
	return ev
}

func (e *Emitter) SwarmStart(ctx context.Context, dagID string, nodeCount int, estimatedCost int64) Event {
	return e.emit(ctx, Event{Type: TypeSwarmStart, SwarmStart: &SwarmStartPayload{DAGID: dagID, NodeCount: nodeCount, EstimatedCost: estimatedCost}})
}

func (e *Emitter) SwarmProgress(ctx context.Context, completed, total int, running []string) Event {
	return e.emit(ctx, Event{Type: TypeSwarmProgress, SwarmProgress: &SwarmProgressPayload{Completed: completed, Total: total, RunningNodes: running}})
}

func (e *Emitter) SwarmDone(ctx context.Context, results map[string]string, total cost.Summary) Event {
	return e.emit(ctx, Event{Type: TypeSwarmDone, SwarmDone: &SwarmDonePayload{Results: results, TotalCost: total}})
}

func (e *Emitter) SwarmError(ctx context.Context, message string, completed []string, partial cost.Summary) Event {
	return e.emit(ctx, Event{Type: TypeSwarmError, SwarmError: &SwarmErrorPayload{Message: message, CompletedNodes: completed, PartialCost: partial}})
}

func (e *Emitter) SwarmCancelled(ctx context.Context, completed []string, partial cost.Summary) Event {
	return e.emit(ctx, Event{Type: TypeSwarmCancelled, SwarmCancelled: &SwarmCancelledPayload{CompletedNodes: completed, PartialCost: partial}})
}

func (e *Emitter) AgentStart(ctx context.Context, nodeID, role, name string) Event {
	return e.emit(ctx, Event{Type: TypeAgentStart, AgentStart: &AgentStartPayload{NodeID: nodeID, AgentRole: role, AgentName: name}})
}

func (e *Emitter) AgentChunk(ctx context.Context, nodeID, role, content string) Event {
	return e.emit(ctx, Event{Type: TypeAgentChunk, AgentChunk: &AgentChunkPayload{NodeID: nodeID, AgentRole: role, Content: content}})
}

func (e *Emitter) AgentToolUse(ctx context.Context, nodeID, tool string, input map[string]any) Event {
	return e.emit(ctx, Event{Type: TypeAgentToolUse, AgentTool: &AgentToolPayload{NodeID: nodeID, Tool: tool, Input: input}})
}

func (e *Emitter) AgentDone(ctx context.Context, nodeID, role, output string, c cost.Summary, artifactRequest string) Event {
	return e.emit(ctx, Event{Type: TypeAgentDone, AgentDone: &AgentDonePayload{NodeID: nodeID, AgentRole: role, Output: output, Cost: c, ArtifactRequest: artifactRequest}})
}

func (e *Emitter) AgentError(ctx context.Context, nodeID, role, message, errType string) Event {
	return e.emit(ctx, Event{Type: TypeAgentError, AgentError: &AgentErrorPayload{NodeID: nodeID, AgentRole: role, Message: message, ErrorType: errType}})
}

func (e *Emitter) RouteDecision(ctx context.Context, from, to, reason string) Event {
	return e.emit(ctx, Event{Type: TypeRouteDecision, RouteDecision: &RouteDecisionPayload{FromNode: from, ToNode: to, Reason: reason}})
}

func (e *Emitter) LoopIteration(ctx context.Context, nodeID string, iteration, maxIterations int) Event {
	return e.emit(ctx, Event{Type: TypeLoopIteration, LoopIteration: &LoopIterationPayload{NodeID: nodeID, Iteration: iteration, MaxIterations: maxIterations}})
}

func (e *Emitter) BudgetWarning(ctx context.Context, used, limit int64, percent float64) Event {
	return e.emit(ctx, Event{Type: TypeBudgetWarning, BudgetWarning: &BudgetPayload{Used: used, Limit: limit, PercentUsed: percent}})
}

func (e *Emitter) BudgetExceeded(ctx context.Context, used, limit int64) Event {
	return e.emit(ctx, Event{Type: TypeBudgetExceeded, BudgetExceeded: &BudgetPayload{Used: used, Limit: limit}})
}
