// Package events defines SwarmEvent, the authoritative observation stream
// produced by a swarm run, and the sink/emitter machinery that generates it
// in causal order.
package events

import "github.com/nexusswarm/swarm/internal/cost"

// Type identifies the kind of swarm event.
type Type string

const (
	TypeAgentStart      Type = "agent_start"
	TypeAgentChunk       Type = "agent_chunk"
	TypeAgentToolUse     Type = "agent_tool_use"
	TypeAgentDone        Type = "agent_done"
	TypeAgentError       Type = "agent_error"
	TypeSwarmStart       Type = "swarm_start"
	TypeSwarmProgress    Type = "swarm_progress"
	TypeSwarmDone        Type = "swarm_done"
	TypeSwarmError       Type = "swarm_error"
	TypeSwarmCancelled   Type = "swarm_cancelled"
	TypeRouteDecision    Type = "route_decision"
	TypeLoopIteration    Type = "loop_iteration"
	TypeBudgetWarning    Type = "budget_warning"
	TypeBudgetExceeded   Type = "budget_exceeded"
)

// Event is the single tagged struct for every SwarmEvent variant. Exactly
// one of the payload fields is populated for a given Type, mirroring
// pkg/models.AgentEvent's "one discriminator, several optional payload
// pointers" shape in the teacher repo.
type Event struct {
	Type     Type   `json:"type"`
	Sequence uint64 `json:"seq"`

	SwarmStart     *SwarmStartPayload     `json:"swarm_start,omitempty"`
	SwarmProgress  *SwarmProgressPayload  `json:"swarm_progress,omitempty"`
	SwarmDone      *SwarmDonePayload      `json:"swarm_done,omitempty"`
	SwarmError     *SwarmErrorPayload     `json:"swarm_error,omitempty"`
	SwarmCancelled *SwarmCancelledPayload `json:"swarm_cancelled,omitempty"`

	AgentStart *AgentStartPayload `json:"agent_start,omitempty"`
	AgentChunk *AgentChunkPayload `json:"agent_chunk,omitempty"`
	AgentTool  *AgentToolPayload  `json:"agent_tool_use,omitempty"`
	AgentDone  *AgentDonePayload  `json:"agent_done,omitempty"`
	AgentError *AgentErrorPayload `json:"agent_error,omitempty"`

	RouteDecision *RouteDecisionPayload `json:"route_decision,omitempty"`
	LoopIteration *LoopIterationPayload `json:"loop_iteration,omitempty"`

	BudgetWarning  *BudgetPayload `json:"budget_warning,omitempty"`
	BudgetExceeded *BudgetPayload `json:"budget_exceeded,omitempty"`
}

type SwarmStartPayload struct {
	DAGID          string
	NodeCount      int
	EstimatedCost  int64
}

type SwarmProgressPayload struct {
	Completed    int
	Total        int
	RunningNodes []string
}

type SwarmDonePayload struct {
	Results   map[string]string
	TotalCost cost.Summary
}

type SwarmErrorPayload struct {
	Message        string
	CompletedNodes []string
	PartialCost    cost.Summary
}

type SwarmCancelledPayload struct {
	CompletedNodes []string
	PartialCost    cost.Summary
}

type AgentStartPayload struct {
	NodeID    string
	AgentRole string
	AgentName string
}

type AgentChunkPayload struct {
	NodeID    string
	AgentRole string
	Content   string
}

type AgentToolPayload struct {
	NodeID string
	Tool   string
	Input  map[string]any
}

type AgentDonePayload struct {
	NodeID         string
	AgentRole      string
	Output         string
	Cost           cost.Summary
	ArtifactRequest string
}

type AgentErrorPayload struct {
	NodeID    string
	AgentRole string
	Message   string
	ErrorType string
}

type RouteDecisionPayload struct {
	FromNode string
	ToNode   string
	Reason   string
}

type LoopIterationPayload struct {
	NodeID       string
	Iteration    int
	MaxIterations int
}

type BudgetPayload struct {
	Used        int64
	Limit       int64
	PercentUsed float64
}
