// Package graph holds the swarm's node/edge data model: Nodes,
// AgentDescriptors, regular Edges (optionally cycle-bounded), Conditional
// Edges, and the Graph container itself with runtime mutation.
//
// Grounded on internal/multiagent/swarm.go's DependencyGraph and
// internal/multiagent/types.go's AgentDefinition, generalized from a
// static, acyclic, once-built dependency graph to one that is mutable at
// runtime and can carry bounded feedback edges and conditional routing.
package graph

import (
	"fmt"
	"sync"

	"github.com/nexusswarm/swarm/pkg/swarmerr"
)

// AgentDescriptor is the identity and invocation configuration of an
// agent. Grounded on internal/multiagent/types.go's AgentDefinition,
// trimmed to the fields spec.md §3 names.
type AgentDescriptor struct {
	ID           string
	Name         string
	Role         string
	SystemPrompt string
	Model        string
	Temperature  float64
	MaxTokens    int
	ProviderID   string
}

// Node is one agent invocation vertex in the run graph.
type Node struct {
	ID         string
	Agent      AgentDescriptor
	Task       string
	CanEmitDAG bool
}

// Edge is a regular dependency edge. MaxCycles > 0 marks it as a feedback
// edge permitting its target to be re-scheduled up to that many total
// completions.
type Edge struct {
	From      string
	To        string
	MaxCycles int
}

// IsFeedback reports whether this edge carries a cycle bound.
func (e Edge) IsFeedback() bool { return e.MaxCycles > 0 }

// EvaluatorKind tags a ConditionalEdge's Evaluator variant.
type EvaluatorKind string

const (
	EvaluatorRule  EvaluatorKind = "rule"
	EvaluatorRegex EvaluatorKind = "regex"
	EvaluatorLLM   EvaluatorKind = "llm"
)

// RuleFunc maps a completed node's output to a target label.
type RuleFunc func(output string) string

// Evaluator is the tagged variant described in spec §3: rule, regex, or
// llm. Exactly one of the kind-specific fields is meaningful for a given
// Kind.
type Evaluator struct {
	Kind EvaluatorKind

	// rule
	Rule RuleFunc

	// regex
	Pattern     string
	MatchTarget string
	ElseTarget  string

	// llm
	Prompt     string
	Model      string
	ProviderID string
}

// ConditionalEdge routes a completed node's output to exactly one of
// Targets (label -> node ID), or marks all Targets skipped.
type ConditionalEdge struct {
	From      string
	Evaluate  Evaluator
	Targets   map[string]string
}

// Graph is the mutable node/edge collection for one run. Nodes and edges
// may be appended while a run is in progress (dynamic expansion); the set
// of conditional edges and dynamically-expandable node IDs is fixed at
// construction, per spec §3.
type Graph struct {
	mu sync.RWMutex

	ID string

	nodes    map[string]*Node
	nodeIDs  []string // insertion order, for deterministic iteration
	edges    []Edge
	condEdges []ConditionalEdge
}

// New creates an empty Graph with the given ID.
func New(id string) *Graph {
	return &Graph{
		ID:    id,
		nodes: make(map[string]*Node),
	}
}

// AddNode inserts node. Duplicate IDs at build time are a configuration
// error; the executor uses this same method during dynamic expansion,
// where a collision instead causes that individual sub-DAG entry to be
// skipped (see internal/executor).
func (g *Graph) AddNode(n Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("add node %q: %w", n.ID, swarmerr.ErrDuplicateNode)
	}
	nCopy := n
	g.nodes[n.ID] = &nCopy
	g.nodeIDs = append(g.nodeIDs, n.ID)
	return nil
}

// AddEdge appends a regular edge.
func (g *Graph) AddEdge(e Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges = append(g.edges, e)
}

// AddConditionalEdge appends a conditional edge. Intended for use only at
// construction time (spec §3: "the set of conditional edges ... [is] fixed
// at construction"), but nothing prevents programmatic use beyond that by
// the executor itself for dynamically-expanded coordinator sub-DAGs that
// include conditional routing in a future extension.
func (g *Graph) AddConditionalEdge(ce ConditionalEdge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.condEdges = append(g.condEdges, ce)
}

// GetNode returns the node for id.
func (g *Graph) GetNode(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// NodeIDs returns all node IDs in insertion order.
func (g *Graph) NodeIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.nodeIDs))
	copy(out, g.nodeIDs)
	return out
}

// IncomingEdges returns all regular edges whose To == id.
func (g *Graph) IncomingEdges(id string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Edge
	for _, e := range g.edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

// OutgoingEdges returns all regular edges whose From == id.
func (g *Graph) OutgoingEdges(id string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Edge
	for _, e := range g.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// ConditionalEdgesFrom returns all conditional edges whose From == id.
func (g *Graph) ConditionalEdgesFrom(id string) []ConditionalEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []ConditionalEdge
	for _, ce := range g.condEdges {
		if ce.From == id {
			out = append(out, ce)
		}
	}
	return out
}

// AllConditionalEdges returns every conditional edge in the graph.
func (g *Graph) AllConditionalEdges() []ConditionalEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]ConditionalEdge, len(g.condEdges))
	copy(out, g.condEdges)
	return out
}

// AllEdges returns every regular edge in the graph.
func (g *Graph) AllEdges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// RootNodes returns nodes with no incoming regular edge.
func (g *Graph) RootNodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	hasIncoming := make(map[string]bool)
	for _, e := range g.edges {
		hasIncoming[e.To] = true
	}
	var roots []string
	for _, id := range g.nodeIDs {
		if !hasIncoming[id] {
			roots = append(roots, id)
		}
	}
	return roots
}

// LeafNodes returns nodes with no outgoing regular edge.
func (g *Graph) LeafNodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	hasOutgoing := make(map[string]bool)
	for _, e := range g.edges {
		hasOutgoing[e.From] = true
	}
	var leaves []string
	for _, id := range g.nodeIDs {
		if !hasOutgoing[id] {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// NodeCount returns the number of nodes currently in the graph.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodeIDs)
}

// IsDynamic reports whether id is flagged canEmitDAG.
func (g *Graph) IsDynamic(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return ok && n.CanEmitDAG
}
