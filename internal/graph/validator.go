package graph

import (
	"fmt"

	"github.com/nexusswarm/swarm/pkg/swarmerr"
)

// ValidationResult carries the outcome of pre-execution checks and the
// advisory cost estimate (never causes failure on its own).
type ValidationResult struct {
	Err               error
	EstimatedCostCents int64
}

// color marks DFS visitation state for cycle detection.
type color int

const (
	white color = iota
	gray
	black
)

// Validate runs the pre-execution checks from spec §4.2: orphan nodes,
// unbounded cycles in the regular-edge subgraph (DFS three-color marking),
// and dangling provider references when a registry of known provider IDs
// is supplied (nil registry skips that check).
func Validate(g *Graph, knownProviders map[string]bool) ValidationResult {
	result := ValidationResult{EstimatedCostCents: int64(g.NodeCount()) * 50}

	if err := checkOrphans(g); err != nil {
		result.Err = err
		return result
	}
	if err := checkUnboundedCycles(g); err != nil {
		result.Err = err
		return result
	}
	if knownProviders != nil {
		if err := checkDanglingProviders(g, knownProviders); err != nil {
			result.Err = err
			return result
		}
	}
	return result
}

// checkOrphans implements spec §4.2's orphan rule. "Root" there means the
// graph's single declared entry point (the first node added at
// construction), not merely "has zero incoming edges" — spec §4.1's
// rootNodes() query and §4.2's orphan check use the word differently, and
// a literal "no incoming edge" reading of "non-root" would make every
// orphan vacuously also a root. Any other node with no incoming regular
// edge and no conditional edge targeting it is unreachable and therefore
// an orphan. See DESIGN.md's Open Question decision for this choice.
func checkOrphans(g *Graph) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.nodeIDs) == 0 {
		return nil
	}
	entryID := g.nodeIDs[0]

	condTargets := make(map[string]bool)
	for _, ce := range g.condEdges {
		for _, target := range ce.Targets {
			condTargets[target] = true
		}
	}
	hasIncoming := make(map[string]bool)
	for _, e := range g.edges {
		hasIncoming[e.To] = true
	}

	for _, id := range g.nodeIDs {
		if id == entryID {
			continue
		}
		n := g.nodes[id]
		if n.CanEmitDAG {
			continue // dynamic coordinators emit children; they need no incoming edge themselves
		}
		if hasIncoming[id] || condTargets[id] {
			continue
		}
		return fmt.Errorf("node %q: %w", id, swarmerr.ErrOrphanNode)
	}
	return nil
}

// checkUnboundedCycles performs DFS with three-color marking over the
// regular-edge subgraph; any cycle found must have every edge on the cycle
// carrying maxCycles, else it's an unbounded-cycle validation failure.
func checkUnboundedCycles(g *Graph) error {
	g.mu.RLock()
	adj := make(map[string][]Edge)
	for _, e := range g.edges {
		adj[e.From] = append(adj[e.From], e)
	}
	nodeIDs := make([]string, len(g.nodeIDs))
	copy(nodeIDs, g.nodeIDs)
	g.mu.RUnlock()

	colors := make(map[string]color)
	var stack []Edge

	var dfs func(id string) error
	dfs = func(id string) error {
		colors[id] = gray
		for _, e := range adj[id] {
			switch colors[e.To] {
			case white:
				stack = append(stack, e)
				if err := dfs(e.To); err != nil {
					return err
				}
				stack = stack[:len(stack)-1]
			case gray:
				// Found a cycle: e.To is an ancestor. Walk stack back to
				// e.To, inspecting every edge on the cycle path.
				if !edgeIsBounded(e) {
					return fmt.Errorf("edge %s->%s: %w", e.From, e.To, swarmerr.ErrUnboundedCycle)
				}
				for i := len(stack) - 1; i >= 0; i-- {
					if !edgeIsBounded(stack[i]) {
						return fmt.Errorf("edge %s->%s: %w", stack[i].From, stack[i].To, swarmerr.ErrUnboundedCycle)
					}
					if stack[i].From == e.To {
						break
					}
				}
			case black:
				// already fully explored, no cycle through here
			}
		}
		colors[id] = black
		return nil
	}

	for _, id := range nodeIDs {
		if colors[id] == white {
			if err := dfs(id); err != nil {
				return err
			}
		}
	}
	return nil
}

func edgeIsBounded(e Edge) bool {
	return e.MaxCycles > 0
}

func checkDanglingProviders(g *Graph, known map[string]bool) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, id := range g.nodeIDs {
		n := g.nodes[id]
		if n.Agent.ProviderID != "" && !known[n.Agent.ProviderID] {
			return fmt.Errorf("node %q provider %q: %w", id, n.Agent.ProviderID, swarmerr.ErrDanglingProvider)
		}
	}
	for _, ce := range g.condEdges {
		if ce.Evaluate.Kind == EvaluatorLLM && ce.Evaluate.ProviderID != "" && !known[ce.Evaluate.ProviderID] {
			return fmt.Errorf("conditional edge from %q provider %q: %w", ce.From, ce.Evaluate.ProviderID, swarmerr.ErrDanglingProvider)
		}
	}
	return nil
}
