// Package scheduler tracks per-node NodeStatus and per-feedback-edge cycle
// counts, and computes the ready set under a concurrency cap.
//
// Grounded on internal/multiagent/swarm.go's DependencyGraph.Stages()
// readiness notion, generalized from one-shot topological staging (computed
// once, immutable) to a live state machine: nodes can be registered mid-run
// (dynamic expansion) and reset to pending (feedback cycles), neither of
// which DependencyGraph supports.
package scheduler

import (
	"sort"
	"sync"

	"github.com/nexusswarm/swarm/internal/graph"
	"github.com/nexusswarm/swarm/pkg/swarmerr"
)

// Status is one of the six node lifecycle states from spec §3.
type Status string

const (
	StatusPending   Status = "pending"
	StatusReady     Status = "ready"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// IsTerminal reports whether s is one of {completed, failed, skipped}.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

type edgeKey struct{ from, to string }

// Scheduler is the live state machine over a Graph's nodes.
type Scheduler struct {
	mu sync.Mutex

	g             *graph.Graph
	maxConcurrent int

	status  map[string]Status
	running int

	cycleCounts map[edgeKey]int
}

// New creates a Scheduler over g, seeding pending status for every node
// currently in the graph. maxConcurrent <= 0 means unbounded.
func New(g *graph.Graph, maxConcurrent int) *Scheduler {
	s := &Scheduler{
		g:             g,
		maxConcurrent: maxConcurrent,
		status:        make(map[string]Status),
		cycleCounts:   make(map[edgeKey]int),
	}
	for _, id := range g.NodeIDs() {
		s.status[id] = StatusPending
	}
	return s
}

// RegisterNode introduces a new pending node. Registering an ID that
// already has a status is an error (spec §4.3).
func (s *Scheduler) RegisterNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.status[id]; exists {
		return swarmerr.ErrDuplicateNode
	}
	s.status[id] = StatusPending
	return nil
}

// Status returns the current status of id.
func (s *Scheduler) Status(id string) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[id]
	return st, ok
}

// SetStatus forcibly sets id's status. Used by the executor for
// running/completed/failed/skipped transitions.
func (s *Scheduler) SetStatus(id string, st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.status[id]
	s.status[id] = st
	s.adjustRunningCount(prev, st)
}

func (s *Scheduler) adjustRunningCount(prev, next Status) {
	if prev != StatusRunning && next == StatusRunning {
		s.running++
	}
	if prev == StatusRunning && next != StatusRunning {
		s.running--
	}
}

// ResetNodeForCycle sets any non-pending node back to pending. This is the
// sole exception to forward progress (spec §4.3).
func (s *Scheduler) ResetNodeForCycle(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.status[id]
	s.status[id] = StatusPending
	s.adjustRunningCount(prev, StatusPending)
}

// IncrementCycleCount bumps the completion count attributable to the
// feedback edge from->to and returns the new count.
func (s *Scheduler) IncrementCycleCount(from, to string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := edgeKey{from, to}
	s.cycleCounts[k]++
	return s.cycleCounts[k]
}

// CycleCount returns the current count for from->to without mutating it.
func (s *Scheduler) CycleCount(from, to string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycleCounts[edgeKey{from, to}]
}

// ReadyNodes returns pending nodes whose every regular incoming edge
// originates from a completed node, excluding any ID present in
// conditionallyBlocked, capped by the scheduler's remaining concurrency
// budget. Results are sorted by node ID for determinism.
func (s *Scheduler) ReadyNodes(conditionallyBlocked map[string]bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var slots int
	if s.maxConcurrent <= 0 {
		slots = -1 // unbounded
	} else {
		slots = s.maxConcurrent - s.running
		if slots <= 0 {
			return nil
		}
	}

	var ready []string
	for id, st := range s.status {
		if st != StatusPending {
			continue
		}
		if conditionallyBlocked != nil && conditionallyBlocked[id] {
			continue
		}
		if s.dependenciesSatisfied(id) {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	if slots >= 0 && len(ready) > slots {
		ready = ready[:slots]
	}
	return ready
}

// dependenciesSatisfied reports whether every regular incoming edge to id
// originates from a completed node. Must be called with s.mu held.
func (s *Scheduler) dependenciesSatisfied(id string) bool {
	for _, e := range s.g.IncomingEdges(id) {
		if s.status[e.From] != StatusCompleted {
			return false
		}
	}
	return true
}

// BlockedByFailure returns pending nodes with at least one incoming
// dependency in {failed, skipped}, used by the executor's skip-sweep
// (spec §4.9 step 4).
func (s *Scheduler) BlockedByFailure() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var blocked []string
	for id, st := range s.status {
		if st != StatusPending {
			continue
		}
		for _, e := range s.g.IncomingEdges(id) {
			depStatus := s.status[e.From]
			if depStatus == StatusFailed || depStatus == StatusSkipped {
				blocked = append(blocked, id)
				break
			}
		}
	}
	sort.Strings(blocked)
	return blocked
}

// IsDone reports whether every known node is in a terminal state.
func (s *Scheduler) IsDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.status {
		if !st.IsTerminal() {
			return false
		}
	}
	return true
}

// RunningNodeIDs returns the sorted IDs of nodes currently running.
func (s *Scheduler) RunningNodeIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id, st := range s.status {
		if st == StatusRunning {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// CompletedNodeIDs returns the sorted IDs of nodes currently completed.
func (s *Scheduler) CompletedNodeIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id, st := range s.status {
		if st == StatusCompleted {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Counts returns (completed, total) for swarm_progress reporting.
func (s *Scheduler) Counts() (completed, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total = len(s.status)
	for _, st := range s.status {
		if st == StatusCompleted {
			completed++
		}
	}
	return
}
