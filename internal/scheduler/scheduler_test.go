package scheduler

import (
	"testing"

	"github.com/nexusswarm/swarm/internal/graph"
)

func buildDiamond() *graph.Graph {
	g := graph.New("diamond")
	g.AddNode(graph.Node{ID: "a"})
	g.AddNode(graph.Node{ID: "b"})
	g.AddNode(graph.Node{ID: "c"})
	g.AddNode(graph.Node{ID: "d"})
	g.AddEdge(graph.Edge{From: "a", To: "b"})
	g.AddEdge(graph.Edge{From: "a", To: "c"})
	g.AddEdge(graph.Edge{From: "b", To: "d"})
	g.AddEdge(graph.Edge{From: "c", To: "d"})
	return g
}

func TestReadyNodes_OnlyEntryInitially(t *testing.T) {
	g := buildDiamond()
	s := New(g, 0)

	ready := s.ReadyNodes(nil)
	if len(ready) != 1 || ready[0] != "a" {
		t.Fatalf("ReadyNodes() = %v, want [a]", ready)
	}
}

func TestReadyNodes_FanOutAfterEntryCompletes(t *testing.T) {
	g := buildDiamond()
	s := New(g, 0)
	s.SetStatus("a", StatusCompleted)

	ready := s.ReadyNodes(nil)
	if len(ready) != 2 || ready[0] != "b" || ready[1] != "c" {
		t.Fatalf("ReadyNodes() = %v, want [b c]", ready)
	}
}

func TestReadyNodes_JoinWaitsForAllDependencies(t *testing.T) {
	g := buildDiamond()
	s := New(g, 0)
	s.SetStatus("a", StatusCompleted)
	s.SetStatus("b", StatusCompleted)

	ready := s.ReadyNodes(nil)
	for _, id := range ready {
		if id == "d" {
			t.Fatalf("d became ready with only one of two dependencies completed: %v", ready)
		}
	}

	s.SetStatus("c", StatusCompleted)
	ready = s.ReadyNodes(nil)
	if len(ready) != 1 || ready[0] != "d" {
		t.Fatalf("ReadyNodes() after both deps complete = %v, want [d]", ready)
	}
}

func TestReadyNodes_ConcurrencyCapLimitsBatch(t *testing.T) {
	g := buildDiamond()
	s := New(g, 1)
	s.SetStatus("a", StatusCompleted)

	ready := s.ReadyNodes(nil)
	if len(ready) != 1 {
		t.Fatalf("ReadyNodes() with cap 1 = %v, want exactly 1 node", ready)
	}
}

func TestReadyNodes_ConditionallyBlockedExcluded(t *testing.T) {
	g := buildDiamond()
	s := New(g, 0)
	s.SetStatus("a", StatusCompleted)

	ready := s.ReadyNodes(map[string]bool{"b": true})
	if len(ready) != 1 || ready[0] != "c" {
		t.Fatalf("ReadyNodes() with b blocked = %v, want [c]", ready)
	}
}

func TestReadyNodes_RunningNodeCountsAgainstCap(t *testing.T) {
	g := buildDiamond()
	s := New(g, 1)
	s.SetStatus("a", StatusRunning)

	ready := s.ReadyNodes(nil)
	if len(ready) != 0 {
		t.Fatalf("ReadyNodes() with cap exhausted by a running node = %v, want none", ready)
	}
}

func TestBlockedByFailure_CascadesSkip(t *testing.T) {
	g := buildDiamond()
	s := New(g, 0)
	s.SetStatus("a", StatusCompleted)
	s.SetStatus("b", StatusFailed)

	blocked := s.BlockedByFailure()
	found := false
	for _, id := range blocked {
		if id == "d" {
			found = true
		}
	}
	if !found {
		t.Errorf("BlockedByFailure() = %v, want to include d (depends on failed b)", blocked)
	}
}

func TestRegisterNode_DuplicateRejected(t *testing.T) {
	g := graph.New("g1")
	g.AddNode(graph.Node{ID: "a"})
	s := New(g, 0)

	if err := s.RegisterNode("a"); err == nil {
		t.Error("RegisterNode on existing ID should fail")
	}
	if err := s.RegisterNode("b"); err != nil {
		t.Errorf("RegisterNode on new ID: %v", err)
	}
	if st, ok := s.Status("b"); !ok || st != StatusPending {
		t.Errorf("Status(b) = %v, %v, want pending, true", st, ok)
	}
}

func TestResetNodeForCycle_DecrementsRunningCount(t *testing.T) {
	g := graph.New("g1")
	g.AddNode(graph.Node{ID: "a"})
	s := New(g, 1)
	s.SetStatus("a", StatusRunning)

	if len(s.RunningNodeIDs()) != 1 {
		t.Fatalf("expected a to be running")
	}

	s.ResetNodeForCycle("a")
	if st, _ := s.Status("a"); st != StatusPending {
		t.Errorf("Status(a) after reset = %v, want pending", st)
	}
	if len(s.RunningNodeIDs()) != 0 {
		t.Error("running count should drop to 0 after reset")
	}
}

func TestIncrementCycleCount(t *testing.T) {
	g := graph.New("g1")
	s := New(g, 0)

	if got := s.IncrementCycleCount("x", "y"); got != 1 {
		t.Errorf("first increment = %d, want 1", got)
	}
	if got := s.IncrementCycleCount("x", "y"); got != 2 {
		t.Errorf("second increment = %d, want 2", got)
	}
	if got := s.CycleCount("x", "y"); got != 2 {
		t.Errorf("CycleCount = %d, want 2", got)
	}
}

func TestIsDone(t *testing.T) {
	g := graph.New("g1")
	g.AddNode(graph.Node{ID: "a"})
	g.AddNode(graph.Node{ID: "b"})
	s := New(g, 0)

	if s.IsDone() {
		t.Error("IsDone() should be false while nodes are pending")
	}
	s.SetStatus("a", StatusCompleted)
	s.SetStatus("b", StatusSkipped)
	if !s.IsDone() {
		t.Error("IsDone() should be true once every node reaches a terminal state")
	}
}

func TestCounts(t *testing.T) {
	g := graph.New("g1")
	g.AddNode(graph.Node{ID: "a"})
	g.AddNode(graph.Node{ID: "b"})
	s := New(g, 0)
	s.SetStatus("a", StatusCompleted)

	completed, total := s.Counts()
	if completed != 1 || total != 2 {
		t.Errorf("Counts() = (%d, %d), want (1, 2)", completed, total)
	}
}
