package events

import (
	"context"
	"sync"
	"testing"

	"github.com/nexusswarm/swarm/internal/cost"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(_ context.Context, e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func TestEmitter_SequenceIsMonotonic(t *testing.T) {
	sink := &recordingSink{}
	e := NewEmitter(sink)
	ctx := context.Background()

	e.SwarmStart(ctx, "dag-1", 3, 0)
	e.AgentStart(ctx, "n1", "worker", "Worker One")
	e.SwarmDone(ctx, map[string]string{"n1": "ok"}, cost.Summary{})

	if len(sink.events) != 3 {
		t.Fatalf("got %d events, want 3", len(sink.events))
	}
	for i, ev := range sink.events {
		want := uint64(i + 1)
		if ev.Sequence != want {
			t.Errorf("event %d: Sequence = %d, want %d", i, ev.Sequence, want)
		}
	}
}

func TestEmitter_NilSinkDefaultsToNop(t *testing.T) {
	e := NewEmitter(nil)
	// Must not panic.
	e.SwarmStart(context.Background(), "dag-1", 1, 0)
}

func TestEmitter_PayloadShapes(t *testing.T) {
	sink := &recordingSink{}
	e := NewEmitter(sink)
	ctx := context.Background()

	e.AgentDone(ctx, "n1", "writer", "output text", cost.Summary{CostCents: 42}, "")
	e.AgentError(ctx, "n2", "reviewer", "boom", "timeout")
	e.RouteDecision(ctx, "n1", "n3", "regex")
	e.BudgetExceeded(ctx, 150, 100)

	if sink.events[0].Type != TypeAgentDone || sink.events[0].AgentDone.Cost.CostCents != 42 {
		t.Errorf("AgentDone payload mismatch: %+v", sink.events[0])
	}
	if sink.events[1].Type != TypeAgentError || sink.events[1].AgentError.ErrorType != "timeout" {
		t.Errorf("AgentError payload mismatch: %+v", sink.events[1])
	}
	if sink.events[2].Type != TypeRouteDecision || sink.events[2].RouteDecision.ToNode != "n3" {
		t.Errorf("RouteDecision payload mismatch: %+v", sink.events[2])
	}
	if sink.events[3].Type != TypeBudgetExceeded || sink.events[3].BudgetExceeded.Used != 150 {
		t.Errorf("BudgetExceeded payload mismatch: %+v", sink.events[3])
	}
}

func TestMultiSink_FansOutToAll(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	multi := NewMultiSink(a, b)
	e := NewEmitter(multi)

	e.SwarmStart(context.Background(), "dag-1", 2, 0)

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected both sinks to receive 1 event, got a=%d b=%d", len(a.events), len(b.events))
	}
}

func TestChannelSink_EmitAndClose(t *testing.T) {
	sink := NewChannelSink(4)
	e := NewEmitter(sink)
	ctx := context.Background()

	e.SwarmStart(ctx, "dag-1", 1, 0)
	sink.Close()

	got, ok := <-sink.Events()
	if !ok || got.Type != TypeSwarmStart {
		t.Fatalf("expected one buffered SwarmStart event, got ok=%v type=%v", ok, got.Type)
	}

	_, ok = <-sink.Events()
	if ok {
		t.Error("expected channel closed after drain")
	}
}

func TestChannelSink_EmitRespectsCancelledContext(t *testing.T) {
	sink := NewChannelSink(0) // defaults to buffer 64, but we fill it first
	for i := 0; i < 64; i++ {
		sink.Emit(context.Background(), Event{Type: TypeSwarmProgress})
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context must not block Emit even if nothing drains.
	done := make(chan struct{})
	go func() {
		sink.Emit(ctx, Event{Type: TypeSwarmStart})
		close(done)
	}()
	<-done
}
