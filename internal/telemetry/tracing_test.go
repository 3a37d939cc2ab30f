package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracer(t *testing.T) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	return NewTracer(tp), exporter
}

func TestTracer_StartRunAndEndRunSuccess(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.StartRun(context.Background(), "run-1", 3)
	EndRun(span, nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "swarm.run" {
		t.Errorf("span name = %q, want swarm.run", spans[0].Name)
	}
	if spans[0].Status.Code != codes.Ok {
		t.Errorf("span status = %v, want Ok", spans[0].Status.Code)
	}
}

func TestTracer_EndRunRecordsError(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.StartRun(context.Background(), "run-1", 1)
	EndRun(span, errors.New("boom"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status.Code)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected RecordError to attach an exception event")
	}
}

func TestTracer_StartNodeAndEndNode(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.StartNode(context.Background(), "node-a", "writer", "gpt-x")
	EndNode(span, nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Name != "swarm.node" {
		t.Fatalf("spans = %+v, want one swarm.node span", spans)
	}

	var hasNodeID bool
	for _, attr := range spans[0].Attributes {
		if string(attr.Key) == "swarm.node_id" && attr.Value.AsString() == "node-a" {
			hasNodeID = true
		}
	}
	if !hasNodeID {
		t.Error("expected swarm.node_id attribute on the node span")
	}
}

func TestTracer_EndNodeRecordsAgentError(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.StartNode(context.Background(), "node-a", "writer", "gpt-x")
	EndNode(span, errors.New("agent failed"))

	spans := exporter.GetSpans()
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status.Code)
	}
}
