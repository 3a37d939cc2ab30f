package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/nexusswarm/swarm/internal/telemetry"

// Tracer wraps an otel Tracer with the two span shapes a swarm run needs:
// one per full run, one per node execution.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer returns a Tracer backed by the global otel TracerProvider, or
// by provider if one is given (nil uses otel.GetTracerProvider()).
func NewTracer(provider trace.TracerProvider) *Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Tracer{tracer: provider.Tracer(tracerName)}
}

// StartRun opens a span covering one full swarm run.
func (t *Tracer) StartRun(ctx context.Context, runID string, nodeCount int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "swarm.run",
		trace.WithAttributes(
			attribute.String("swarm.run_id", runID),
			attribute.Int("swarm.node_count", nodeCount),
		),
	)
}

// EndRun closes a run span, recording err if the run failed.
func EndRun(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// StartNode opens a span covering one node's execution.
func (t *Tracer) StartNode(ctx context.Context, nodeID, role, model string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "swarm.node",
		trace.WithAttributes(
			attribute.String("swarm.node_id", nodeID),
			attribute.String("swarm.node_role", role),
			attribute.String("swarm.model", model),
		),
	)
}

// EndNode closes a node span, recording agentErr if the node failed.
func EndNode(span trace.Span, agentErr error) {
	if agentErr != nil {
		span.RecordError(agentErr)
		span.SetStatus(codes.Error, agentErr.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
