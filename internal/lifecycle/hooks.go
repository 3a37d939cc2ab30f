// Package lifecycle defines LifecycleHooks: optional callbacks an embedder
// can register to observe run/node boundaries without consuming the full
// event stream (spec §6).
//
// Grounded on internal/agent/options.go's RuntimeOptions pattern of
// optional callback fields with nil-safe defaults (e.g. ApprovalChecker),
// generalized into a single Hooks interface with a no-op base
// implementation any partial implementer can embed.
package lifecycle

import (
	"context"

	"github.com/nexusswarm/swarm/internal/cost"
	"github.com/nexusswarm/swarm/internal/graph"
)

// Hooks observes swarm and node lifecycle transitions. The engine invokes
// the OnSwarm* methods; nothing in the engine calls OnNodeStart, OnNodeDone
// or OnNodeError.
type Hooks interface {
	OnSwarmStart(ctx context.Context, g *graph.Graph)
	OnSwarmDone(ctx context.Context, results map[string]string, total cost.Summary)
	OnSwarmError(ctx context.Context, err error, partial cost.Summary)
	OnNodeStart(ctx context.Context, nodeID string)
	OnNodeDone(ctx context.Context, nodeID, output string, c cost.Summary)
	OnNodeError(ctx context.Context, nodeID string, err error)
}

// Nop implements Hooks with no-op methods. Embed it to implement only the
// callbacks you care about.
type Nop struct{}

func (Nop) OnSwarmStart(ctx context.Context, g *graph.Graph)                             {}
func (Nop) OnSwarmDone(ctx context.Context, results map[string]string, total cost.Summary) {}
func (Nop) OnSwarmError(ctx context.Context, err error, partial cost.Summary)            {}
func (Nop) OnNodeStart(ctx context.Context, nodeID string)                               {}
func (Nop) OnNodeDone(ctx context.Context, nodeID, output string, c cost.Summary)         {}
func (Nop) OnNodeError(ctx context.Context, nodeID string, err error)                     {}
