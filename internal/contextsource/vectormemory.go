package contextsource

import (
	"context"
	"strings"

	"github.com/nexusswarm/swarm/internal/memory"
	"github.com/nexusswarm/swarm/pkg/models"
)

// VectorMemory adapts the vector-backed memory.Manager (sqlite-vec, pgvector,
// or lancedb, with an openai/ollama embedder) into a MemoryProvider a swarm
// node can recall from. A run with no vector_memory block, or with
// enabled=false, gets NopMemory from its RunConfig instead of a VectorMemory.
//
// Grounded on internal/memory/manager.go's Search method and the
// hierarchy.go scoping pattern, narrowed to a single agent-scoped query,
// keyed by the node ID, for a node's context assembly.
type VectorMemory struct {
	Manager   *memory.Manager
	Limit     int
	Threshold float32
}

// NewVectorMemory wires a vector memory manager into the swarm's context
// sources. mgr may be nil, in which case Recall always returns "".
func NewVectorMemory(mgr *memory.Manager) *VectorMemory {
	return &VectorMemory{Manager: mgr, Limit: 5, Threshold: 0.7}
}

// Recall searches the agent's scoped memory for content relevant to query and
// joins the top matches into a single block of text, most relevant first.
func (v *VectorMemory) Recall(ctx context.Context, nodeID, query string) (string, error) {
	if v == nil || v.Manager == nil || strings.TrimSpace(query) == "" {
		return "", nil
	}

	limit := v.Limit
	if limit <= 0 {
		limit = 5
	}
	threshold := v.Threshold
	if threshold <= 0 {
		threshold = 0.7
	}

	resp, err := v.Manager.Search(ctx, &models.SearchRequest{
		Query:     query,
		Scope:     models.ScopeAgent,
		ScopeID:   nodeID,
		Limit:     limit,
		Threshold: threshold,
	})
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Results) == 0 {
		return "", nil
	}

	var b strings.Builder
	for i, r := range resp.Results {
		if r == nil || r.Entry == nil {
			continue
		}
		if i > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString(r.Entry.Content)
	}
	return b.String(), nil
}
