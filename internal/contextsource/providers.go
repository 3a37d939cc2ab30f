// Package contextsource defines the pluggable external context providers a
// swarm run may be configured with: memory, codebase, and persona sources
// contributed outside the graph itself (spec §6).
//
// Grounded on internal/agent/provider_types.go's pattern of small,
// single-method pluggable interfaces (ToolEventStore, LLMProvider) with
// nil-safe no-op defaults wired in when a concern is unconfigured.
package contextsource

import "context"

// MemoryProvider supplies long-term memory recall for a node's context.
type MemoryProvider interface {
	Recall(ctx context.Context, nodeID, query string) (string, error)
}

// CodebaseProvider supplies repository/codebase context for a node.
type CodebaseProvider interface {
	Lookup(ctx context.Context, nodeID, query string) (string, error)
}

// PersonaProvider supplies an agent's persona/voice text to prepend to its
// system prompt.
type PersonaProvider interface {
	Persona(ctx context.Context, agentID string) (string, error)
}

// NopMemory is a MemoryProvider that never has anything to recall.
type NopMemory struct{}

func (NopMemory) Recall(ctx context.Context, nodeID, query string) (string, error) { return "", nil }

// NopCodebase is a CodebaseProvider that never has anything to look up.
type NopCodebase struct{}

func (NopCodebase) Lookup(ctx context.Context, nodeID, query string) (string, error) { return "", nil }

// NopPersona is a PersonaProvider that contributes no persona text.
type NopPersona struct{}

func (NopPersona) Persona(ctx context.Context, agentID string) (string, error) { return "", nil }

// Providers bundles the three external context sources for a run. Any
// unset field defaults to its Nop implementation via Resolved.
type Providers struct {
	Memory   MemoryProvider
	Codebase CodebaseProvider
	Persona  PersonaProvider
}

// Resolved returns p with every nil field replaced by its no-op default.
func (p Providers) Resolved() Providers {
	if p.Memory == nil {
		p.Memory = NopMemory{}
	}
	if p.Codebase == nil {
		p.Codebase = NopCodebase{}
	}
	if p.Persona == nil {
		p.Persona = NopPersona{}
	}
	return p
}
