// Grounded on config.go's LoadConfig/ParseConfigYAML pattern (yaml.
// Unmarshal followed by default-filling and per-field validation),
// adapted from the teacher's agent-roster config shape to the swarm's
// node/edge/conditional-edge graph shape. Rule-kind conditional edges
// carry a Go function (graph.RuleFunc) and so cannot be expressed in
// YAML; only regex and llm evaluators are loadable this way. Callers
// needing a rule evaluator add it to the built Graph programmatically
// after GraphConfig.Build.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nexusswarm/swarm/internal/contextsource"
	"github.com/nexusswarm/swarm/internal/cost"
	"github.com/nexusswarm/swarm/internal/graph"
	"github.com/nexusswarm/swarm/internal/memory"
)

// NodeSpec is one graph node as expressed in YAML.
type NodeSpec struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	Role         string  `yaml:"role"`
	SystemPrompt string  `yaml:"system_prompt"`
	Model        string  `yaml:"model"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	ProviderID   string  `yaml:"provider_id"`
	Task         string  `yaml:"task"`
	CanEmitDAG   bool    `yaml:"can_emit_dag"`
}

// EdgeSpec is one regular (optionally feedback-bounded) edge.
type EdgeSpec struct {
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	MaxCycles int    `yaml:"max_cycles"`
}

// EvaluatorSpec configures a regex or llm evaluator. Kind "rule" cannot be
// loaded from YAML (see package doc).
type EvaluatorSpec struct {
	Kind        string `yaml:"kind"`
	Pattern     string `yaml:"pattern"`
	MatchTarget string `yaml:"match_target"`
	ElseTarget  string `yaml:"else_target"`
	Prompt      string `yaml:"prompt"`
	Model       string `yaml:"model"`
	ProviderID  string `yaml:"provider_id"`
}

// ConditionalEdgeSpec is one conditional routing edge.
type ConditionalEdgeSpec struct {
	From      string            `yaml:"from"`
	Evaluator EvaluatorSpec     `yaml:"evaluator"`
	Targets   map[string]string `yaml:"targets"`
}

// RunConfig carries the engine-level run parameters (spec §2, §5).
type RunConfig struct {
	MaxConcurrentAgents int   `yaml:"max_concurrent_agents"`
	MaxDurationSeconds  int   `yaml:"max_duration_seconds"`
	SwarmBudgetCents    int64 `yaml:"swarm_budget_cents"`
	AgentBudgetCents    int64 `yaml:"agent_budget_cents"`
	ContextTokenBudget  int   `yaml:"context_token_budget"`
	ScratchpadPerKey    int   `yaml:"scratchpad_per_key_bytes"`
	ScratchpadTotal     int   `yaml:"scratchpad_total_bytes"`

	// VectorMemory configures the optional long-term memory recall source
	// nodes consult during context assembly (spec §6). Nil/disabled leaves
	// the swarm's MemoryProvider at its Nop default.
	VectorMemory *memory.Config `yaml:"vector_memory"`
}

// GraphConfig is the top-level YAML document: graph structure plus run
// parameters.
type GraphConfig struct {
	ID               string                `yaml:"id"`
	Nodes            []NodeSpec            `yaml:"nodes"`
	Edges            []EdgeSpec            `yaml:"edges"`
	ConditionalEdges []ConditionalEdgeSpec `yaml:"conditional_edges"`
	Run              RunConfig             `yaml:"run"`
}

// LoadGraph reads and parses a GraphConfig from path.
func LoadGraph(path string) (*GraphConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph config file: %w", err)
	}
	return ParseGraph(data)
}

// ParseGraph parses a GraphConfig from YAML bytes and applies defaults.
func ParseGraph(data []byte) (*GraphConfig, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse graph config YAML: %w", err)
	}
	if err := validateGraphDocument(raw); err != nil {
		return nil, err
	}

	var cfg GraphConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse graph config YAML: %w", err)
	}

	if cfg.ID == "" {
		cfg.ID = "swarm"
	}
	for i := range cfg.Nodes {
		if cfg.Nodes[i].ID == "" {
			return nil, fmt.Errorf("node at index %d has no id", i)
		}
		if cfg.Nodes[i].Name == "" {
			cfg.Nodes[i].Name = cfg.Nodes[i].ID
		}
	}
	if cfg.Run.MaxConcurrentAgents < 0 {
		cfg.Run.MaxConcurrentAgents = 0
	}

	return &cfg, nil
}

// SaveGraph marshals cfg as YAML and writes it to path.
func SaveGraph(cfg *GraphConfig, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal graph config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write graph config file: %w", err)
	}
	return nil
}

// Build constructs a *graph.Graph from cfg's nodes and edges.
func (cfg *GraphConfig) Build() (*graph.Graph, error) {
	g := graph.New(cfg.ID)

	for _, n := range cfg.Nodes {
		node := graph.Node{
			ID: n.ID,
			Agent: graph.AgentDescriptor{
				ID:           n.ID,
				Name:         n.Name,
				Role:         n.Role,
				SystemPrompt: n.SystemPrompt,
				Model:        n.Model,
				Temperature:  n.Temperature,
				MaxTokens:    n.MaxTokens,
				ProviderID:   n.ProviderID,
			},
			Task:       n.Task,
			CanEmitDAG: n.CanEmitDAG,
		}
		if err := g.AddNode(node); err != nil {
			return nil, fmt.Errorf("node %q: %w", n.ID, err)
		}
	}

	for _, e := range cfg.Edges {
		g.AddEdge(graph.Edge{From: e.From, To: e.To, MaxCycles: e.MaxCycles})
	}

	for _, ce := range cfg.ConditionalEdges {
		kind := graph.EvaluatorKind(ce.Evaluator.Kind)
		if kind == graph.EvaluatorRule {
			return nil, fmt.Errorf("conditional edge from %q: rule evaluators cannot be loaded from YAML", ce.From)
		}
		g.AddConditionalEdge(graph.ConditionalEdge{
			From: ce.From,
			Evaluate: graph.Evaluator{
				Kind:        kind,
				Pattern:     ce.Evaluator.Pattern,
				MatchTarget: ce.Evaluator.MatchTarget,
				ElseTarget:  ce.Evaluator.ElseTarget,
				Prompt:      ce.Evaluator.Prompt,
				Model:       ce.Evaluator.Model,
				ProviderID:  ce.Evaluator.ProviderID,
			},
			Targets: ce.Targets,
		})
	}

	return g, nil
}

// MaxDuration returns the run's wall-clock limit as a time.Duration.
func (r RunConfig) MaxDuration() time.Duration {
	if r.MaxDurationSeconds <= 0 {
		return 0
	}
	return time.Duration(r.MaxDurationSeconds) * time.Second
}

// SwarmBudget returns a *cost.Budget for the configured swarm-level cap,
// or nil if unset (unbounded).
func (r RunConfig) SwarmBudget() *cost.Budget {
	if r.SwarmBudgetCents <= 0 {
		return nil
	}
	return &cost.Budget{LimitCents: r.SwarmBudgetCents}
}

// AgentBudget returns a *cost.Budget for the configured per-agent cap, or
// nil if unset (unbounded).
func (r RunConfig) AgentBudget() *cost.Budget {
	if r.AgentBudgetCents <= 0 {
		return nil
	}
	return &cost.Budget{LimitCents: r.AgentBudgetCents}
}

// MemoryProvider constructs the vector-backed recall source configured
// under vector_memory, or NopMemory when unset/disabled.
func (r RunConfig) MemoryProvider() (contextsource.MemoryProvider, error) {
	if r.VectorMemory == nil || !r.VectorMemory.Enabled {
		return contextsource.NopMemory{}, nil
	}
	mgr, err := memory.NewManager(r.VectorMemory)
	if err != nil {
		return nil, fmt.Errorf("vector memory: %w", err)
	}
	return contextsource.NewVectorMemory(mgr), nil
}
