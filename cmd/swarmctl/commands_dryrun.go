package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexusswarm/swarm/internal/config"
	"github.com/nexusswarm/swarm/internal/graph"
)

// buildDryRunCmd creates the "dry-run" command, printing the graph's
// structure and what a run would schedule without invoking any provider.
func buildDryRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dry-run <graph.yaml>",
		Short: "Preview a graph run without spending any tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDryRun(args[0])
		},
	}
	return cmd
}

func runDryRun(path string) error {
	cfg, err := config.LoadGraph(path)
	if err != nil {
		return fmt.Errorf("load graph config: %w", err)
	}
	g, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	result := graph.Validate(g, nil)
	if result.Err != nil {
		fmt.Printf("INVALID: %v\n", result.Err)
		return result.Err
	}

	fmt.Printf("graph %q: %d nodes, estimated cost %d cents\n", g.ID, g.NodeCount(), result.EstimatedCostCents)
	fmt.Println()
	fmt.Println("nodes:")
	for _, id := range g.NodeIDs() {
		node, _ := g.GetNode(id)
		deps := make([]string, 0)
		for _, e := range g.IncomingEdges(id) {
			deps = append(deps, e.From)
		}
		dynamic := ""
		if node.CanEmitDAG {
			dynamic = " (can emit sub-DAG)"
		}
		if len(deps) == 0 {
			fmt.Printf("  %s [%s]%s\n", id, node.Agent.Role, dynamic)
		} else {
			fmt.Printf("  %s [%s]%s  depends on: %v\n", id, node.Agent.Role, dynamic, deps)
		}
	}

	condEdges := g.AllConditionalEdges()
	if len(condEdges) > 0 {
		fmt.Println()
		fmt.Println("conditional routes:")
		for _, ce := range condEdges {
			fmt.Printf("  %s -> (%s evaluator) -> one of %v\n", ce.From, ce.Evaluate.Kind, ce.Targets)
		}
	}

	fmt.Println()
	root := g.RootNodes()
	fmt.Printf("entry point(s): %v\n", root)
	fmt.Printf("max concurrent agents: %d (0 = unbounded)\n", cfg.Run.MaxConcurrentAgents)
	if budget := cfg.Run.SwarmBudget(); budget != nil {
		fmt.Printf("swarm budget: %d cents\n", budget.LimitCents)
	}

	return nil
}
