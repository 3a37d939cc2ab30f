// Package main provides the CLI entry point for swarmctl, the graph
// execution engine's command-line driver.
//
// swarmctl loads a graph definition from YAML, validates it, and either
// runs it to completion against registered LLM providers or prints what
// a run would do without spending any tokens.
//
// # Basic Usage
//
// Run a graph:
//
//	swarmctl run graph.yaml
//
// Validate a graph without running it:
//
//	swarmctl validate graph.yaml
//
// Preview what a run would do:
//
//	swarmctl dry-run graph.yaml
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "swarmctl",
		Short: "swarmctl - graph execution engine for LLM agent swarms",
		Long: `swarmctl loads a graph of agent nodes from YAML and executes it as a
dependency-ordered swarm: agents run concurrently where their dependencies
allow, route conditionally, and can emit their own sub-graphs at runtime.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildRunCmd(),
		buildValidateCmd(),
		buildDryRunCmd(),
	)

	return rootCmd
}
