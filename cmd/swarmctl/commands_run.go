package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/nexusswarm/swarm/internal/config"
	"github.com/nexusswarm/swarm/internal/telemetry"
)

// buildRunCmd creates the "run" command, executing a graph to completion.
func buildRunCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "run <graph.yaml>",
		Short: "Run a graph to completion",
		Long: `Loads a graph definition from YAML, validates it, and executes it as a
dependency-ordered swarm. Each node's agent runs against its resolved
provider; progress and per-agent events print to stdout as they occur.`,
		Example: `  # Run once
  swarmctl run graph.yaml

  # Re-run automatically whenever the file changes
  swarmctl run graph.yaml --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return runWatch(cmd.Context(), args[0])
			}
			return runOnce(cmd.Context(), args[0])
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-run automatically whenever the graph file changes")
	return cmd
}

func runOnce(ctx context.Context, path string) error {
	cfg, err := config.LoadGraph(path)
	if err != nil {
		return fmt.Errorf("load graph config: %w", err)
	}
	g, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	metrics := telemetry.New(nil)
	tracer := telemetry.NewTracer(nil)
	eng, err := buildEngine(cfg, consoleSink{}, metrics, tracer)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	_, summary, err := eng.Run(runCtx, g)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	fmt.Printf("total cost: %d cents\n", summary.CostCents)
	return nil
}

// runWatch re-runs the graph whenever its file changes, grounded on the
// teacher's skill-directory fsnotify watch loop (internal/skills/manager.go
// StartWatching/watchLoop): one watcher, a debounce timer coalescing bursts
// of writes into a single refresh.
func runWatch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("watching %s for changes (ctrl-c to stop)\n", path)
	if err := runOnce(runCtx, path); err != nil {
		fmt.Printf("run failed: %v\n", err)
	}

	const debounce = 250 * time.Millisecond
	var timer *time.Timer

	for {
		select {
		case <-runCtx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				fmt.Printf("\n--- graph changed, re-running ---\n")
				if err := runOnce(runCtx, path); err != nil {
					fmt.Printf("run failed: %v\n", err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Printf("watch error: %v\n", err)
		}
	}
}
