package executor

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/nexusswarm/swarm/internal/cost"
	"github.com/nexusswarm/swarm/internal/events"
	"github.com/nexusswarm/swarm/internal/graph"
	"github.com/nexusswarm/swarm/internal/runner"
	"github.com/nexusswarm/swarm/internal/scheduler"
	"github.com/nexusswarm/swarm/internal/telemetry"
	"github.com/nexusswarm/swarm/pkg/swarmerr"
)

// Config bounds one run.
type Config struct {
	MaxConcurrentAgents int // 0 = unbounded
	MaxDuration         time.Duration
	SwarmBudget         *cost.Budget
	AgentBudget         *cost.Budget
	PollInterval        time.Duration // how often the loop wakes to re-check readiness
}

func (c Config) sanitized() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Millisecond
	}
	return c
}

// dagSpec is the JSON shape a canEmitDAG node's output must take to
// introduce a sub-graph at runtime (spec §4.1/§4.9).
type dagSpec struct {
	Nodes []dagNode `json:"nodes"`
	Edges []dagEdge `json:"edges"`
}

type dagNode struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Role         string  `json:"role"`
	SystemPrompt string  `json:"system_prompt"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	ProviderID   string  `json:"provider_id"`
	Task         string  `json:"task"`
}

type dagEdge struct {
	From      string `json:"from"`
	To        string `json:"to"`
	MaxCycles int    `json:"max_cycles"`
}

// Executor runs one graph to completion against shared scheduler, runner,
// cost, and event subsystems.
type Executor struct {
	g         *graph.Graph
	sched     *scheduler.Scheduler
	run       *runner.Runner
	emitter   *events.Emitter
	costs     *cost.Tracker
	evaluator *Evaluator
	cfg       Config
	metrics   *telemetry.Metrics
	tracer    *telemetry.Tracer

	mu                   sync.Mutex
	outputs              map[string]string
	conditionallyBlocked map[string]bool
	startedAt            time.Time
}

// New creates an Executor over g, wiring the given shared subsystems.
func New(g *graph.Graph, sched *scheduler.Scheduler, run *runner.Runner, emitter *events.Emitter, costs *cost.Tracker, evaluator *Evaluator, cfg Config) *Executor {
	ex := &Executor{
		g:                    g,
		sched:                sched,
		run:                  run,
		emitter:              emitter,
		costs:                costs,
		evaluator:            evaluator,
		cfg:                  cfg.sanitized(),
		outputs:              make(map[string]string),
		conditionallyBlocked: make(map[string]bool),
	}
	for _, ce := range g.AllConditionalEdges() {
		for _, target := range ce.Targets {
			ex.conditionallyBlocked[target] = true
		}
	}
	return ex
}

// WithTelemetry attaches optional Prometheus metrics and OpenTelemetry
// tracing. Either argument may be nil to leave that signal unwired.
func (ex *Executor) WithTelemetry(metrics *telemetry.Metrics, tracer *telemetry.Tracer) *Executor {
	ex.metrics = metrics
	ex.tracer = tracer
	return ex
}

// Run drives the graph to completion, returning per-node outputs and the
// final cost summary. Exactly one terminal swarm event (swarm_done,
// swarm_error, or swarm_cancelled) is emitted before returning, per spec
// §3's event-ordering invariant.
func (ex *Executor) Run(ctx context.Context) (outputs map[string]string, total cost.Summary, runErr error) {
	ex.startedAt = time.Now()
	ex.emitter.SwarmStart(ctx, ex.g.ID, ex.g.NodeCount(), 0)

	if ex.tracer != nil {
		var runSpan trace.Span
		ctx, runSpan = ex.tracer.StartRun(ctx, ex.g.ID, ex.g.NodeCount())
		defer func() { telemetry.EndRun(runSpan, runErr) }()
	}

	var wg sync.WaitGroup

	for {
		if ctx.Err() != nil {
			wg.Wait()
			completed := ex.sched.CompletedNodeIDs()
			total := ex.costs.SwarmTotal()
			ex.emitter.SwarmCancelled(ctx, completed, total)
			return ex.snapshotOutputs(), total, ctx.Err()
		}

		if ex.cfg.MaxDuration > 0 && time.Since(ex.startedAt) > ex.cfg.MaxDuration {
			wg.Wait()
			completed := ex.sched.CompletedNodeIDs()
			total := ex.costs.SwarmTotal()
			ex.emitter.SwarmError(ctx, "run duration exceeded", completed, total)
			return ex.snapshotOutputs(), total, swarmerr.ErrDurationExceeded
		}

		if check := ex.costs.CheckSwarmBudget(); !check.OK {
			wg.Wait()
			completed := ex.sched.CompletedNodeIDs()
			total := ex.costs.SwarmTotal()
			ex.emitter.BudgetExceeded(ctx, check.Used, check.Limit())
			ex.emitter.SwarmError(ctx, "swarm budget exceeded", completed, total)
			return ex.snapshotOutputs(), total, swarmerr.ErrBudgetExceeded
		}

		ex.sweepFailureSkips()

		if ex.sched.IsDone() {
			wg.Wait()
			total := ex.costs.SwarmTotal()
			ex.emitter.SwarmDone(ctx, ex.snapshotOutputs(), total)
			return ex.snapshotOutputs(), total, nil
		}

		ex.mu.Lock()
		blocked := make(map[string]bool, len(ex.conditionallyBlocked))
		for k, v := range ex.conditionallyBlocked {
			blocked[k] = v
		}
		ex.mu.Unlock()

		ready := ex.sched.ReadyNodes(blocked)
		if len(ready) == 0 {
			if len(ex.sched.RunningNodeIDs()) == 0 {
				// nothing ready, nothing running, but not done: the
				// remaining nodes are permanently blocked.
				wg.Wait()
				completed := ex.sched.CompletedNodeIDs()
				total := ex.costs.SwarmTotal()
				ex.emitter.SwarmError(ctx, "no progress possible: remaining nodes are blocked", completed, total)
				return ex.snapshotOutputs(), total, swarmerr.ErrDeadlock
			}
			time.Sleep(ex.cfg.PollInterval)
			continue
		}

		if ex.metrics != nil {
			ex.metrics.SetReadyQueueDepth(len(ready))
		}

		for _, id := range ready {
			id := id
			ex.sched.SetStatus(id, scheduler.StatusRunning)
			wg.Add(1)
			go func() {
				defer wg.Done()
				ex.runNode(ctx, id)
			}()
		}

		if ex.metrics != nil {
			ex.metrics.SetActiveAgents(len(ex.sched.RunningNodeIDs()))
		}

		wg.Wait()

		completed, totalCount := ex.sched.Counts()
		ex.emitter.SwarmProgress(ctx, completed, totalCount, ex.sched.RunningNodeIDs())

		time.Sleep(ex.cfg.PollInterval)
	}
}

func (ex *Executor) snapshotOutputs() map[string]string {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	out := make(map[string]string, len(ex.outputs))
	for k, v := range ex.outputs {
		out[k] = v
	}
	return out
}

// sweepFailureSkips cascade-skips every pending node blocked by a
// failed/skipped dependency (spec §4.9 step 4, spec §7's cascade-skip
// policy).
func (ex *Executor) sweepFailureSkips() {
	for _, id := range ex.sched.BlockedByFailure() {
		ex.sched.SetStatus(id, scheduler.StatusSkipped)
	}
}

func (ex *Executor) runNode(ctx context.Context, nodeID string) {
	node, ok := ex.g.GetNode(nodeID)
	if !ok {
		ex.sched.SetStatus(nodeID, scheduler.StatusFailed)
		return
	}

	var nodeSpan trace.Span
	if ex.tracer != nil {
		ctx, nodeSpan = ex.tracer.StartNode(ctx, node.ID, node.Agent.Role, node.Agent.Model)
	}
	start := time.Now()

	upstream := ex.collectUpstreamOutputs(nodeID)

	result, agentErr := ex.run.Run(ctx, node, node.Task, upstream)
	if agentErr != nil {
		ex.sched.SetStatus(nodeID, scheduler.StatusFailed)
		if ex.metrics != nil {
			ex.metrics.ObserveNodeLatencyMS(nodeID, "failed", float64(time.Since(start).Milliseconds()))
		}
		if nodeSpan != nil {
			telemetry.EndNode(nodeSpan, agentErr)
		}
		return
	}

	ex.mu.Lock()
	ex.outputs[nodeID] = result.Output
	ex.mu.Unlock()

	ex.sched.SetStatus(nodeID, scheduler.StatusCompleted)

	if ex.metrics != nil {
		ex.metrics.ObserveNodeLatencyMS(nodeID, "completed", float64(time.Since(start).Milliseconds()))
		ex.metrics.AddCostCents(result.Cost.CostCents)
	}
	if nodeSpan != nil {
		telemetry.EndNode(nodeSpan, nil)
	}

	ex.applyPostCompletion(ctx, node, result.Output)
}

// budgetWarningThreshold is the fraction of the per-agent budget at which
// a budget_warning is emitted, ahead of the hard budget_exceeded cutoff.
const budgetWarningThreshold = 0.8

// checkAgentBudget enforces the per-agent budget after a node completes
// (spec §4.10): exceeding it emits budget_exceeded but never stops the
// run here — only the swarm-level check in Run does that.
func (ex *Executor) checkAgentBudget(ctx context.Context, agentID string) {
	check := ex.costs.CheckAgentBudget(agentID)
	if check.Unbounded() {
		return
	}
	limit := check.Limit()
	if !check.OK {
		ex.emitter.BudgetExceeded(ctx, check.Used, limit)
		return
	}
	if limit > 0 && float64(check.Used) >= budgetWarningThreshold*float64(limit) {
		ex.emitter.BudgetWarning(ctx, check.Used, limit, float64(check.Used)/float64(limit))
	}
}

func (ex *Executor) collectUpstreamOutputs(nodeID string) map[string]string {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	out := make(map[string]string)
	for _, e := range ex.g.IncomingEdges(nodeID) {
		if v, ok := ex.outputs[e.From]; ok {
			out[e.From] = v
		}
	}
	return out
}

// applyPostCompletion implements spec §4.10: per-agent budget check,
// dynamic sub-DAG emission, conditional-edge routing, and feedback-cycle
// rescheduling, in that order.
func (ex *Executor) applyPostCompletion(ctx context.Context, node graph.Node, output string) {
	ex.checkAgentBudget(ctx, node.Agent.ID)

	if node.CanEmitDAG {
		ex.expandDynamicDAG(node.ID, output)
	}

	condEdges := ex.g.ConditionalEdgesFrom(node.ID)
	if len(condEdges) > 0 {
		ex.mu.Lock()
		for _, ce := range condEdges {
			for _, target := range ce.Targets {
				ex.conditionallyBlocked[target] = true
			}
		}
		ex.mu.Unlock()

		for _, ce := range condEdges {
			target, label, err := ex.evaluator.Resolve(ctx, ce, output)
			if err != nil {
				target = ""
			}
			for _, t := range ce.Targets {
				if t == target {
					continue
				}
				if st, ok := ex.sched.Status(t); ok && st == scheduler.StatusPending {
					ex.sched.SetStatus(t, scheduler.StatusSkipped)
				}
			}
			if target == "" {
				continue
			}
			ex.mu.Lock()
			delete(ex.conditionallyBlocked, target)
			ex.mu.Unlock()
			ex.emitter.RouteDecision(ctx, node.ID, target, label)
		}
	}

	for _, e := range ex.g.IncomingEdges(node.ID) {
		if !e.IsFeedback() {
			continue
		}
		count := ex.sched.IncrementCycleCount(e.From, e.To)
		ex.emitter.LoopIteration(ctx, node.ID, count, e.MaxCycles)
		if count < e.MaxCycles {
			ex.sched.ResetNodeForCycle(node.ID)
		}
	}
}

// expandDynamicDAG parses a coordinator node's JSON output as a sub-graph
// and wires it into the running graph and scheduler. Parse or wiring
// failures are swallowed: a coordinator that emits malformed JSON simply
// contributes no children, matching the general "tool/coordination
// failures are recovered locally" policy (spec §7).
func (ex *Executor) expandDynamicDAG(sourceID, output string) {
	var spec dagSpec
	if err := json.Unmarshal([]byte(output), &spec); err != nil {
		return
	}
	if len(spec.Nodes) == 0 {
		return
	}

	for _, n := range spec.Nodes {
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
			Task: n.Task,
		}
		if err := ex.g.AddNode(node); err != nil {
			continue // ID collision: skip this child, per package doc on AddNode
		}
		if err := ex.sched.RegisterNode(n.ID); err != nil {
			continue
		}
	}

	for _, e := range spec.Edges {
		ex.g.AddEdge(graph.Edge{From: e.From, To: e.To, MaxCycles: e.MaxCycles})
	}
}
