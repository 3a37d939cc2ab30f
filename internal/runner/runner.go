// Package runner implements the Agent Runner: the component that drives a
// single node's agent through context assembly, provider streaming, the
// fixed coordination toolset, and usage recording.
//
// Grounded on internal/agent/loop.go's AgenticLoop state machine (Init ->
// Stream -> Execute Tools -> Continue/Complete), narrowed from a
// general-purpose multi-turn tool-calling loop to the swarm's
// single-node-per-invocation shape with exactly four fixed coordination
// tools (spec §4.7), and on internal/agent/tool_registry.go's
// Execute/emitToolEvent pattern for dispatching a tool call and recovering
// from its failure locally rather than failing the whole node.
package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nexusswarm/swarm/internal/contextpack"
	"github.com/nexusswarm/swarm/internal/contextsource"
	"github.com/nexusswarm/swarm/internal/cost"
	"github.com/nexusswarm/swarm/internal/events"
	"github.com/nexusswarm/swarm/internal/graph"
	"github.com/nexusswarm/swarm/internal/memory"
	"github.com/nexusswarm/swarm/internal/provider"
	"github.com/nexusswarm/swarm/pkg/swarmerr"
)

// Result is the outcome of running one node's agent to completion.
type Result struct {
	Output          string
	Cost            cost.Summary
	ArtifactRequest string
}

// Deps bundles the shared subsystems a Runner needs. All fields are
// required except Assembler, which falls back to an unbounded assembler,
// and Context, whose unset providers resolve to no-op defaults.
type Deps struct {
	Providers  *provider.Registry
	Cost       *cost.Tracker
	Emitter    *events.Emitter
	Scratchpad *memory.Scratchpad
	Channels   *memory.Channels
	Assembler  *contextpack.Assembler
	Context    contextsource.Providers
}

// Runner drives a single node invocation.
type Runner struct {
	deps Deps
}

// New creates a Runner over the given shared subsystems.
func New(deps Deps) *Runner {
	if deps.Assembler == nil {
		deps.Assembler = contextpack.New(0)
	}
	deps.Context = deps.Context.Resolved()
	return &Runner{deps: deps}
}

// fixed coordination toolset names (spec §4.7).
const (
	toolSendMessage     = "send_message"
	toolScratchpadSet   = "scratchpad_set"
	toolScratchpadRead  = "scratchpad_read"
	toolScratchpadAppend = "scratchpad_append"
)

func coordinationTools() []provider.ToolSpec {
	return []provider.ToolSpec{
		{
			Name:        toolSendMessage,
			Description: "Send a message to another agent, or broadcast to all agents with to=\"*\".",
			Schema:      []byte(`{"type":"object","properties":{"to":{"type":"string"},"content":{"type":"string"}},"required":["to","content"]}`),
		},
		{
			Name:        toolScratchpadSet,
			Description: "Set a scalar value in the shared scratchpad under a key.",
			Schema:      []byte(`{"type":"object","properties":{"key":{"type":"string"},"value":{}},"required":["key","value"]}`),
		},
		{
			Name:        toolScratchpadRead,
			Description: "Read a scalar or list value from the shared scratchpad by key.",
			Schema:      []byte(`{"type":"object","properties":{"key":{"type":"string"}},"required":["key"]}`),
		},
		{
			Name:        toolScratchpadAppend,
			Description: "Append a value to a list in the shared scratchpad under a key.",
			Schema:      []byte(`{"type":"object","properties":{"key":{"type":"string"},"value":{}},"required":["key","value"]}`),
		},
	}
}

// Run assembles context for node, streams a completion from its resolved
// provider, and drives the tool-use loop (spec §4.7 step 4): each tool_use
// event is executed locally, its result appended to the message history as
// a tool message, and the stream restarted, continuing until a turn
// produces no further tool call. Tool failures are recovered locally and
// surfaced to the model as a human-readable result string rather than
// failing the node (spec §7); provider stream failures propagate as an
// *swarmerr.AgentError so the executor can cascade-skip descendants.
func (r *Runner) Run(ctx context.Context, node graph.Node, task string, upstreamOutputs map[string]string) (Result, *swarmerr.AgentError) {
	adapter, ok := r.deps.Providers.Resolve(node.Agent.ProviderID)
	if !ok {
		return Result{}, swarmerr.NewAgentError(node.ID, fmt.Errorf("no provider registered for %q", node.Agent.ProviderID))
	}

	r.deps.Emitter.AgentStart(ctx, node.ID, node.Agent.Role, node.Agent.Name)

	assembler := r.deps.Assembler
	if limits, ok := adapter.ModelLimits(node.Agent.Model); ok && limits.ContextTokens > 0 {
		assembler = assembler.WithBudget(limits.ContextTokens * 3 / 4)
	}

	prompt := r.assemblePrompt(ctx, assembler, node, task, upstreamOutputs)
	system := r.prependPersona(ctx, node)

	messages := []provider.Message{{Role: "user", Content: prompt}}

	var (
		output string
		total  cost.Summary
	)

	for {
		var (
			turnText string
			toolUses []provider.ToolUse
			usage    *provider.Usage
		)

		err := adapter.Stream(ctx, provider.StreamParams{
			Model:       node.Agent.Model,
			System:      system,
			Messages:    messages,
			Tools:       coordinationTools(),
			MaxTokens:   node.Agent.MaxTokens,
			Temperature: node.Agent.Temperature,
		}, func(ev provider.Event) {
			switch ev.Kind {
			case provider.EventChunk:
				turnText += ev.Text
				r.deps.Emitter.AgentChunk(ctx, node.ID, node.Agent.Role, ev.Text)
			case provider.EventToolUse:
				if ev.Tool != nil {
					toolUses = append(toolUses, *ev.Tool)
				}
			case provider.EventUsage:
				usage = ev.Usage
			}
		})
		if err != nil {
			agentErr := swarmerr.NewAgentError(node.ID, err)
			r.deps.Emitter.AgentError(ctx, node.ID, node.Agent.Role, agentErr.Error(), string(agentErr.Type))
			return Result{}, agentErr
		}

		output += turnText

		if usage != nil {
			costCents := r.deps.Cost.RecordUsage(node.Agent.ID, node.ID, node.Agent.Model, usage.InputTokens, usage.OutputTokens)
			total = total.Add(cost.Summary{
				InputTokens:  usage.InputTokens,
				OutputTokens: usage.OutputTokens,
				TotalTokens:  usage.InputTokens + usage.OutputTokens,
				CostCents:    costCents,
				Calls:        1,
			})
		}

		if len(toolUses) == 0 {
			break
		}

		if turnText != "" {
			messages = append(messages, provider.Message{Role: "assistant", Content: turnText})
		}
		for _, tu := range toolUses {
			r.deps.Emitter.AgentToolUse(ctx, node.ID, tu.Name, decodeArgs(tu.Input))
			result := r.executeTool(node, tu)
			messages = append(messages, provider.Message{Role: "tool", Content: fmt.Sprintf("%s: %s", tu.Name, result)})
		}
	}

	r.deps.Emitter.AgentDone(ctx, node.ID, node.Agent.Role, output, total, "")

	return Result{Output: output, Cost: total}, nil
}

// assemblePrompt builds the priority-tiered context segments and renders
// them through assembler, which Run has already sized to the resolved
// model's context window (spec §4.4). Memory and codebase recall failures
// are swallowed and simply omit that segment, consistent with
// executeTool's local-recovery handling of other external lookups.
func (r *Runner) assemblePrompt(ctx context.Context, assembler *contextpack.Assembler, node graph.Node, task string, upstreamOutputs map[string]string) string {
	segs := []contextpack.Segment{
		{Name: "task", Priority: contextpack.PriorityTask, Content: task},
	}

	for id, out := range upstreamOutputs {
		segs = append(segs, contextpack.Segment{
			Name:     "upstream:" + id,
			Priority: contextpack.PriorityUpstream,
			Content:  fmt.Sprintf("Output from %s:\n%s", id, out),
		})
	}

	if sp := r.deps.Scratchpad.ToContextString(); sp != "" {
		segs = append(segs, contextpack.Segment{Name: "scratchpad", Priority: contextpack.PriorityScratchpad, Content: sp})
	}

	if inbox := r.deps.Channels.Inbox(node.ID); len(inbox) > 0 {
		var s string
		for _, m := range inbox {
			s += fmt.Sprintf("[%s -> %s] %s\n", m.From, m.To, m.Content)
		}
		segs = append(segs, contextpack.Segment{Name: "channels", Priority: contextpack.PriorityChannels, Content: s})
	}

	if recalled, err := r.deps.Context.Memory.Recall(ctx, node.ID, task); err == nil && recalled != "" {
		segs = append(segs, contextpack.Segment{Name: "memory", Priority: contextpack.PriorityExternal, Content: recalled})
	}

	if looked, err := r.deps.Context.Codebase.Lookup(ctx, node.ID, task); err == nil && looked != "" {
		segs = append(segs, contextpack.Segment{Name: "codebase", Priority: contextpack.PriorityExternal, Content: looked})
	}

	return assembler.Assemble(segs)
}

// prependPersona prefixes the node's configured system prompt with its
// resolved persona text, if any.
func (r *Runner) prependPersona(ctx context.Context, node graph.Node) string {
	persona, err := r.deps.Context.Persona.Persona(ctx, node.Agent.ID)
	if err != nil || persona == "" {
		return node.Agent.SystemPrompt
	}
	if node.Agent.SystemPrompt == "" {
		return persona
	}
	return persona + "\n\n" + node.Agent.SystemPrompt
}

// executeTool runs one of the four fixed coordination tools against shared
// memory and returns the string observation the model sees as the tool's
// result (spec §4.7): a success payload, or a human-readable error string
// on failure (e.g. a scratchpad quota violation). Tool failures never fail
// the node — they are reported back to the model, which decides how to
// proceed.
func (r *Runner) executeTool(node graph.Node, tool provider.ToolUse) string {
	switch tool.Name {
	case toolSendMessage:
		var args struct {
			To      string `json:"to"`
			Content string `json:"content"`
		}
		if err := json.Unmarshal(tool.Input, &args); err != nil {
			return fmt.Sprintf("invalid arguments: %v", err)
		}
		if args.To == memory.Broadcast {
			r.deps.Channels.BroadcastMessage(node.ID, args.Content, nil)
		} else {
			r.deps.Channels.Send(node.ID, args.To, args.Content, nil)
		}
		return "sent"
	case toolScratchpadSet:
		var args struct {
			Key   string `json:"key"`
			Value any    `json:"value"`
		}
		if err := json.Unmarshal(tool.Input, &args); err != nil {
			return fmt.Sprintf("invalid arguments: %v", err)
		}
		if err := r.deps.Scratchpad.Set(args.Key, args.Value, node.ID); err != nil {
			return err.Error()
		}
		return "ok"
	case toolScratchpadAppend:
		var args struct {
			Key   string `json:"key"`
			Value any    `json:"value"`
		}
		if err := json.Unmarshal(tool.Input, &args); err != nil {
			return fmt.Sprintf("invalid arguments: %v", err)
		}
		if err := r.deps.Scratchpad.Append(args.Key, args.Value, node.ID); err != nil {
			return err.Error()
		}
		return "ok"
	case toolScratchpadRead:
		var args struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(tool.Input, &args); err != nil {
			return fmt.Sprintf("invalid arguments: %v", err)
		}
		if v, ok := r.deps.Scratchpad.Get(args.Key); ok {
			return encodeScratchpadValue(v)
		}
		if list := r.deps.Scratchpad.GetList(args.Key); len(list) > 0 {
			return encodeScratchpadValue(list)
		}
		return "not found"
	default:
		return fmt.Sprintf("unknown tool %q", tool.Name)
	}
}

// encodeScratchpadValue renders a scratchpad value as the string observation
// returned to the model by scratchpad_read.
func encodeScratchpadValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func decodeArgs(raw []byte) map[string]any {
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	return m
}
