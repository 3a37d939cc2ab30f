// Package executor drives the graph to completion: the main scheduling
// loop (spec §4.9), post-completion effects including conditional routing
// and feedback-cycle bookkeeping (spec §4.10), and dynamic sub-DAG
// expansion for coordinator nodes.
//
// Grounded on internal/multiagent/swarm.go's Swarm.Execute (stage-batched
// goroutine fan-out over a semaphore, first-error cancellation,
// deterministic result ordering) and internal/multiagent/router.go's
// evaluateTrigger dispatch (a switch over a trigger-kind enum with one
// evaluate function per kind, and regex-pattern compile-and-cache).
package executor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/nexusswarm/swarm/internal/graph"
	"github.com/nexusswarm/swarm/internal/provider"
)

// Evaluator dispatches a completed node's output through a conditional
// edge's rule/regex/llm evaluator and resolves the result to a target node
// ID, or "" to mean "skip all targets" (spec §4.2's no-match case).
type Evaluator struct {
	mu       sync.Mutex
	compiled map[string]*regexp.Regexp

	providers *provider.Registry
}

// NewEvaluator creates an Evaluator that resolves llm-kind evaluators
// through providers.
func NewEvaluator(providers *provider.Registry) *Evaluator {
	return &Evaluator{compiled: make(map[string]*regexp.Regexp), providers: providers}
}

// Resolve evaluates ce against output and returns the target node ID and
// the label that matched (e.g. "good", "approve"), or "" for both if no
// target matched.
func (e *Evaluator) Resolve(ctx context.Context, ce graph.ConditionalEdge, output string) (string, string, error) {
	switch ce.Evaluate.Kind {
	case graph.EvaluatorRule:
		return e.resolveRule(ce, output)
	case graph.EvaluatorRegex:
		return e.resolveRegex(ce, output)
	case graph.EvaluatorLLM:
		return e.resolveLLM(ctx, ce, output)
	default:
		return "", "", fmt.Errorf("conditional edge from %q: unknown evaluator kind %q", ce.From, ce.Evaluate.Kind)
	}
}

func (e *Evaluator) resolveRule(ce graph.ConditionalEdge, output string) (string, string, error) {
	if ce.Evaluate.Rule == nil {
		return "", "", fmt.Errorf("conditional edge from %q: rule evaluator has no function", ce.From)
	}
	label := ce.Evaluate.Rule(output)
	return resolveLabelOrID(ce, label), label, nil
}

func (e *Evaluator) resolveRegex(ce graph.ConditionalEdge, output string) (string, string, error) {
	pattern := ce.Evaluate.Pattern
	re, err := e.compile(pattern)
	if err != nil {
		return "", "", fmt.Errorf("conditional edge from %q: %w", ce.From, err)
	}
	if re.MatchString(output) {
		return ce.Evaluate.MatchTarget, "match", nil
	}
	return ce.Evaluate.ElseTarget, "else", nil
}

func (e *Evaluator) compile(pattern string) (*regexp.Regexp, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if re, ok := e.compiled[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	e.compiled[pattern] = re
	return re, nil
}

// resolveLLM classifies output via a dedicated LLM call and resolves the
// duck-typed result: if it names a key in ce.Targets, use that target;
// otherwise treat the raw (trimmed) response as a node ID directly.
func (e *Evaluator) resolveLLM(ctx context.Context, ce graph.ConditionalEdge, output string) (string, string, error) {
	adapter, ok := e.providers.Resolve(ce.Evaluate.ProviderID)
	if !ok {
		return "", "", fmt.Errorf("conditional edge from %q: no provider for classification", ce.From)
	}

	var result string
	params := provider.StreamParams{
		Model:  ce.Evaluate.Model,
		System: ce.Evaluate.Prompt,
		Messages: []provider.Message{
			{Role: "user", Content: output},
		},
	}
	err := adapter.Stream(ctx, params, func(ev provider.Event) {
		if ev.Kind == provider.EventChunk {
			result += ev.Text
		}
	})
	if err != nil {
		return "", "", fmt.Errorf("conditional edge from %q: classification failed: %w", ce.From, err)
	}

	label := strings.TrimSpace(result)
	return resolveLabelOrID(ce, label), label, nil
}

func resolveLabelOrID(ce graph.ConditionalEdge, labelOrID string) string {
	if target, ok := ce.Targets[labelOrID]; ok {
		return target
	}
	for _, target := range ce.Targets {
		if target == labelOrID {
			return labelOrID
		}
	}
	return ""
}
