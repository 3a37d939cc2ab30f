// Package contextpack assembles the per-node prompt context under a token
// budget: task description, upstream outputs, scratchpad contents, and
// channel messages, each as a priority-tagged segment.
//
// Grounded on internal/agent/context/packer.go's Packer.Pack (budget
// tracking by char count, truncate-from-the-edges-inward selection,
// truncate-then-suffix-marker for oversized pieces), generalized from a
// single flat message history to explicitly priority-tiered segments where
// truncation order is driven by priority rather than recency alone.
package contextpack

import (
	"sort"
	"strings"
)

// Priority ranks a segment's importance. Priority 1 is never truncated or
// dropped (spec §4.4); higher numbers are truncated first when the budget
// is tight.
type Priority int

const (
	PriorityTask       Priority = 1 // the node's own task description
	PriorityUpstream   Priority = 2 // direct upstream node outputs
	PriorityScratchpad Priority = 3
	PriorityChannels   Priority = 4
	PriorityExternal   Priority = 5 // recalled memory/codebase context, the first to be trimmed
)

// BytesPerToken is the crude token estimator used throughout: one token is
// assumed to be four bytes of UTF-8 text.
const BytesPerToken = 4

// Segment is one named, priority-tagged block of context text.
type Segment struct {
	Name     string
	Priority Priority
	Content  string
}

func estimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return (len(s) + BytesPerToken - 1) / BytesPerToken
}

const truncationSuffix = "...[truncated]"

// truncateToTokens cuts s down to approximately maxTokens tokens, appending
// a suffix marker. When the byte budget is smaller than the marker itself,
// the bare marker is returned, which can be longer than the budget.
func truncateToTokens(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	maxBytes := maxTokens * BytesPerToken
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes - len(truncationSuffix)
	if cut <= 0 {
		return truncationSuffix
	}
	return s[:cut] + truncationSuffix
}

// Assembler packs Segments into a single prompt string within a token
// budget.
type Assembler struct {
	budgetTokens int
}

// New creates an Assembler with the given total token budget. A
// non-positive budget is treated as unbounded.
func New(budgetTokens int) *Assembler {
	return &Assembler{budgetTokens: budgetTokens}
}

// WithBudget returns a new Assembler over budgetTokens, used to size the
// budget to a specific model's context window (spec §4.4:
// ⌊0.75 × model.contextWindow⌋) per invocation rather than once globally.
func (a *Assembler) WithBudget(budgetTokens int) *Assembler {
	return &Assembler{budgetTokens: budgetTokens}
}

// Assemble renders segs into one string, truncating lower-priority
// (higher-numbered) segments first when the total exceeds the budget.
// Priority 1 segments are always included in full.
func (a *Assembler) Assemble(segs []Segment) string {
	if a.budgetTokens <= 0 {
		return render(segs)
	}

	working := make([]Segment, len(segs))
	copy(working, segs)

	total := totalTokens(working)
	if total <= a.budgetTokens {
		return render(working)
	}

	// Truncate starting from the lowest priority (highest number), never
	// touching priority-1 segments, until within budget or nothing left
	// to cut.
	order := make([]int, 0, len(working))
	for i, s := range working {
		if s.Priority != PriorityTask {
			order = append(order, i)
		}
	}
	sort.Slice(order, func(i, j int) bool {
		return working[order[i]].Priority > working[order[j]].Priority
	})

	for _, idx := range order {
		if total <= a.budgetTokens {
			break
		}
		over := total - a.budgetTokens
		segTokens := estimateTokens(working[idx].Content)
		if segTokens == 0 {
			continue
		}
		newSegTokens := segTokens - over
		if newSegTokens < 0 {
			newSegTokens = 0
		}
		working[idx].Content = truncateToTokens(working[idx].Content, newSegTokens)
		total = totalTokens(working)
	}

	return render(working)
}

func totalTokens(segs []Segment) int {
	t := 0
	for _, s := range segs {
		t += estimateTokens(s.Content)
	}
	return t
}

func render(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		if s.Content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s.Content)
	}
	return b.String()
}

// EstimatedTokens exposes the estimator for callers assembling segments
// (e.g. to decide whether an upstream output needs pre-trimming).
func EstimatedTokens(s string) int {
	return estimateTokens(s)
}
