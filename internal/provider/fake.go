package provider

import (
	"context"
	"fmt"
)

// Fake is a deterministic in-memory Adapter for tests: it returns scripted
// responses keyed by model, or a canned echo of the last user message if
// no script entry matches. Grounded on the teacher's fondness for simple
// hand-rolled provider stand-ins in _test.go files rather than a mocking
// framework (see internal/agent's *_test.go use of stub LLMProviders).
type Fake struct {
	name     string
	scripted map[string][][]Event // one entry per turn, consumed in order
	nextTurn map[string]int
	limits   map[string]ModelLimits
	pricing  map[string]Pricing

	calls []StreamParams
}

// Pricing mirrors internal/cost.Pricing's shape without importing that
// package, keeping provider free of a dependency edge on cost.
type Pricing struct {
	InputCentsPerM  int64
	OutputCentsPerM int64
}

// NewFake creates an empty Fake adapter named name.
func NewFake(name string) *Fake {
	return &Fake{
		name:     name,
		scripted: make(map[string][][]Event),
		nextTurn: make(map[string]int),
		limits:   make(map[string]ModelLimits),
		pricing:  make(map[string]Pricing),
	}
}

// Script appends one turn's event sequence for model: the first Stream call
// for that model replays the first registered turn, the second call
// replays the second, and so on. Calls beyond the registered turns fall
// back to a canned echo of the last user message, which never requests a
// tool, terminating the runner's tool-use loop (spec §4.7).
func (f *Fake) Script(model string, events []Event) {
	f.scripted[model] = append(f.scripted[model], events)
}

// SetLimits registers ModelLimits for model.
func (f *Fake) SetLimits(model string, limits ModelLimits) {
	f.limits[model] = limits
}

// SetPricing registers per-model pricing for EstimateCost.
func (f *Fake) SetPricing(model string, p Pricing) {
	f.pricing[model] = p
}

// Calls returns every StreamParams this adapter has received, in order.
func (f *Fake) Calls() []StreamParams {
	return f.calls
}

func (f *Fake) Name() string { return f.name }

func (f *Fake) Stream(ctx context.Context, params StreamParams, onEvent func(Event)) error {
	f.calls = append(f.calls, params)

	turns := f.scripted[params.Model]
	idx := f.nextTurn[params.Model]

	var events []Event
	if idx < len(turns) {
		events = turns[idx]
		f.nextTurn[params.Model] = idx + 1
	} else {
		events = defaultEcho(params)
	}

	for _, e := range events {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		onEvent(e)
	}
	return nil
}

func defaultEcho(params StreamParams) []Event {
	last := ""
	for i := len(params.Messages) - 1; i >= 0; i-- {
		if params.Messages[i].Role == "user" {
			last = params.Messages[i].Content
			break
		}
	}
	text := fmt.Sprintf("echo: %s", last)
	return []Event{
		{Kind: EventChunk, Text: text},
		{Kind: EventUsage, Usage: &Usage{InputTokens: int64(len(last) / 4), OutputTokens: int64(len(text) / 4)}},
	}
}

func (f *Fake) EstimateCost(model string, inputTokens, outputTokens int64) int64 {
	p, ok := f.pricing[model]
	if !ok {
		return 0
	}
	return ceilDiv1e6(inputTokens, p.InputCentsPerM) + ceilDiv1e6(outputTokens, p.OutputCentsPerM)
}

func ceilDiv1e6(tokens, centsPerM int64) int64 {
	if tokens <= 0 || centsPerM <= 0 {
		return 0
	}
	return (tokens*centsPerM + 999_999) / 1_000_000
}

func (f *Fake) ModelLimits(model string) (ModelLimits, bool) {
	l, ok := f.limits[model]
	return l, ok
}
