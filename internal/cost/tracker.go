// Package cost implements the swarm's integer-cents usage accounting:
// a static per-model pricing table with prefix-fallback lookup, two-level
// (swarm-total, per-agent) budget enforcement, and thread-safe cumulative
// totals.
//
// Grounded on dshills-langgraph-go/graph/cost.go's CostTracker (pricing
// table shape, RecordLLMCall, mutex-guarded cumulative fields), adapted
// from float64 USD to integer cents with ceiling division and from
// exact-match-with-default-fallback to longest-prefix-match lookup, since
// the teacher's tracker has neither of those spec-mandated behaviors.
package cost

import (
	"math"
	"sort"
	"strings"
	"sync"
)

// Pricing is the per-million-token price, in integer cents, for a model's
// input and output tokens.
type Pricing struct {
	InputCentsPerM  int64
	OutputCentsPerM int64
}

// DefaultPricing is the static table shipped with the engine. Keys are
// matched by longest-prefix, so "claude-3-5-sonnet" matches a request for
// "claude-3-5-sonnet-20241022" when no longer key matches.
var DefaultPricing = map[string]Pricing{
	"gpt-4o":                    {InputCentsPerM: 250, OutputCentsPerM: 1000},
	"gpt-4o-mini":                {InputCentsPerM: 15, OutputCentsPerM: 60},
	"gpt-4-turbo":                {InputCentsPerM: 1000, OutputCentsPerM: 3000},
	"gpt-3.5-turbo":              {InputCentsPerM: 50, OutputCentsPerM: 150},
	"claude-3-5-sonnet":          {InputCentsPerM: 300, OutputCentsPerM: 1500},
	"claude-3-opus":              {InputCentsPerM: 1500, OutputCentsPerM: 7500},
	"claude-3-sonnet":            {InputCentsPerM: 300, OutputCentsPerM: 1500},
	"claude-3-haiku":             {InputCentsPerM: 25, OutputCentsPerM: 125},
	"gemini-1.5-pro":             {InputCentsPerM: 125, OutputCentsPerM: 500},
	"gemini-1.5-flash":           {InputCentsPerM: 8, OutputCentsPerM: 30},
	"gemini-1.0-pro":             {InputCentsPerM: 50, OutputCentsPerM: 150},
}

// Summary is the integer accounting tuple carried in every agent_done /
// swarm_done / swarm_error event. Costs are always integer cents.
type Summary struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostCents    int64
	Calls        int64
}

// Add returns the elementwise sum of s and other.
func (s Summary) Add(other Summary) Summary {
	return Summary{
		InputTokens:  s.InputTokens + other.InputTokens,
		OutputTokens: s.OutputTokens + other.OutputTokens,
		TotalTokens:  s.TotalTokens + other.TotalTokens,
		CostCents:    s.CostCents + other.CostCents,
		Calls:        s.Calls + other.Calls,
	}
}

// Budget configures an optional limit in cents. A nil *Budget, or one with
// Unbounded true, never trips.
type Budget struct {
	LimitCents int64
	Unbounded  bool
}

// Check is the result of checkBudget(): ok, used so far, and remaining
// headroom (math.MaxInt64 sentinel represents +Inf when unbounded).
type Check struct {
	OK        bool
	Used      int64
	Remaining int64

	limit int64
}

// Unbounded reports whether the checked budget has no limit.
func (c Check) Unbounded() bool {
	return c.Remaining == unboundedRemaining
}

// Limit returns the configured limit in cents that this check was made
// against, including when Used has passed it. Only meaningful when
// !Unbounded().
func (c Check) Limit() int64 {
	return c.limit
}

const unboundedRemaining = math.MaxInt64

// Tracker accumulates usage per-agent and swarm-wide and enforces the two
// optional budgets. All mutating/reading operations are safe for
// concurrent use from parallel node tasks.
type Tracker struct {
	mu      sync.RWMutex
	pricing map[string]Pricing
	sorted  []string // pricing keys sorted longest-first, for prefix match

	swarmBudget *Budget
	agentBudget *Budget

	swarmTotal  Summary
	perAgent    map[string]Summary
	perNode     map[string]Summary
}

// NewTracker creates a Tracker with the given pricing table (DefaultPricing
// if nil) and optional budgets (nil means unbounded).
func NewTracker(pricing map[string]Pricing, swarmBudget, agentBudget *Budget) *Tracker {
	if pricing == nil {
		pricing = DefaultPricing
	}
	t := &Tracker{
		pricing:     pricing,
		swarmBudget: swarmBudget,
		agentBudget: agentBudget,
		perAgent:    make(map[string]Summary),
		perNode:     make(map[string]Summary),
	}
	t.resort()
	return t
}

func (t *Tracker) resort() {
	keys := make([]string, 0, len(t.pricing))
	for k := range t.pricing {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	t.sorted = keys
}

// lookup finds the longest pricing key that is a prefix of model. Returns
// zero Pricing (free) if nothing matches.
func (t *Tracker) lookup(model string) Pricing {
	for _, key := range t.sorted {
		if strings.HasPrefix(model, key) {
			return t.pricing[key]
		}
	}
	return Pricing{}
}

// ceilDiv1e6 computes ceil(tokens * centsPerM / 1_000_000) using integer
// arithmetic only.
func ceilDiv1e6(tokens int64, centsPerM int64) int64 {
	if tokens <= 0 || centsPerM <= 0 {
		return 0
	}
	num := tokens * centsPerM
	return (num + 999_999) / 1_000_000
}

// RecordUsage records one completed call's usage against nodeID/agentID and
// returns the cost in cents charged for this call.
func (t *Tracker) RecordUsage(agentID, nodeID, model string, inputTokens, outputTokens int64) int64 {
	p := t.lookup(model)
	costCents := ceilDiv1e6(inputTokens, p.InputCentsPerM) + ceilDiv1e6(outputTokens, p.OutputCentsPerM)

	delta := Summary{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		CostCents:    costCents,
		Calls:        1,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.swarmTotal = t.swarmTotal.Add(delta)
	t.perAgent[agentID] = t.perAgent[agentID].Add(delta)
	t.perNode[nodeID] = t.perNode[nodeID].Add(delta)
	return costCents
}

// SwarmTotal returns the swarm-wide accumulated summary.
func (t *Tracker) SwarmTotal() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.swarmTotal
}

// AgentTotal returns the accumulated summary for agentID.
func (t *Tracker) AgentTotal(agentID string) Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.perAgent[agentID]
}

// NodeTotal returns the accumulated summary for nodeID.
func (t *Tracker) NodeTotal(nodeID string) Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.perNode[nodeID]
}

// CheckSwarmBudget evaluates the swarm-total budget against current usage.
func (t *Tracker) CheckSwarmBudget() Check {
	t.mu.RLock()
	used := t.swarmTotal.CostCents
	t.mu.RUnlock()
	return checkAgainst(used, t.swarmBudget)
}

// CheckAgentBudget evaluates the per-agent budget against agentID's usage.
func (t *Tracker) CheckAgentBudget(agentID string) Check {
	t.mu.RLock()
	used := t.perAgent[agentID].CostCents
	t.mu.RUnlock()
	return checkAgainst(used, t.agentBudget)
}

func checkAgainst(used int64, budget *Budget) Check {
	if budget == nil || budget.Unbounded {
		return Check{OK: true, Used: used, Remaining: unboundedRemaining}
	}
	remaining := budget.LimitCents - used
	if remaining < 0 {
		remaining = 0
	}
	return Check{OK: used <= budget.LimitCents, Used: used, Remaining: remaining, limit: budget.LimitCents}
}
