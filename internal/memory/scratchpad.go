// Package memory implements the swarm's shared coordination state: the
// Scratchpad (keyed scalar store + keyed list store, with byte quotas and
// write history) and Channels (directed/broadcast message log).
//
// Grounded on internal/multiagent/swarm.go's InMemorySwarmContext (mutex-
// guarded map, non-blocking buffered-channel publish/subscribe idiom),
// generalized from a single-value-per-agent publish model to the spec's
// dual scalar/list store with quotas and history.
package memory

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// WriteOp tags a history entry as a set or an append.
type WriteOp string

const (
	OpSet    WriteOp = "set"
	OpAppend WriteOp = "append"
)

// WriteEntry records one successful scratchpad write.
type WriteEntry struct {
	Key       string
	Value     any
	WrittenBy string
	Timestamp time.Time
	Operation WriteOp
}

// QuotaError reports a scratchpad write that would exceed a byte limit.
// The write does not mutate state when this is returned.
type QuotaError struct {
	Key       string
	Requested int
	Limit     int
	Kind      string // "per-key" or "total"
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("scratchpad quota exceeded (%s): key %q requested %d bytes, limit %d", e.Kind, e.Key, e.Requested, e.Limit)
}

const (
	DefaultPerKeyBytes = 10 * 1024
	DefaultTotalBytes  = 100 * 1024
)

// Scratchpad is the keyed scalar+list coordination store. The scalar and
// list stores are logically disjoint even though they share a key
// namespace: get(k) only ever returns a value written by set, getList(k)
// only ever returns entries written by append. See DESIGN.md's Open
// Question decision.
type Scratchpad struct {
	mu sync.RWMutex

	perKeyLimit int
	totalLimit  int

	scalars     map[string]any
	scalarBytes map[string]int

	lists      map[string][]any
	listBytes  map[string]int

	history map[string][]WriteEntry

	totalBytes int
}

// NewScratchpad creates a Scratchpad with the given per-key and total byte
// limits. A zero value for either uses the spec default.
func NewScratchpad(perKeyLimit, totalLimit int) *Scratchpad {
	if perKeyLimit <= 0 {
		perKeyLimit = DefaultPerKeyBytes
	}
	if totalLimit <= 0 {
		totalLimit = DefaultTotalBytes
	}
	return &Scratchpad{
		perKeyLimit: perKeyLimit,
		totalLimit:  totalLimit,
		scalars:     make(map[string]any),
		scalarBytes: make(map[string]int),
		lists:       make(map[string][]any),
		listBytes:   make(map[string]int),
		history:     make(map[string][]WriteEntry),
	}
}

func serializedLen(value any) (int, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("serialize scratchpad value: %w", err)
	}
	return len(b), nil
}

// keyTotalBytes returns the combined scalar+list byte usage for key.
func (s *Scratchpad) keyTotalBytes(key string) int {
	return s.scalarBytes[key] + s.listBytes[key]
}

// Set overwrites the scalar value at key. Enforces per-key and total byte
// quotas transactionally: on quota failure no state is mutated.
func (s *Scratchpad) Set(key string, value any, writer string) error {
	size, err := serializedLen(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prevSize := s.scalarBytes[key]
	newKeyTotal := s.keyTotalBytes(key) - prevSize + size
	if newKeyTotal > s.perKeyLimit {
		return &QuotaError{Key: key, Requested: newKeyTotal, Limit: s.perKeyLimit, Kind: "per-key"}
	}
	newTotal := s.totalBytes - prevSize + size
	if newTotal > s.totalLimit {
		return &QuotaError{Key: key, Requested: newTotal, Limit: s.totalLimit, Kind: "total"}
	}

	s.scalars[key] = value
	s.scalarBytes[key] = size
	s.totalBytes = newTotal
	s.history[key] = append(s.history[key], WriteEntry{Key: key, Value: value, WrittenBy: writer, Timestamp: time.Now(), Operation: OpSet})
	return nil
}

// Append adds value to the list store under key (separate from the scalar
// store at the same key name). Enforces the same quota rules.
func (s *Scratchpad) Append(key string, value any, writer string) error {
	size, err := serializedLen(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	newKeyTotal := s.keyTotalBytes(key) + size
	if newKeyTotal > s.perKeyLimit {
		return &QuotaError{Key: key, Requested: newKeyTotal, Limit: s.perKeyLimit, Kind: "per-key"}
	}
	newTotal := s.totalBytes + size
	if newTotal > s.totalLimit {
		return &QuotaError{Key: key, Requested: newTotal, Limit: s.totalLimit, Kind: "total"}
	}

	s.lists[key] = append(s.lists[key], value)
	s.listBytes[key] += size
	s.totalBytes = newTotal
	s.history[key] = append(s.history[key], WriteEntry{Key: key, Value: value, WrittenBy: writer, Timestamp: time.Now(), Operation: OpAppend})
	return nil
}

// Get returns the scalar value at key, if any.
func (s *Scratchpad) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.scalars[key]
	return v, ok
}

// GetList returns a copy of the list at key.
func (s *Scratchpad) GetList(key string) []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l := s.lists[key]
	out := make([]any, len(l))
	copy(out, l)
	return out
}

// Keys returns the union of keys present in either store.
func (s *Scratchpad) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for k := range s.scalars {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for k := range s.lists {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// History returns a copy of the write history for key.
func (s *Scratchpad) History(key string) []WriteEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.history[key]
	out := make([]WriteEntry, len(h))
	copy(out, h)
	return out
}

// TotalBytes returns current total byte usage across both stores.
func (s *Scratchpad) TotalBytes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalBytes
}

// ToContextString renders the scratchpad as a human-readable block for
// inclusion in an agent's assembled context (spec §4.4 priority 3).
func (s *Scratchpad) ToContextString() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.scalars) == 0 && len(s.lists) == 0 {
		return ""
	}

	out := "Scratchpad:\n"
	for k, v := range s.scalars {
		out += fmt.Sprintf("- %s = %v\n", k, v)
	}
	for k, v := range s.lists {
		out += fmt.Sprintf("- %s (list, %d items) = %v\n", k, len(v), v)
	}
	return out
}
