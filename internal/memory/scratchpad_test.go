package memory

import (
	"errors"
	"strings"
	"testing"
)

func TestScratchpad_SetAndGet(t *testing.T) {
	s := NewScratchpad(0, 0)
	if err := s.Set("key1", "value1", "agent-a"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok := s.Get("key1")
	if !ok || v != "value1" {
		t.Errorf("Get(key1) = %v, %v, want value1, true", v, ok)
	}
}

func TestScratchpad_ScalarAndListAreDisjoint(t *testing.T) {
	s := NewScratchpad(0, 0)
	if err := s.Set("k", "scalar-value", "agent-a"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Append("k", "list-item", "agent-a"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	v, ok := s.Get("k")
	if !ok || v != "scalar-value" {
		t.Errorf("Get(k) = %v, %v, want scalar-value, true", v, ok)
	}
	list := s.GetList("k")
	if len(list) != 1 || list[0] != "list-item" {
		t.Errorf("GetList(k) = %v, want [list-item]", list)
	}
}

func TestScratchpad_PerKeyQuotaRejectsAndDoesNotMutate(t *testing.T) {
	s := NewScratchpad(10, 1000)
	err := s.Set("k", strings.Repeat("x", 100), "agent-a")

	var quotaErr *QuotaError
	if !errors.As(err, &quotaErr) || quotaErr.Kind != "per-key" {
		t.Fatalf("Set() = %v, want a per-key QuotaError", err)
	}
	if _, ok := s.Get("k"); ok {
		t.Error("Get(k) should find nothing after a rejected write")
	}
	if s.TotalBytes() != 0 {
		t.Errorf("TotalBytes() = %d, want 0 (rejected write must not mutate)", s.TotalBytes())
	}
}

func TestScratchpad_TotalQuotaRejectsAndDoesNotMutate(t *testing.T) {
	s := NewScratchpad(1000, 10)
	if err := s.Set("a", "x", "agent-a"); err != nil {
		t.Fatalf("first Set: %v", err)
	}
	before := s.TotalBytes()

	err := s.Set("b", strings.Repeat("y", 100), "agent-a")
	var quotaErr *QuotaError
	if !errors.As(err, &quotaErr) || quotaErr.Kind != "total" {
		t.Fatalf("Set() = %v, want a total QuotaError", err)
	}
	if s.TotalBytes() != before {
		t.Errorf("TotalBytes() changed after rejected write: %d != %d", s.TotalBytes(), before)
	}
}

func TestScratchpad_SetOverwriteAdjustsByteAccounting(t *testing.T) {
	s := NewScratchpad(0, 0)
	s.Set("k", "short", "agent-a")
	firstTotal := s.TotalBytes()

	s.Set("k", "a much longer replacement value", "agent-a")
	secondTotal := s.TotalBytes()

	if secondTotal <= firstTotal {
		t.Errorf("TotalBytes() after overwrite with larger value = %d, want > %d", secondTotal, firstTotal)
	}

	// Overwriting again with the original short value should return total
	// bytes back down, proving the previous size was subtracted, not just
	// added on top of.
	s.Set("k", "short", "agent-a")
	if s.TotalBytes() != firstTotal {
		t.Errorf("TotalBytes() after overwrite back to original = %d, want %d", s.TotalBytes(), firstTotal)
	}
}

func TestScratchpad_History(t *testing.T) {
	s := NewScratchpad(0, 0)
	s.Set("k", "v1", "agent-a")
	s.Append("k", "v2", "agent-b")

	hist := s.History("k")
	if len(hist) != 2 {
		t.Fatalf("History(k) len = %d, want 2", len(hist))
	}
	if hist[0].Operation != OpSet || hist[0].WrittenBy != "agent-a" {
		t.Errorf("hist[0] = %+v, want OpSet by agent-a", hist[0])
	}
	if hist[1].Operation != OpAppend || hist[1].WrittenBy != "agent-b" {
		t.Errorf("hist[1] = %+v, want OpAppend by agent-b", hist[1])
	}
}

func TestScratchpad_KeysUnionsBothStores(t *testing.T) {
	s := NewScratchpad(0, 0)
	s.Set("scalar-key", "v", "agent-a")
	s.Append("list-key", "v", "agent-a")
	s.Append("scalar-key", "v2", "agent-a") // same key, list store too

	keys := s.Keys()
	if len(keys) != 2 {
		t.Fatalf("Keys() = %v, want 2 unique keys", keys)
	}
}

func TestScratchpad_ToContextString(t *testing.T) {
	s := NewScratchpad(0, 0)
	if got := s.ToContextString(); got != "" {
		t.Errorf("ToContextString() on empty scratchpad = %q, want empty", got)
	}
	s.Set("k", "v", "agent-a")
	if got := s.ToContextString(); !strings.Contains(got, "k") || !strings.Contains(got, "v") {
		t.Errorf("ToContextString() = %q, want it to mention key and value", got)
	}
}
