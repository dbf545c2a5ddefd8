package modelmanager

import (
	"testing"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

func TestAcquireWithinBudget(t *testing.T) {
	m := New(16, 2, nil)
	model, err := m.Acquire(Candidate{Model: "mimir", VRAMGB: 8})
	if err != nil {
		t.Fatal(err)
	}
	if model != "mimir" {
		t.Errorf("got %s", model)
	}
	if m.UsedGB() != 8 {
		t.Errorf("used = %f, want 8", m.UsedGB())
	}
}

func TestAcquireEvictsLRU(t *testing.T) {
	var events []sindri.Event
	m := New(10, 0, func(e sindri.Event) { events = append(events, e) })
	if _, err := m.Acquire(Candidate{Model: "a", VRAMGB: 6}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Acquire(Candidate{Model: "b", VRAMGB: 6}); err != nil {
		t.Fatal(err)
	}
	if m.Resident("a") {
		t.Error("expected a to be evicted to make room for b")
	}
	if !m.Resident("b") {
		t.Error("expected b to be resident")
	}

	found := false
	for _, e := range events {
		if e.Type == sindri.EventModelEvicted {
			found = true
		}
	}
	if !found {
		t.Error("expected a ModelEvicted event")
	}
}

func TestAcquireFallsBackWhenPrimaryTooBig(t *testing.T) {
	var events []sindri.Event
	m := New(8, 0, func(e sindri.Event) { events = append(events, e) })
	model, err := m.Acquire(Candidate{Model: "huge", VRAMGB: 20, FallbackModel: "small", FallbackVRAMGB: 4})
	if err != nil {
		t.Fatal(err)
	}
	if model != "small" {
		t.Errorf("got %s, want small", model)
	}
	found := false
	for _, e := range events {
		if e.Type == sindri.EventModelFallback {
			found = true
		}
	}
	if !found {
		t.Error("expected a ModelFallback event")
	}
}

func TestAcquireNeverExceedsBudget(t *testing.T) {
	m := New(8, 0, nil)
	_, err := m.Acquire(Candidate{Model: "huge", VRAMGB: 20})
	if err == nil {
		t.Fatal("expected VRAM exhausted error")
	}
	if !sindri.IsVRAMExhausted(err) {
		t.Errorf("expected VRAMExhaustedError, got %T", err)
	}
	if m.UsedGB() != 0 {
		t.Errorf("used = %f, want 0", m.UsedGB())
	}
}

func TestAcquireReusesResidentModelWithoutReallocating(t *testing.T) {
	m := New(10, 0, nil)
	m.Acquire(Candidate{Model: "a", VRAMGB: 5})
	used := m.UsedGB()
	m.Acquire(Candidate{Model: "a", VRAMGB: 5})
	if m.UsedGB() != used {
		t.Errorf("expected no additional allocation for already-resident model, used = %f", m.UsedGB())
	}
}

func TestReleaseFreesVRAM(t *testing.T) {
	m := New(10, 0, nil)
	m.Acquire(Candidate{Model: "a", VRAMGB: 5})
	m.Release("a")
	if m.UsedGB() != 0 {
		t.Errorf("used = %f, want 0 after release", m.UsedGB())
	}
	if m.Resident("a") {
		t.Error("expected a to no longer be resident")
	}
}
