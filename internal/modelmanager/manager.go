// Package modelmanager implements the VRAM Model Manager (C6): an
// admission-controlled LRU over resident models, serialized through one
// mutex, with fallback-to-smaller-model semantics. No teacher analogue
// exists (nexus talks to hosted APIs, never VRAM-resident local models);
// grounded instead on original_source/sindri/config.py's VRAM fields
// (total_vram_gb, reserve_vram_gb, estimated_vram_gb, fallback_model) and
// on the candidate/attempt/fallback *shape* of the teacher's API-failover
// package (_examples/haasonsaas-nexus/internal/models/fallback.go),
// adapted from API failover to VRAM admission.
package modelmanager

import (
	"container/list"
	"sync"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

// Candidate is one model the caller is willing to run, with an optional
// smaller fallback to try if the primary doesn't fit.
type Candidate struct {
	Model           string
	VRAMGB          float64
	FallbackModel   string
	FallbackVRAMGB  float64
}

// residency tracks one currently-loaded model.
type residency struct {
	model  string
	vramGB float64
}

// Manager admits models against a fixed VRAM budget, evicting
// least-recently-used residents to make room, and falling back to a
// smaller model when even eviction cannot make room for the primary.
type Manager struct {
	mu          sync.Mutex
	totalGB     float64
	reserveGB   float64
	usedGB      float64
	lru         *list.List // front = most recently used
	elemByModel map[string]*list.Element
	emit        func(sindri.Event)
}

// New creates a Manager with totalGB of VRAM, reserveGB of which is never
// allocated to models (headroom for the runtime itself). emit may be nil.
func New(totalGB, reserveGB float64, emit func(sindri.Event)) *Manager {
	return &Manager{
		totalGB:     totalGB,
		reserveGB:   reserveGB,
		lru:         list.New(),
		elemByModel: make(map[string]*list.Element),
		emit:        emit,
	}
}

func (m *Manager) budgetGB() float64 { return m.totalGB - m.reserveGB }

// Acquire admits cand.Model, evicting least-recently-used residents if
// needed. If the primary still does not fit after evicting everything
// evictable, it falls back to cand.FallbackModel (if set); if that doesn't
// fit either, it returns *sindri.VRAMExhaustedError. Returns the model
// actually admitted (primary or fallback).
func (m *Manager) Acquire(cand Candidate) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tryAdmit(cand.Model, cand.VRAMGB) {
		return cand.Model, nil
	}

	if cand.FallbackModel == "" {
		return "", &sindri.VRAMExhaustedError{
			Model:       cand.Model,
			RequestedGB: cand.VRAMGB,
			AvailableGB: m.budgetGB() - m.usedGB,
		}
	}

	if m.tryAdmit(cand.FallbackModel, cand.FallbackVRAMGB) {
		if m.emit != nil {
			m.emit(sindri.Event{Type: sindri.EventModelFallback, Data: map[string]any{"from": cand.Model, "to": cand.FallbackModel}})
		}
		return cand.FallbackModel, nil
	}

	return "", &sindri.VRAMExhaustedError{
		Model:         cand.Model,
		RequestedGB:   cand.VRAMGB,
		AvailableGB:   m.budgetGB() - m.usedGB,
		FallbackTried: cand.FallbackModel,
	}
}

// tryAdmit evicts LRU residents until model fits or nothing more can be
// evicted, then admits it. Must be called with m.mu held.
func (m *Manager) tryAdmit(model string, vramGB float64) bool {
	if vramGB > m.budgetGB() {
		return false // can never fit regardless of eviction
	}
	if elem, ok := m.elemByModel[model]; ok {
		m.lru.MoveToFront(elem)
		return true // already resident
	}

	for m.usedGB+vramGB > m.budgetGB() && m.lru.Len() > 0 {
		m.evictOldest()
	}
	if m.usedGB+vramGB > m.budgetGB() {
		return false
	}

	elem := m.lru.PushFront(&residency{model: model, vramGB: vramGB})
	m.elemByModel[model] = elem
	m.usedGB += vramGB
	return true
}

func (m *Manager) evictOldest() {
	back := m.lru.Back()
	if back == nil {
		return
	}
	r := back.Value.(*residency)
	m.lru.Remove(back)
	delete(m.elemByModel, r.model)
	m.usedGB -= r.vramGB
	if m.emit != nil {
		m.emit(sindri.Event{Type: sindri.EventModelEvicted, Data: map[string]any{"model": r.model}})
	}
}

// Release evicts model immediately, freeing its VRAM without waiting for
// LRU pressure. Used when an agent's task completes.
func (m *Manager) Release(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	elem, ok := m.elemByModel[model]
	if !ok {
		return
	}
	r := elem.Value.(*residency)
	m.lru.Remove(elem)
	delete(m.elemByModel, model)
	m.usedGB -= r.vramGB
}

// UsedGB returns the VRAM currently allocated to resident models.
func (m *Manager) UsedGB() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usedGB
}

// Resident reports whether model is currently loaded.
func (m *Manager) Resident(model string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.elemByModel[model]
	return ok
}
