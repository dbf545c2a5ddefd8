package sessions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

// maxTurnsPerSession bounds in-memory history growth the way the teacher's
// MemoryStore bounds message growth per session.
const maxTurnsPerSession = 2000

// MemoryStore is an in-process Store, used in tests and for ephemeral runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sindri.Session
	turns    map[string][]*sindri.Turn
	nextTurn int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*sindri.Session),
		turns:    make(map[string][]*sindri.Turn),
	}
}

func cloneSession(s *sindri.Session) *sindri.Session {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

func (m *MemoryStore) Create(ctx context.Context, session *sindri.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = cloneSession(session)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*sindri.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, sindri.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (m *MemoryStore) Update(ctx context.Context, session *sindri.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; !ok {
		return sindri.ErrSessionNotFound
	}
	m.sessions[session.ID] = cloneSession(session)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.turns, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, opts ListOptions) ([]*sindri.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*sindri.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if opts.Status != "" && s.Status != opts.Status {
			continue
		}
		out = append(out, cloneSession(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })

	if opts.Offset > 0 && opts.Offset < len(out) {
		out = out[opts.Offset:]
	} else if opts.Offset >= len(out) {
		return nil, nil
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MemoryStore) AppendTurn(ctx context.Context, sessionID string, turn *sindri.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return sindri.ErrSessionNotFound
	}
	m.nextTurn++
	turn.ID = m.nextTurn
	turn.SessionID = sessionID
	history := append(m.turns[sessionID], turn)
	if len(history) > maxTurnsPerSession {
		history = history[len(history)-maxTurnsPerSession:]
	}
	m.turns[sessionID] = history
	if s, ok := m.sessions[sessionID]; ok {
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (m *MemoryStore) GetHistory(ctx context.Context, sessionID string, limit int) ([]*sindri.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := m.turns[sessionID]
	if limit > 0 && limit < len(history) {
		history = history[len(history)-limit:]
	}
	out := make([]*sindri.Turn, len(history))
	copy(out, history)
	return out, nil
}

func (m *MemoryStore) CleanupStale(ctx context.Context, olderThanSeconds int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-time.Duration(olderThanSeconds) * time.Second)
	count := 0
	for _, s := range m.sessions {
		if s.Status == sindri.SessionActive && s.UpdatedAt.Before(cutoff) {
			s.Status = sindri.SessionStale
			count++
		}
	}
	return count, nil
}
