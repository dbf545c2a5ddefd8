// Package sessions implements the Session Store (C4): append-only turn
// history grouped by session, backed by either an in-memory store (tests)
// or a pure-Go SQLite store (embedded single-node deployment). Interface
// shape grounded on the teacher's internal/sessions/store.go.
package sessions

import (
	"context"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

// Store persists sessions and their turn history.
type Store interface {
	Create(ctx context.Context, session *sindri.Session) error
	Get(ctx context.Context, id string) (*sindri.Session, error)
	Update(ctx context.Context, session *sindri.Session) error
	Delete(ctx context.Context, id string) error

	List(ctx context.Context, opts ListOptions) ([]*sindri.Session, error)

	// AppendTurn appends one turn to a session's history. Turns are
	// append-only: there is no UpdateTurn or DeleteTurn.
	AppendTurn(ctx context.Context, sessionID string, turn *sindri.Turn) error
	GetHistory(ctx context.Context, sessionID string, limit int) ([]*sindri.Turn, error)

	// CleanupStale marks sessions whose last activity is more than
	// olderThanSeconds ago as stale and returns how many it marked.
	// Nothing in cmd/sindri calls it.
	CleanupStale(ctx context.Context, olderThanSeconds int64) (int, error)
}

// ListOptions configures session listing.
type ListOptions struct {
	Status sindri.SessionStatus
	Limit  int
	Offset int
}
