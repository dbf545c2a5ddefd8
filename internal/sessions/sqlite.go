package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

// SQLiteStore persists sessions and turns in a pure-Go SQLite database
// (modernc.org/sqlite, no cgo), the embedded single-node deployment
// SPEC_FULL.md §6 calls for at <home>/.sindri/sindri.db.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the database at path and
// ensures its schema exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers per connection

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL,
	agent_name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	iterations INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	completed_at TEXT
);
CREATE TABLE IF NOT EXISTS turns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	tool_calls TEXT,
	tool_name TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, id);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status, updated_at);
`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Create(ctx context.Context, session *sindri.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, task_id, agent_name, description, model, status, iterations, created_at, updated_at, completed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.TaskID, session.AgentName, session.Description, session.Model, string(session.Status), session.Iterations,
		session.CreatedAt.UTC().Format(time.RFC3339Nano), session.UpdatedAt.UTC().Format(time.RFC3339Nano), formatCompletedAt(session.CompletedAt))
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*sindri.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, task_id, agent_name, description, model, status, iterations, created_at, updated_at, completed_at FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func formatCompletedAt(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func scanSession(row *sql.Row) (*sindri.Session, error) {
	var out sindri.Session
	var status, createdAt, updatedAt string
	var completedAt sql.NullString
	if err := row.Scan(&out.ID, &out.TaskID, &out.AgentName, &out.Description, &out.Model, &status, &out.Iterations, &createdAt, &updatedAt, &completedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, sindri.ErrSessionNotFound
		}
		return nil, err
	}
	out.Status = sindri.SessionStatus(status)
	out.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	out.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if completedAt.Valid {
		out.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt.String)
	}
	return &out, nil
}

func (s *SQLiteStore) Update(ctx context.Context, session *sindri.Session) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET task_id = ?, agent_name = ?, description = ?, model = ?, status = ?, iterations = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
		session.TaskID, session.AgentName, session.Description, session.Model, string(session.Status), session.Iterations,
		session.UpdatedAt.UTC().Format(time.RFC3339Nano), formatCompletedAt(session.CompletedAt), session.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sindri.ErrSessionNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]*sindri.Session, error) {
	query := `SELECT id, task_id, agent_name, description, model, status, iterations, created_at, updated_at, completed_at FROM sessions`
	args := []any{}
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY updated_at DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*sindri.Session
	for rows.Next() {
		var sess sindri.Session
		var status, createdAt, updatedAt string
		var completedAt sql.NullString
		if err := rows.Scan(&sess.ID, &sess.TaskID, &sess.AgentName, &sess.Description, &sess.Model, &status, &sess.Iterations, &createdAt, &updatedAt, &completedAt); err != nil {
			return nil, err
		}
		sess.Status = sindri.SessionStatus(status)
		sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		sess.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		if completedAt.Valid {
			sess.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt.String)
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AppendTurn(ctx context.Context, sessionID string, turn *sindri.Turn) error {
	var toolCalls sql.NullString
	if len(turn.ToolCalls) > 0 {
		toolCalls = sql.NullString{String: string(turn.ToolCalls), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (session_id, role, content, tool_calls, tool_name, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, string(turn.Role), turn.Content, toolCalls, turn.ToolName, turn.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	turn.ID = id
	turn.SessionID = sessionID
	_, err = s.db.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), sessionID)
	return err
}

func (s *SQLiteStore) GetHistory(ctx context.Context, sessionID string, limit int) ([]*sindri.Turn, error) {
	query := `SELECT id, session_id, role, content, tool_calls, tool_name, created_at FROM turns WHERE session_id = ? ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*sindri.Turn
	for rows.Next() {
		var t sindri.Turn
		var toolCalls sql.NullString
		var createdAt string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Role, &t.Content, &toolCalls, &t.ToolName, &createdAt); err != nil {
			return nil, err
		}
		if toolCalls.Valid {
			t.ToolCalls = json.RawMessage(toolCalls.String)
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(out) {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *SQLiteStore) CleanupStale(ctx context.Context, olderThanSeconds int64) (int, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanSeconds) * time.Second).UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ? WHERE status = ? AND updated_at < ?`,
		string(sindri.SessionStale), string(sindri.SessionActive), cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
