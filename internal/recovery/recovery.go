// Package recovery implements the Recovery Manager (C11): atomic
// checkpoint writes, listing, and cleanup, ported line-for-line from
// _examples/original_source/sindri/core/recovery.py.
package recovery

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

// Manager persists and restores session checkpoints under a state
// directory.
type Manager struct {
	stateDir string
	log      *slog.Logger
}

// New creates a Manager rooted at stateDir, creating it if necessary.
func New(stateDir string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, err
	}
	logger.Info("recovery manager initialized", "state_dir", stateDir)
	return &Manager{stateDir: stateDir, log: logger}, nil
}

func (m *Manager) checkpointPath(sessionID string) string {
	return filepath.Join(m.stateDir, sessionID+".checkpoint.json")
}

// SaveCheckpoint atomically writes state for sessionID: write to a temp
// file, then rename over the final path, so a crash mid-write never leaves
// a corrupt checkpoint in place.
func (m *Manager) SaveCheckpoint(sessionID string, state json.RawMessage) error {
	checkpoint := sindri.Checkpoint{
		SessionID: sessionID,
		Timestamp: time.Now(),
		State:     state,
	}
	payload, err := json.Marshal(checkpoint)
	if err != nil {
		return err
	}

	finalPath := m.checkpointPath(sessionID)
	tempPath := strings.TrimSuffix(finalPath, ".json") + ".tmp"
	if err := os.WriteFile(tempPath, payload, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		return err
	}
	m.log.Debug("checkpoint saved", "session_id", sessionID)
	return nil
}

// HasCheckpoint reports whether sessionID has a recoverable checkpoint.
func (m *Manager) HasCheckpoint(sessionID string) bool {
	_, err := os.Stat(m.checkpointPath(sessionID))
	return err == nil
}

// LoadCheckpoint returns the saved state for sessionID, or
// sindri.ErrNoCheckpoint if none exists.
func (m *Manager) LoadCheckpoint(sessionID string) (json.RawMessage, error) {
	raw, err := os.ReadFile(m.checkpointPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			m.log.Warn("checkpoint not found", "session_id", sessionID)
			return nil, sindri.ErrNoCheckpoint
		}
		return nil, err
	}
	var checkpoint sindri.Checkpoint
	if err := json.Unmarshal(raw, &checkpoint); err != nil {
		m.log.Error("checkpoint load failed", "session_id", sessionID, "error", err)
		return nil, err
	}
	m.log.Info("checkpoint loaded", "session_id", sessionID, "saved_at", checkpoint.Timestamp)
	return checkpoint.State, nil
}

// ClearCheckpoint removes the checkpoint for sessionID, if any.
func (m *Manager) ClearCheckpoint(sessionID string) error {
	err := os.Remove(m.checkpointPath(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if err == nil {
		m.log.Debug("checkpoint cleared", "session_id", sessionID)
	}
	return nil
}

// RecoverableSession summarizes one checkpoint for listing.
type RecoverableSession struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ListRecoverableSessions returns every checkpoint in the state directory,
// most recently saved first.
func (m *Manager) ListRecoverableSessions() ([]RecoverableSession, error) {
	entries, err := filepath.Glob(filepath.Join(m.stateDir, "*.checkpoint.json"))
	if err != nil {
		return nil, err
	}

	var sessions []RecoverableSession
	for _, path := range entries {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var checkpoint sindri.Checkpoint
		if err := json.Unmarshal(raw, &checkpoint); err != nil {
			m.log.Warn("checkpoint parse failed", "path", path, "error", err)
			continue
		}
		sessions = append(sessions, RecoverableSession{SessionID: checkpoint.SessionID, Timestamp: checkpoint.Timestamp})
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Timestamp.After(sessions[j].Timestamp) })
	return sessions, nil
}

// CleanupOldCheckpoints keeps only the keep most recent checkpoints,
// deleting the rest. Pass 0 to use maxAge instead: any checkpoint older
// than maxAge is removed regardless of count.
func (m *Manager) CleanupOldCheckpoints(keep int, maxAge time.Duration) error {
	if keep > 0 {
		sessions, err := m.ListRecoverableSessions() // already sorted newest-first
		if err != nil {
			return err
		}
		if len(sessions) <= keep {
			return nil
		}
		toDelete := sessions[keep:]
		for _, s := range toDelete {
			if err := os.Remove(m.checkpointPath(s.SessionID)); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
		m.log.Info("old checkpoints removed", "count", len(toDelete), "kept", keep)
		return nil
	}

	if maxAge > 0 {
		cutoff := time.Now().Add(-maxAge)
		entries, err := filepath.Glob(filepath.Join(m.stateDir, "*.checkpoint.json"))
		if err != nil {
			return err
		}
		removed := 0
		for _, path := range entries {
			raw, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			var checkpoint sindri.Checkpoint
			if err := json.Unmarshal(raw, &checkpoint); err != nil {
				continue
			}
			if checkpoint.Timestamp.Before(cutoff) {
				if err := os.Remove(path); err == nil {
					removed++
				}
			}
		}
		if removed > 0 {
			m.log.Info("old checkpoints removed", "count", removed, "max_age", maxAge)
		}
	}
	return nil
}
