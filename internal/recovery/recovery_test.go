package recovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoadCheckpointRoundTrip(t *testing.T) {
	m, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	state := json.RawMessage(`{"task":"build","iterations":3}`)
	if err := m.SaveCheckpoint("sess-1", state); err != nil {
		t.Fatal(err)
	}
	if !m.HasCheckpoint("sess-1") {
		t.Fatal("expected checkpoint to exist")
	}
	got, err := m.LoadCheckpoint("sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(state) {
		t.Errorf("got %s, want %s", got, state)
	}
}

func TestSaveCheckpointLeavesNoTempFileOnSuccess(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SaveCheckpoint("sess-1", json.RawMessage(`{}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sess-1.checkpoint.tmp")); !os.IsNotExist(err) {
		t.Error("expected temp file to be renamed away, not left behind")
	}
}

func TestLoadCheckpointMissingReturnsErrNoCheckpoint(t *testing.T) {
	m, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.LoadCheckpoint("missing"); err == nil {
		t.Fatal("expected error for missing checkpoint")
	}
}

func TestClearCheckpointRemovesFile(t *testing.T) {
	m, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	m.SaveCheckpoint("sess-1", json.RawMessage(`{}`))
	if err := m.ClearCheckpoint("sess-1"); err != nil {
		t.Fatal(err)
	}
	if m.HasCheckpoint("sess-1") {
		t.Fatal("expected checkpoint to be removed")
	}
}

func TestListRecoverableSessionsSortedNewestFirst(t *testing.T) {
	m, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	m.SaveCheckpoint("older", json.RawMessage(`{}`))
	time.Sleep(5 * time.Millisecond)
	m.SaveCheckpoint("newer", json.RawMessage(`{}`))

	sessions, err := m.ListRecoverableSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].SessionID != "newer" {
		t.Errorf("expected newer session first, got %s", sessions[0].SessionID)
	}
}

func TestCleanupOldCheckpointsKeepsOnlyN(t *testing.T) {
	m, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b", "c"} {
		m.SaveCheckpoint(id, json.RawMessage(`{}`))
		time.Sleep(2 * time.Millisecond)
	}
	if err := m.CleanupOldCheckpoints(1, 0); err != nil {
		t.Fatal(err)
	}
	sessions, _ := m.ListRecoverableSessions()
	if len(sessions) != 1 {
		t.Fatalf("expected 1 remaining checkpoint, got %d", len(sessions))
	}
	if sessions[0].SessionID != "c" {
		t.Errorf("expected most recent (c) to survive, got %s", sessions[0].SessionID)
	}
}
