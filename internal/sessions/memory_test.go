package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

func TestMemoryStoreAppendTurnIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sess := &sindri.Session{ID: "s1", TaskID: "t1", AgentName: "huginn", Status: sindri.SessionActive, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.Create(ctx, sess); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := store.AppendTurn(ctx, "s1", &sindri.Turn{Role: sindri.RoleUser, Content: "hi", CreatedAt: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}

	history, err := store.GetHistory(ctx, "s1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(history))
	}
	for i, turn := range history {
		if int(turn.ID) != i+1 {
			t.Errorf("turn %d has id %d, expected monotonically increasing ids", i, turn.ID)
		}
	}
}

func TestMemoryStoreGetUnknownSession(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), "missing"); err != sindri.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemoryStoreCleanupStaleMarksOldSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	old := &sindri.Session{ID: "old", Status: sindri.SessionActive, CreatedAt: time.Now(), UpdatedAt: time.Now().Add(-time.Hour)}
	fresh := &sindri.Session{ID: "fresh", Status: sindri.SessionActive, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	store.Create(ctx, old)
	store.Create(ctx, fresh)

	count, err := store.CleanupStale(ctx, 60)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stale session, got %d", count)
	}
	got, _ := store.Get(ctx, "old")
	if got.Status != sindri.SessionStale {
		t.Errorf("expected old session to be marked stale, got %s", got.Status)
	}
	got, _ = store.Get(ctx, "fresh")
	if got.Status != sindri.SessionActive {
		t.Errorf("expected fresh session to remain active, got %s", got.Status)
	}
}

func TestMemoryStoreListFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Create(ctx, &sindri.Session{ID: "a", Status: sindri.SessionActive, CreatedAt: time.Now(), UpdatedAt: time.Now()})
	store.Create(ctx, &sindri.Session{ID: "b", Status: sindri.SessionClosed, CreatedAt: time.Now(), UpdatedAt: time.Now()})

	out, err := store.List(ctx, ListOptions{Status: sindri.SessionActive})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != "a" {
		t.Fatalf("expected only session a, got %+v", out)
	}
}
