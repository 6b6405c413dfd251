package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sajadtroy/lachu/internal/lachu/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "lachu-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp db file: %v", err)
	}
	f.Close()

	s, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_AppliesAllMigrations(t *testing.T) {
	s := newTestStore(t)

	v, err := s.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 2 {
		t.Errorf("schema version: got %d, want 2", v)
	}

	for _, table := range []string{"chat_history", "matrix_sync_state"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestNew_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	first, err := store.New(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	first.Close()

	second, err := store.New(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer second.Close()

	var applied int
	if err := second.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != 2 {
		t.Errorf("expected each migration recorded once, got %d rows", applied)
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestHistoryMessageCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.HistoryMessageCount(ctx)
	if err != nil {
		t.Fatalf("HistoryMessageCount: %v", err)
	}
	if n != 0 {
		t.Fatalf("fresh database: got %d rows, want 0", n)
	}

	_, err = s.DB().Exec(`
		INSERT INTO chat_history (id, server_id, user_id, role, content, created_at)
		VALUES ('a', '!room:example.org', '@alice:example.org', 'user', 'hi', '2026-10-15T10:00:00Z')`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	n, err = s.HistoryMessageCount(ctx)
	if err != nil {
		t.Fatalf("HistoryMessageCount: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d rows, want 1", n)
	}
}

func TestChatHistory_RejectsUnknownRole(t *testing.T) {
	s := newTestStore(t)
	_, err := s.DB().Exec(`
		INSERT INTO chat_history (id, server_id, user_id, role, content, created_at)
		VALUES ('b', '!room:example.org', '@alice:example.org', 'tool', 'x', '2026-10-15T10:00:00Z')`)
	if err == nil {
		t.Fatal("expected CHECK constraint violation for role 'tool'")
	}
}
