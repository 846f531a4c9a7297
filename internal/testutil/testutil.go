// Package testutil provides shared helpers for tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/othala/internal/ledger"
	"github.com/starford/othala/internal/storage"
)

// TestStore creates a filesystem store rooted in a temp directory.
func TestStore(t *testing.T) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("create test store: %v", err)
	}
	return store
}

// TestLedger opens a throwaway SQLite archive ledger, closed on cleanup.
func TestLedger(t *testing.T) *ledger.DB {
	t.Helper()
	db, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open test ledger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
