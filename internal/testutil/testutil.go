// Package testutil provides shared test helpers for setting up spaces and databases.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/gtdspace/internal/index"
	"github.com/starford/gtdspace/internal/storage"
)

// TestDB creates a temporary SQLite index that is closed when the test ends.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "gtdspace-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSpace creates a temporary space directory with a storage provider.
func TestSpace(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteFiles seeds the space with path -> content pairs.
func WriteFiles(t *testing.T, store storage.Provider, files map[string]string) {
	t.Helper()
	for p, content := range files {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
}
