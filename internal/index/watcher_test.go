package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/gtdspace/internal/metadata"
	"github.com/starford/gtdspace/internal/storage"
)

// watcherTestEnv sets up a space dir, storage, DB and indexer for watcher tests.
func watcherTestEnv(t *testing.T) (string, *DB, *Indexer) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	return dir, db, NewIndexer(db, store, metadata.NewRegistry(), quietLogger())
}

// startWatch runs the watcher until the test ends and waits for it to return.
func startWatch(t *testing.T, ix *Indexer, root string, cb EventCallback) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ix.Watch(ctx, root, cb)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	dir, db, ix := watcherTestEnv(t)

	var mu sync.Mutex
	var events []Event
	startWatch(t, ix, dir, func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	_ = os.MkdirAll(filepath.Join(dir, "Goals"), 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(dir, "Goals", "New.md"), []byte("# New\n[!singleselect:goal-status:waiting]\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("Goals/New.md")
		return cs != ""
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e.Op == OpCreated && e.Path == "Goals/New.md" {
				return true
			}
		}
		return false
	}, "expected a created event for Goals/New.md")
}

func TestWatcher_IgnoresHiddenFiles(t *testing.T) {
	dir, db, ix := watcherTestEnv(t)
	startWatch(t, ix, dir, nil)

	_ = os.WriteFile(filepath.Join(dir, ".scratch.md"), []byte("# Hidden"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "visible.md"), []byte("# Visible"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("visible.md")
		return cs != ""
	}, "visible file not indexed")
	if cs, _ := db.GetChecksum(".scratch.md"); cs != "" {
		t.Error("hidden file indexed")
	}
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	dir, db, ix := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(dir, "del.md"), []byte("# Delete Me"), 0o644)
	if err := ix.Sync(); err != nil {
		t.Fatal(err)
	}
	if cs, _ := db.GetChecksum("del.md"); cs == "" {
		t.Fatal("precondition: file should be indexed")
	}

	startWatch(t, ix, dir, nil)
	_ = os.Remove(filepath.Join(dir, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("del.md")
		return cs == ""
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	dir, db, ix := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(dir, "old.md"), []byte("# Rename"), 0o644)
	if err := ix.Sync(); err != nil {
		t.Fatal(err)
	}

	startWatch(t, ix, dir, nil)
	_ = os.Rename(filepath.Join(dir, "old.md"), filepath.Join(dir, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("old.md")
		newCS, _ := db.GetChecksum("renamed.md")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}
