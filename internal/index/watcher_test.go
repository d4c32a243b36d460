package index

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/gittodo/internal/storage"
	"github.com/starford/gittodo/internal/todo"
)

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

func watcherTestEnv(t *testing.T) (string, *todo.Document, *DB) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := todo.Open(store, "todo.md")
	if err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, "todo.md"), doc, testDB(t)
}

func TestWatcher_ExternalEditTriggersCallback(t *testing.T) {
	path, doc, db := watcherTestEnv(t)
	if _, err := Sync(db, doc, quietLogger()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go Watch(ctx, db, doc, path, quietLogger(), func() { calls.Add(1) })
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(path, []byte("## Home\n* edited by hand\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "expected callback after external edit")

	n, _ := db.Count()
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestWatcher_SyncedWriteDoesNotTriggerCallback(t *testing.T) {
	path, doc, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go Watch(ctx, db, doc, path, quietLogger(), func() { calls.Add(1) })
	time.Sleep(100 * time.Millisecond)

	if err := doc.Append("Home", "fix sink"); err != nil {
		t.Fatal(err)
	}
	if _, err := Sync(db, doc, quietLogger()); err != nil {
		t.Fatal(err)
	}

	time.Sleep(500 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callback fired %d times for an already synced write", got)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	path, doc, db := watcherTestEnv(t)
	_, _ = Sync(db, doc, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go Watch(ctx, db, doc, path, quietLogger(), func() { calls.Add(1) })
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(filepath.Dir(path), "other.md"), []byte("x"), 0o644)

	time.Sleep(500 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callback fired %d times for an unrelated file", got)
	}
}
