// Package testutil provides shared test helpers for setting up todo files and
// index databases.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/gittodo/internal/index"
	"github.com/starford/gittodo/internal/storage"
	"github.com/starford/gittodo/internal/todo"
)

// TodoFile is the document name used by TestDocument.
const TodoFile = "todo.md"

// TestDB creates a SQLite index in a temporary directory, closed on cleanup.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "gittodo-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDocument creates a todo file holding content in a temporary directory
// and returns the directory and the opened document.
func TestDocument(t *testing.T, content string) (string, *todo.Document) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	if content != "" {
		if err := store.Write(TodoFile, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	doc, err := todo.Open(store, TodoFile)
	if err != nil {
		t.Fatal(err)
	}
	return dir, doc
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
