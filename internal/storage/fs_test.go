package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("## Home\n* fix sink\n")
	if err := s.Write("todo.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("todo.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestReadMissing(t *testing.T) {
	s := tempRoot(t)
	_, err := s.Read("missing.md")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestTouch(t *testing.T) {
	s := tempRoot(t)
	if err := s.Touch("sub/todo.md"); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	got, err := s.Read("sub/todo.md")
	if err != nil || len(got) != 0 {
		t.Fatalf("Read after touch = %q, %v", got, err)
	}

	_ = s.Write("sub/todo.md", []byte("keep"))
	if err := s.Touch("sub/todo.md"); err != nil {
		t.Fatalf("second Touch: %v", err)
	}
	got, _ = s.Read("sub/todo.md")
	if string(got) != "keep" {
		t.Errorf("Touch clobbered content: %q", got)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("todo.md", []byte("original"))
	if err := s.Write("todo.md", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("todo.md")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}

	entries, _ := os.ReadDir(s.root)
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("leftover files: %v", names)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	_ = os.WriteFile(f, nil, 0o644)
	if _, err := NewFS(f); err == nil {
		t.Error("expected error when root is a file")
	}
}
