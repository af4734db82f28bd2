package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPrepareClearsPreviousState(t *testing.T) {
	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	dir, err := m.Prepare("dep-1")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	stale := filepath.Join(dir, "leftover.txt")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	dir2, err := m.Prepare("dep-1")
	if err != nil {
		t.Fatalf("re-prepare: %v", err)
	}
	if dir2 != dir {
		t.Fatalf("expected stable path, got %s then %s", dir, dir2)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("previous attempt's files must be removed")
	}
}

func TestPrepareRequiresIdentifier(t *testing.T) {
	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.Prepare(""); err == nil {
		t.Fatal("expected error for empty identifier")
	}
}

func TestCleanupRefusesOutsideRoot(t *testing.T) {
	root := t.TempDir()
	m, err := New(root)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	outside := t.TempDir()
	if err := m.Cleanup(outside); err == nil {
		t.Fatal("expected refusal for path outside root")
	}
	if err := m.Cleanup(root); err == nil {
		t.Fatal("expected refusal for the root itself")
	}

	dir, err := m.Prepare("dep-1")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := m.Cleanup(dir); err != nil {
		t.Fatalf("cleanup inside root: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("workspace should be removed")
	}
}
