package localfs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWorkspaceStageAndRemove(t *testing.T) {
	root := t.TempDir()
	ws, err := NewWorkspace(root)
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}

	area, err := ws.Acquire("user-1", "pres-1")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if area.Dir() != filepath.Join(root, "user-1", "pres-1") {
		t.Fatalf("Dir() = %q", area.Dir())
	}

	path, err := area.Stage("deck.pptx", strings.NewReader("deck"))
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil || string(raw) != "deck" {
		t.Fatalf("staged file = %q, err = %v", raw, err)
	}
	if err := os.MkdirAll(filepath.Join(area.Dir(), "pages"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	if err := area.Remove(); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty workdir root after Remove, found %d entries", len(entries))
	}
}

func TestWorkspaceAcquireIsExclusive(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}

	if _, err := ws.Acquire("user-1", "pres-1"); err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	if _, err := ws.Acquire("user-1", "pres-1"); err == nil {
		t.Fatalf("expected second Acquire of the same key to fail")
	}
}

func TestWorkspaceRemoveKeepsSiblingUploads(t *testing.T) {
	root := t.TempDir()
	ws, err := NewWorkspace(root)
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}

	first, err := ws.Acquire("user-1", "pres-1")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	second, err := ws.Acquire("user-1", "pres-2")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if err := first.Remove(); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(second.Dir()); err != nil {
		t.Fatalf("sibling working area removed: %v", err)
	}
}

func TestWorkspaceRejectsInvalidKeys(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}

	for _, key := range [][2]string{{"", "p"}, {"u", ".."}, {"a/b", "p"}} {
		if _, err := ws.Acquire(key[0], key[1]); err == nil {
			t.Fatalf("expected Acquire(%q, %q) to fail", key[0], key[1])
		}
	}

	area, err := ws.Acquire("u", "p")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if _, err := area.Stage("..", strings.NewReader("x")); err == nil {
		t.Fatalf("expected Stage(\"..\") to fail")
	}
}
