package localfs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/slidedeck-ingest/internal/core/ports"
)

// Workspace hands out per-upload scratch directories under root, keyed by
// {root}/{userID}/{presentationID}.
type Workspace struct {
	root string
}

func NewWorkspace(root string) (*Workspace, error) {
	if root == "" {
		root = "workdir"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workdir root: %w", err)
	}
	return &Workspace{root: root}, nil
}

func (w *Workspace) Acquire(userID, presentationID string) (ports.WorkingArea, error) {
	if !validSegment(userID) || !validSegment(presentationID) {
		return nil, fmt.Errorf("invalid working area key %q/%q", userID, presentationID)
	}
	userDir := filepath.Join(w.root, userID)
	dir := filepath.Join(userDir, presentationID)
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return nil, fmt.Errorf("create user dir: %w", err)
	}
	// Mkdir fails when the directory exists, so two uploads never share one.
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create working area: %w", err)
	}
	return &WorkingArea{dir: dir, userDir: userDir}, nil
}

// WorkingArea is a directory exclusively owned by one upload.
type WorkingArea struct {
	dir     string
	userDir string
}

func (a *WorkingArea) Dir() string { return a.dir }

func (a *WorkingArea) Stage(filename string, body io.Reader) (string, error) {
	name := filepath.Base(filename)
	if !validSegment(name) {
		return "", fmt.Errorf("invalid staged filename %q", filename)
	}
	path := filepath.Join(a.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write staged file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close staged file: %w", err)
	}
	return path, nil
}

// Remove deletes the working area and, when empty, its user directory.
func (a *WorkingArea) Remove() error {
	if err := os.RemoveAll(a.dir); err != nil {
		return fmt.Errorf("remove working area: %w", err)
	}
	_ = os.Remove(a.userDir)
	return nil
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
