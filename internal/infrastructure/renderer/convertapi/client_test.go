package convertapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/slidedeck-ingest/internal/core/domain"
)

func stageDeck(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("deck-bytes"), 0o600); err != nil {
		t.Fatalf("write deck: %v", err)
	}
	return path
}

func TestRenderSavesPagesInResponseOrder(t *testing.T) {
	var gotPath, gotAuth, gotFilename, gotUpload string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		file, header, err := r.FormFile("File")
		if err != nil {
			t.Fatalf("FormFile() error = %v", err)
		}
		raw, _ := io.ReadAll(file)
		gotFilename = header.Filename
		gotUpload = string(raw)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"ConversionCost": 1,
			"Files": []map[string]any{
				{"FileName": "deck-2.jpg", "FileExt": "jpg", "FileData": base64.StdEncoding.EncodeToString([]byte("page-2"))},
				{"FileName": "deck-10.jpg", "FileExt": "jpg", "FileData": base64.StdEncoding.EncodeToString([]byte("page-10"))},
				{"FileName": "deck-1.jpg", "FileExt": "jpg", "FileData": base64.StdEncoding.EncodeToString([]byte("page-1"))},
			},
		})
	}))
	defer server.Close()

	deck := stageDeck(t, "deck.pptx")
	outDir := filepath.Join(t.TempDir(), "pages")

	client := New(server.URL, "secret")
	images, err := client.Render(context.Background(), deck, outDir)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if gotPath != "/convert/pptx/to/jpg" {
		t.Fatalf("unexpected convert path %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotFilename != "deck.pptx" || gotUpload != "deck-bytes" {
		t.Fatalf("unexpected upload %q=%q", gotFilename, gotUpload)
	}
	if len(images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(images))
	}

	wantOrder := []string{"deck-2.jpg", "deck-10.jpg", "deck-1.jpg"}
	for i, img := range images {
		if filepath.Base(img.Path) != wantOrder[i] {
			t.Fatalf("image %d = %s, want %s", i, filepath.Base(img.Path), wantOrder[i])
		}
		if img.CreatedAt.IsZero() {
			t.Fatalf("expected creation time for %s", img.Path)
		}
		if filepath.Dir(img.Path) != outDir {
			t.Fatalf("expected image under %s, got %s", outDir, img.Path)
		}
	}
	data, err := os.ReadFile(filepath.Join(outDir, "deck-1.jpg"))
	if err != nil || string(data) != "page-1" {
		t.Fatalf("expected decoded page-1, got %q (%v)", data, err)
	}
}

func TestRenderKeepsResponseOrderWhenTimestampsTie(t *testing.T) {
	const pages = 12
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		files := make([]map[string]any, 0, pages)
		for i := 1; i <= pages; i++ {
			files = append(files, map[string]any{
				"FileName": fmt.Sprintf("deck-%d.jpg", i),
				"FileData": base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("page-%d", i))),
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"Files": files})
	}))
	defer server.Close()

	images, err := New(server.URL, "").Render(context.Background(), stageDeck(t, "deck.pptx"), t.TempDir())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(images) != pages {
		t.Fatalf("expected %d images, got %d", pages, len(images))
	}

	// Same ordering the reconciler applies: stable by creation time.
	sorted := slices.Clone(images)
	slices.SortStableFunc(sorted, func(a, b domain.RenderedImage) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	for i, img := range sorted {
		want := fmt.Sprintf("deck-%d.jpg", i+1)
		if filepath.Base(img.Path) != want {
			t.Fatalf("position %d holds %s, want %s", i+1, filepath.Base(img.Path), want)
		}
		if i > 0 && img.CreatedAt.Before(sorted[i-1].CreatedAt) {
			t.Fatalf("creation time decreases at %s", want)
		}
	}
}

func TestRenderRejectsDuplicatePageNames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := base64.StdEncoding.EncodeToString([]byte("p"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Files": []map[string]any{
				{"FileName": "deck.jpg", "FileData": page},
				{"FileName": "deck.jpg", "FileData": page},
			},
		})
	}))
	defer server.Close()

	_, err := New(server.URL, "").Render(context.Background(), stageDeck(t, "deck.pptx"), t.TempDir())
	if !domain.IsKind(err, domain.ErrRender) {
		t.Fatalf("expected ErrRender for duplicate page names, got %v", err)
	}
}

func TestRenderDownloadsStoredFiles(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/d/") {
			_, _ = w.Write([]byte("downloaded"))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Files": []map[string]any{{"FileName": "deck.jpg", "Url": server.URL + "/d/abc"}},
		})
	}))
	defer server.Close()

	outDir := t.TempDir()
	images, err := New(server.URL, "").Render(context.Background(), stageDeck(t, "deck.pdf"), outDir)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(images))
	}
	data, _ := os.ReadFile(images[0].Path)
	if string(data) != "downloaded" {
		t.Fatalf("unexpected downloaded content %q", data)
	}
}

func TestRenderMapsServiceFailureToRenderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"Code":4000,"Message":"Parameter validation error."}`, http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := New(server.URL, "secret").Render(context.Background(), stageDeck(t, "deck.pptx"), t.TempDir())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrRender) {
		t.Fatalf("expected ErrRender, got %v", err)
	}
	if !strings.Contains(err.Error(), "Parameter validation error") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestRenderTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewWithOptions(server.URL, "secret", Options{RenderTimeout: 20 * time.Millisecond})
	_, err := client.Render(context.Background(), stageDeck(t, "deck.pptx"), t.TempDir())
	if !domain.IsKind(err, domain.ErrRenderTimeout) {
		t.Fatalf("expected ErrRenderTimeout, got %v", err)
	}
}

func TestRenderIgnoresForeignFilesInOutputDir(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Files": []map[string]any{{"FileName": "deck-1.jpg", "FileData": base64.StdEncoding.EncodeToString([]byte("p"))}},
		})
	}))
	defer server.Close()

	outDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(outDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write foreign file: %v", err)
	}
	images, err := New(server.URL, "").Render(context.Background(), stageDeck(t, "deck.pptx"), outDir)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("expected only the rendered jpg, got %+v", images)
	}
}
