package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/asanoha/kotae/internal/storage"
)

func TestFileID(t *testing.T) {
	a := FileID("/tmp/notes.txt")
	b := FileID("/tmp/notes.txt")
	c := FileID("/tmp/other.txt")
	if a != b {
		t.Error("same path must give same id")
	}
	if a == c {
		t.Error("different paths must give different ids")
	}
	if !strings.HasPrefix(a, "file:") {
		t.Errorf("id = %q", a)
	}
}

func TestIngestor_IngestAndRemove(t *testing.T) {
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	in := NewIngestor(store, zap.NewNop())
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "gophers.md")
	if err := os.WriteFile(path, []byte("Gophers live in burrows.\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := in.IngestFile(ctx, path); err != nil {
		t.Fatal(err)
	}
	doc, err := store.GetDocument(ctx, FileID(path))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "gophers" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.Content != "Gophers live in burrows." {
		t.Errorf("content = %q", doc.Content)
	}

	// Re-ingesting an edited file updates in place.
	if err := os.WriteFile(path, []byte("Gophers dig tunnels.\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := in.IngestFile(ctx, path); err != nil {
		t.Fatal(err)
	}
	doc, _ = store.GetDocument(ctx, FileID(path))
	if doc.Content != "Gophers dig tunnels." {
		t.Errorf("content after edit = %q", doc.Content)
	}
	n, _ := store.CountDocuments(ctx)
	if n != 1 {
		t.Errorf("expected 1 document, got %d", n)
	}

	if err := in.RemoveFile(ctx, path); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetDocument(ctx, FileID(path)); err == nil {
		t.Error("document should be gone")
	}

	// Removing a file that was never ingested is not an error.
	if err := in.RemoveFile(ctx, filepath.Join(dir, "never.md")); err != nil {
		t.Errorf("remove of unknown file: %v", err)
	}
}

func TestIngestor_SkipsEmptyFile(t *testing.T) {
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	in := NewIngestor(store, zap.NewNop())
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("   \n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := in.IngestFile(ctx, path); err != nil {
		t.Fatal(err)
	}
	n, _ := store.CountDocuments(ctx)
	if n != 0 {
		t.Errorf("empty file must not become a document, count = %d", n)
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path string
		exts []string
		want bool
	}{
		{"a.txt", []string{".txt", ".md"}, true},
		{"a.TXT", []string{".txt"}, true},
		{"a.pdf", []string{".txt", ".md"}, false},
		{"a.md", []string{"md"}, true},
		{"a.anything", nil, true},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.exts); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %t", tt.path, tt.exts, got)
		}
	}
}
