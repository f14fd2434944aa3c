package samples

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/asanoha/kotae/internal/storage"
)

func TestLoad(t *testing.T) {
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	n, err := Load(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(corpus) {
		t.Errorf("loaded %d, want %d", n, len(corpus))
	}

	// Loading twice upserts, never duplicates.
	if _, err := Load(ctx, store); err != nil {
		t.Fatal(err)
	}
	count, err := store.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != int64(len(corpus)) {
		t.Errorf("count after reload = %d", count)
	}

	doc, err := store.GetDocument(ctx, "sample:ml-intro")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title == "" || doc.Content == "" {
		t.Errorf("sample document incomplete: %+v", doc)
	}
}
