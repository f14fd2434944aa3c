package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/asanoha/kotae/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStorage_DocumentCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := &models.Document{
		ID:      "doc1",
		Title:   "Title",
		Content: "Content",
		Tags:    []string{"a", "b"},
	}
	if err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Title" || got.Content != "Content" {
		t.Errorf("got %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "a" {
		t.Errorf("tags round-trip failed: %v", got.Tags)
	}

	doc.Title = "Updated"
	if err := store.UpdateDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetDocument(ctx, "doc1")
	if got.Title != "Updated" {
		t.Errorf("expected Updated, got %s", got.Title)
	}

	if err := store.DeleteDocument(ctx, "doc1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetDocument(ctx, "doc1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetDocument(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDocument: expected ErrNotFound, got %v", err)
	}
	if err := store.UpdateDocument(ctx, &models.Document{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateDocument: expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteDocument(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteDocument: expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetAnswer(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAnswer: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_Upsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := &models.Document{ID: "file:abc", Title: "v1", Content: "first"}
	if err := store.UpsertDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	doc2 := &models.Document{ID: "file:abc", Title: "v2", Content: "second"}
	if err := store.UpsertDocument(ctx, doc2); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetDocument(ctx, "file:abc")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "v2" || got.Content != "second" {
		t.Errorf("upsert did not replace: %+v", got)
	}
	n, err := store.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 document, got %d", n)
	}
}

func TestSQLiteStorage_ListAllPreservesInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		doc := &models.Document{
			ID:      fmt.Sprintf("doc%d", i),
			Title:   fmt.Sprintf("Doc %d", i),
			Content: "content",
		}
		if err := store.CreateDocument(ctx, doc); err != nil {
			t.Fatal(err)
		}
	}

	docs, err := store.ListAllDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 5 {
		t.Fatalf("expected 5, got %d", len(docs))
	}
	for i, d := range docs {
		if want := fmt.Sprintf("doc%d", i); d.ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, d.ID)
		}
	}
}

func TestSQLiteStorage_Answers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &models.AnswerRecord{
		ID:            "ans1",
		Question:      "what is Go",
		Answer:        "a programming language",
		DocumentsUsed: []string{"doc1", "doc2"},
		Backend:       "stub",
	}
	if err := store.CreateAnswer(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetAnswer(ctx, "ans1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Question != rec.Question || got.Answer != rec.Answer || got.Backend != "stub" {
		t.Errorf("got %+v", got)
	}
	if len(got.DocumentsUsed) != 2 || got.DocumentsUsed[0] != "doc1" {
		t.Errorf("document ids round-trip failed: %v", got.DocumentsUsed)
	}

	list, err := store.ListAnswers(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 answer, got %d", len(list))
	}
	n, err := store.CountAnswers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected count 1, got %d", n)
	}
}
