// Package integration exercises the full pipeline: storage, index, retrieval,
// context assembly, and generation through the HTTP API.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/asanoha/kotae/internal/config"
	"github.com/asanoha/kotae/internal/generate"
	"github.com/asanoha/kotae/internal/models"
	"github.com/asanoha/kotae/internal/qa"
	"github.com/asanoha/kotae/internal/samples"
	"github.com/asanoha/kotae/internal/server"
	"github.com/asanoha/kotae/internal/storage"
)

func TestIntegration_AskOverSampleCorpus(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{DatabasePath: filepath.Join(dir, "db.sqlite")},
	}
	config.ApplyDefaults(cfg)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := samples.Load(ctx, store); err != nil {
		t.Fatal(err)
	}

	engine := qa.NewEngine(store, generate.NewStub(), cfg.Retrieval)
	if _, err := engine.RebuildIndex(ctx); err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(server.NewServer(engine, store, cfg, zap.NewNop()).Router())
	defer ts.Close()

	// Retrieval ranks the on-topic sample first.
	body, _ := json.Marshal(models.SearchQuery{Query: "types of machine learning"})
	resp, err := http.Post(ts.URL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	var searchOut models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchOut); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(searchOut.Results) == 0 {
		t.Fatal("expected results for on-topic query")
	}
	if got := searchOut.Results[0].DocumentID; got != "sample:ml-intro" {
		t.Errorf("top result = %s", got)
	}
	if searchOut.Results[0].Score <= 0.2 {
		t.Errorf("top score = %f", searchOut.Results[0].Score)
	}
	for _, r := range searchOut.Results {
		if r.DocumentID == "sample:python-history" {
			t.Error("off-topic document must not rank for an ML query")
		}
	}

	// Asking produces a persisted answer grounded in the same documents.
	body, _ = json.Marshal(models.AskRequest{Question: "What are the types of machine learning?"})
	resp, err = http.Post(ts.URL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("ask status = %d", resp.StatusCode)
	}
	var record models.AnswerRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		t.Fatal(err)
	}
	if record.Answer == "" || record.Backend != generate.BackendStub {
		t.Errorf("record = %+v", record)
	}
	if len(record.DocumentsUsed) == 0 || record.DocumentsUsed[0] != "sample:ml-intro" {
		t.Errorf("documents_used = %v", record.DocumentsUsed)
	}

	stored, err := store.GetAnswer(ctx, record.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Question != record.Question {
		t.Errorf("stored question = %q", stored.Question)
	}
}
