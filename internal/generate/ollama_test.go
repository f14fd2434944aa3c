package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/asanoha/kotae/internal/models"
)

func testContext() *models.Context {
	return &models.Context{Parts: []models.ContextPart{
		{DocumentID: "1", Title: "Intro to ML", Excerpt: "There are three types of machine learning."},
	}}
}

func TestOllama_Generate(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		gotPrompt = req.Prompt
		if req.Stream {
			t.Error("streaming must be disabled")
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "  Three types.  ", Done: true})
	}))
	defer srv.Close()

	g := NewOllama(OllamaConfig{BaseURL: srv.URL, Model: "test-model"})
	answer, err := g.Generate(context.Background(), "what are the types?", testContext())
	if err != nil {
		t.Fatal(err)
	}
	if answer != "Three types." {
		t.Errorf("answer = %q", answer)
	}
	if !strings.Contains(gotPrompt, "[Document: Intro to ML]") {
		t.Errorf("prompt must embed the document context: %q", gotPrompt)
	}
	if !strings.Contains(gotPrompt, "what are the types?") {
		t.Errorf("prompt must embed the question: %q", gotPrompt)
	}
}

func TestOllama_EmptyContextSkipsBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called for an empty context")
	}))
	defer srv.Close()

	g := NewOllama(OllamaConfig{BaseURL: srv.URL})
	answer, err := g.Generate(context.Background(), "anything", &models.Context{})
	if err != nil {
		t.Fatal(err)
	}
	if answer != NoDocumentsAnswer {
		t.Errorf("answer = %q", answer)
	}
}

func TestOllama_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release // never responds within the timeout
	}))
	defer srv.Close()
	defer close(release)

	g := NewOllama(OllamaConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := g.Generate(context.Background(), "question", testContext())
	if !errors.Is(err, ErrGenerationTimeout) {
		t.Fatalf("expected ErrGenerationTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("call took %s, the timeout should have fired at 50ms", elapsed)
	}
}

func TestOllama_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewOllama(OllamaConfig{BaseURL: srv.URL})
	_, err := g.Generate(context.Background(), "question", testContext())
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
}

func TestOllama_Unreachable(t *testing.T) {
	// A closed server gives a connection error, not a timeout.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	g := NewOllama(OllamaConfig{BaseURL: srv.URL})
	_, err := g.Generate(context.Background(), "question", testContext())
	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
}

func TestOllama_Name(t *testing.T) {
	g := NewOllama(OllamaConfig{Model: "llama3.2"})
	if got := g.Name(); got != "ollama/llama3.2" {
		t.Errorf("Name() = %q", got)
	}
}
