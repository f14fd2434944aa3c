package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/asanoha/kotae/internal/models"
)

// Default configuration values for the Ollama backend.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 60 * time.Second
)

// answerPrompt instructs the model to answer only from the supplied context.
const answerPrompt = `Answer the question based only on the following context.
If the answer cannot be found in the context, say "I cannot find the answer in the provided documents."

Context:
%s

Question: %s

Answer:`

// OllamaConfig holds configuration for the Ollama generator.
type OllamaConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the generation model to use (default: llama3.2).
	Model string

	// Timeout bounds each generation call (default: 60s).
	Timeout time.Duration
}

// Ollama generates answers through an Ollama server's /api/generate endpoint.
// Every call is bounded by the configured timeout; on expiry the call fails
// with ErrGenerationTimeout rather than holding the serving goroutine.
type Ollama struct {
	client  *http.Client
	baseURL string
	model   string
	timeout time.Duration
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllama creates an Ollama generator.
func NewOllama(cfg OllamaConfig) *Ollama {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Ollama{
		client:  &http.Client{},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// Generate formats the prompt and invokes the model.
func (g *Ollama) Generate(ctx context.Context, question string, docCtx *models.Context) (string, error) {
	if docCtx.Empty() {
		return NoDocumentsAnswer, nil
	}

	prompt := fmt.Sprintf(answerPrompt, docCtx.Text(), question)

	reqBody := generateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: false,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.baseURL+"/api/generate",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("ollama generate after %s: %w", g.timeout, ErrGenerationTimeout)
		}
		return "", fmt.Errorf("ollama generate: %w: %v", ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", fmt.Errorf("ollama status %d: %w", resp.StatusCode, ErrGenerationUnavailable)
		}
		return "", fmt.Errorf("ollama status %d (%s): %w", resp.StatusCode, strings.TrimSpace(string(body)), ErrGenerationUnavailable)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("ollama generate after %s: %w", g.timeout, ErrGenerationTimeout)
		}
		return "", fmt.Errorf("decode response: %w", err)
	}

	return strings.TrimSpace(genResp.Response), nil
}

// Name identifies the backend and model for answer provenance records.
func (g *Ollama) Name() string {
	return BackendOllama + "/" + g.model
}

// Ping validates the backend is reachable by checking the /api/tags endpoint.
// A lightweight connectivity check that does not run inference.
func (g *Ollama) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama ping: %w: %v", ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama ping status %d: %w", resp.StatusCode, ErrGenerationUnavailable)
	}
	return nil
}
