// Package generate provides answer generation from a question and an
// assembled document context. Two interchangeable implementations exist: a
// deterministic offline stub and an Ollama-backed generator. The variant is
// selected at configuration time; neither substitutes for the other on its
// own.
package generate

import (
	"context"
	"errors"

	"github.com/asanoha/kotae/internal/models"
)

// Backend identifiers accepted in configuration.
const (
	BackendStub   = "stub"
	BackendOllama = "ollama"
)

// NoDocumentsAnswer is returned by every generator when the context is empty.
// Keeping it here means the "nothing found" behavior lives in one place
// instead of being duplicated by each caller.
const NoDocumentsAnswer = "No relevant documents found to answer this question."

var (
	// ErrGenerationTimeout reports that the generation backend did not
	// respond within the configured timeout.
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrGenerationUnavailable reports that the generation backend is
	// unreachable or returned a failure.
	ErrGenerationUnavailable = errors.New("generation backend unavailable")
)

// Generator produces an answer to a question grounded in an assembled
// document context.
type Generator interface {
	// Generate returns the answer text. docCtx may be empty; implementations
	// respond with NoDocumentsAnswer rather than failing.
	Generate(ctx context.Context, question string, docCtx *models.Context) (string, error)

	// Name identifies the backend for answer provenance records.
	Name() string
}
