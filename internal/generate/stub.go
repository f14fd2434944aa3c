package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/asanoha/kotae/internal/models"
)

// Stub is a deterministic offline generator. It performs no I/O and always
// produces the same answer for the same inputs, which makes it usable both in
// tests and as the serving variant when no generation backend is configured.
type Stub struct{}

// NewStub returns the offline generator.
func NewStub() *Stub {
	return &Stub{}
}

// Generate returns a templated answer naming the consulted documents.
func (s *Stub) Generate(_ context.Context, question string, docCtx *models.Context) (string, error) {
	if docCtx.Empty() {
		return NoDocumentsAnswer, nil
	}
	titles := make([]string, len(docCtx.Parts))
	for i, p := range docCtx.Parts {
		titles[i] = p.Title
	}
	return fmt.Sprintf(
		"Based on the provided documents (%s), the material above relates to the question %q. "+
			"This is a simulated response from the offline generator.",
		strings.Join(titles, ", "), question,
	), nil
}

// Name identifies the stub backend.
func (s *Stub) Name() string {
	return BackendStub
}
