package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asanoha/kotae/internal/config"
	"github.com/asanoha/kotae/internal/generate"
	"github.com/asanoha/kotae/internal/index"
	"github.com/asanoha/kotae/internal/models"
	"github.com/asanoha/kotae/internal/storage"
)

// ErrEmptyIndex reports that no index has been built yet. Callers can rebuild
// and retry, or surface the condition to the client.
var ErrEmptyIndex = errors.New("no index has been built")

// Engine orchestrates the question-answering pipeline: it ranks documents
// against the active index, assembles a bounded context, and invokes the
// configured generator.
//
// The active index is an immutable snapshot held behind an atomic pointer.
// RebuildIndex constructs a complete replacement off to the side and swaps it
// in with a single store, so concurrent queries always see either the old
// snapshot or the new one, never a partial state.
type Engine struct {
	store     storage.Storage
	generator generate.Generator
	fallback  generate.Generator
	cfg       config.RetrievalConfig
	logger    *zap.Logger

	active atomic.Pointer[index.Index]
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithFallbackGenerator installs a generator used when the primary one fails.
// Without it, generation failures propagate to the caller unchanged.
func WithFallbackGenerator(g generate.Generator) EngineOption {
	return func(e *Engine) {
		e.fallback = g
	}
}

// NewEngine creates a QA engine. No index is active until RebuildIndex runs.
func NewEngine(store storage.Storage, gen generate.Generator, cfg config.RetrievalConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		store:     store,
		generator: gen,
		cfg:       cfg,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RebuildIndex reads the full corpus, builds a fresh index snapshot, and
// atomically replaces the active one. Returns the number of documents
// indexed. On failure the previous snapshot stays active.
func (e *Engine) RebuildIndex(ctx context.Context) (int, error) {
	start := time.Now()

	docs, err := e.store.ListAllDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list documents for indexing: %w", err)
	}

	idx := index.Build(docs, e.cfg.PreviewChars)
	e.active.Store(idx)

	e.logger.Info("index rebuilt",
		zap.Int("documents", idx.Size()),
		zap.Int("vocabulary", idx.VocabularySize()),
		zap.Duration("took", time.Since(start)))
	return idx.Size(), nil
}

// Index returns the active index snapshot, or nil when none has been built.
func (e *Engine) Index() *index.Index {
	return e.active.Load()
}

// FindRelevant ranks the corpus against the query and returns the scored
// results. ErrEmptyIndex is returned when no index has been built yet.
func (e *Engine) FindRelevant(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	idx := e.active.Load()
	if idx == nil {
		return nil, ErrEmptyIndex
	}

	start := time.Now()
	ranked, err := idx.Rank(query.Query, query.TopK)
	if err != nil {
		return nil, err
	}
	ranked = filterByScore(ranked, query.MinScore)

	return &models.SearchResponse{
		Query:          query.Query,
		Results:        ranked,
		TotalDocuments: idx.Size(),
		QueryTime:      time.Since(start).Milliseconds(),
	}, nil
}

// Ask answers a question against the corpus: rank, assemble context,
// generate. The generator runs even when nothing ranked, so "no relevant
// documents" is an answer rather than an error. The returned record carries
// the ids of the documents whose text was actually placed in the context.
//
// No record is produced when generation fails; the caller decides whether
// the failure reaches the client or a retry happens.
func (e *Engine) Ask(ctx context.Context, question string) (*models.AnswerRecord, error) {
	question = strings.TrimSpace(question)

	idx := e.active.Load()
	if idx == nil {
		return nil, ErrEmptyIndex
	}

	ranked, err := idx.Rank(question, e.cfg.TopK)
	if err != nil {
		return nil, err
	}
	ranked = filterByScore(ranked, e.cfg.MinScore)

	docCtx := AssembleContext(ctx, ranked, e.store.GetDocument, e.cfg.MaxContextChars)
	if docCtx.Truncated {
		e.logger.Warn("context truncated to fit budget",
			zap.String("question", question),
			zap.Int("max_chars", e.cfg.MaxContextChars))
	}

	gen := e.generator
	answer, err := gen.Generate(ctx, question, docCtx)
	if err != nil && e.fallback != nil {
		e.logger.Warn("generator failed, falling back",
			zap.String("backend", gen.Name()),
			zap.Error(err))
		gen = e.fallback
		answer, err = gen.Generate(ctx, question, docCtx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	record := &models.AnswerRecord{
		ID:            uuid.New().String(),
		Question:      question,
		Answer:        answer,
		DocumentsUsed: docCtx.DocumentIDs(),
		Backend:       gen.Name(),
		CreatedAt:     time.Now(),
	}

	e.logger.Debug("question answered",
		zap.String("question", question),
		zap.Int("documents_used", len(record.DocumentsUsed)),
		zap.String("backend", record.Backend))
	return record, nil
}

// filterByScore drops results scoring below min. Ranks are already assigned
// in order, so dropping a suffix-by-score keeps the remaining ranks dense.
func filterByScore(ranked []*models.RankedResult, min float64) []*models.RankedResult {
	if min <= 0 {
		return ranked
	}
	kept := ranked[:0]
	for _, r := range ranked {
		if r.Score >= min {
			kept = append(kept, r)
		}
	}
	return kept
}
