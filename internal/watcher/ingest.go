package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/asanoha/kotae/internal/models"
	"github.com/asanoha/kotae/internal/storage"
)

// FileID derives a stable document id from a file path. The same path always
// maps to the same id, so re-ingesting a modified file updates the existing
// document instead of creating a duplicate.
func FileID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha256.Sum256([]byte(abs))
	return "file:" + hex.EncodeToString(sum[:])
}

// Ingestor turns dropped files into stored documents.
type Ingestor struct {
	store  storage.Storage
	logger *zap.Logger
}

// NewIngestor creates an ingestor writing to the given storage.
func NewIngestor(store storage.Storage, logger *zap.Logger) *Ingestor {
	return &Ingestor{store: store, logger: logger}
}

// IngestFile reads the file and upserts it as a document. The title is the
// file name without its extension; the content is the raw file text.
func (in *Ingestor) IngestFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		in.logger.Debug("skipping empty file", zap.String("path", path))
		return nil
	}

	base := filepath.Base(path)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	now := time.Now()
	doc := &models.Document{
		ID:        FileID(path),
		Title:     title,
		Content:   content,
		Tags:      []string{"watched"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := in.store.UpsertDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to store %s: %w", path, err)
	}
	in.logger.Info("ingested file", zap.String("path", path), zap.String("id", doc.ID))
	return nil
}

// RemoveFile deletes the document derived from the path. A missing document
// is not an error; the file may never have been ingested.
func (in *Ingestor) RemoveFile(ctx context.Context, path string) error {
	id := FileID(path)
	if err := in.store.DeleteDocument(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	in.logger.Info("removed file document", zap.String("path", path), zap.String("id", id))
	return nil
}
