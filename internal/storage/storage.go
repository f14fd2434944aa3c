// Package storage defines the persistence interface for documents and answers.
package storage

import (
	"context"
	"errors"

	"github.com/asanoha/kotae/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines document and answer persistence operations.
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error
	UpsertDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	// ListAllDocuments returns the full corpus in insertion order, the order
	// the index builder relies on for deterministic tie-breaking.
	ListAllDocuments(ctx context.Context) ([]*models.Document, error)

	// Answer operations
	CreateAnswer(ctx context.Context, rec *models.AnswerRecord) error
	GetAnswer(ctx context.Context, id string) (*models.AnswerRecord, error)
	ListAnswers(ctx context.Context, offset, limit int) ([]*models.AnswerRecord, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountAnswers(ctx context.Context) (int64, error)

	Close() error
}
