// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/asanoha/kotae/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT,
		content TEXT NOT NULL,
		tags TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

	CREATE TABLE IF NOT EXISTS answers (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		document_ids TEXT,
		backend TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_answers_created_at ON answers(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateDocument inserts a document.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	tagsJSON, err := json.Marshal(doc.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, content, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Content, string(tagsJSON), doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, tags, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	)
	doc, err := scanDocument(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return doc, err
}

// UpdateDocument updates an existing document.
func (s *SQLiteStorage) UpdateDocument(ctx context.Context, doc *models.Document) error {
	tagsJSON, err := json.Marshal(doc.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	doc.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET title = ?, content = ?, tags = ?, updated_at = ?
		 WHERE id = ?`,
		doc.Title, doc.Content, string(tagsJSON), doc.UpdatedAt, doc.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, ErrNotFound)
	}
	return nil
}

// UpsertDocument inserts a document or replaces an existing one with the same ID.
// Used by the drop-directory watcher where re-ingesting a file must update in place.
func (s *SQLiteStorage) UpsertDocument(ctx context.Context, doc *models.Document) error {
	tagsJSON, err := json.Marshal(doc.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, content, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, content=excluded.content,
			tags=excluded.tags, updated_at=excluded.updated_at`,
		doc.ID, doc.Title, doc.Content, string(tagsJSON), doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

// DeleteDocument removes a document by ID.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListDocuments returns documents with offset and limit, newest first.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, tags, created_at, updated_at
		 FROM documents ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// ListAllDocuments returns the full corpus in insertion (rowid) order. The
// index builder depends on this ordering for deterministic tie-breaking.
func (s *SQLiteStorage) ListAllDocuments(ctx context.Context) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, tags, created_at, updated_at
		 FROM documents ORDER BY rowid`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDocuments(rows)
}

func collectDocuments(rows *sql.Rows) ([]*models.Document, error) {
	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(scan func(dest ...any) error) (*models.Document, error) {
	var doc models.Document
	var tagsJSON string
	if err := scan(&doc.ID, &doc.Title, &doc.Content, &tagsJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &doc.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	return &doc, nil
}

// CreateAnswer inserts an answer record.
func (s *SQLiteStorage) CreateAnswer(ctx context.Context, rec *models.AnswerRecord) error {
	idsJSON, err := json.Marshal(rec.DocumentsUsed)
	if err != nil {
		return fmt.Errorf("failed to marshal document ids: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO answers (id, question, answer, document_ids, backend, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Question, rec.Answer, string(idsJSON), rec.Backend, rec.CreatedAt,
	)
	return err
}

// GetAnswer returns an answer record by ID.
func (s *SQLiteStorage) GetAnswer(ctx context.Context, id string) (*models.AnswerRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, question, answer, document_ids, backend, created_at
		 FROM answers WHERE id = ?`, id,
	)
	rec, err := scanAnswer(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("answer %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// ListAnswers returns answer records with offset and limit, newest first.
func (s *SQLiteStorage) ListAnswers(ctx context.Context, offset, limit int) ([]*models.AnswerRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, document_ids, backend, created_at
		 FROM answers ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.AnswerRecord
	for rows.Next() {
		rec, err := scanAnswer(rows.Scan)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanAnswer(scan func(dest ...any) error) (*models.AnswerRecord, error) {
	var rec models.AnswerRecord
	var idsJSON string
	if err := scan(&rec.ID, &rec.Question, &rec.Answer, &idsJSON, &rec.Backend, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if idsJSON != "" {
		if err := json.Unmarshal([]byte(idsJSON), &rec.DocumentsUsed); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document ids: %w", err)
		}
	}
	return &rec, nil
}

// CountDocuments returns the number of stored documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// CountAnswers returns the number of stored answer records.
func (s *SQLiteStorage) CountAnswers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM answers`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
