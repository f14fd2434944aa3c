// Package models defines core data structures for documents, queries, and answers.
package models

import "time"

// Document represents a stored document with metadata. The retrieval pipeline
// treats documents as immutable snapshots; only the storage layer mutates them.
type Document struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	Tags      []string  `json:"tags,omitempty" db:"tags"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DocumentInput is the input for creating or updating a document.
type DocumentInput struct {
	ID      string   `json:"id,omitempty"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// Preview returns a truncated preview of the document content.
func (d *Document) Preview(length int) string {
	if length <= 0 || len(d.Content) <= length {
		return d.Content
	}
	return d.Content[:length] + "..."
}
