package models

import "time"

// AnswerRecord is the immutable result of one ask request: the question, the
// generated answer, and the provenance of the context that produced it.
// DocumentsUsed lists the documents that contributed to the context, whether
// or not the generator cited them in its output.
type AnswerRecord struct {
	ID            string    `json:"id" db:"id"`
	Question      string    `json:"question" db:"question"`
	Answer        string    `json:"answer" db:"answer"`
	DocumentsUsed []string  `json:"documents_used" db:"document_ids"`
	Backend       string    `json:"backend" db:"backend"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// AskRequest is the request body for the ask endpoint.
type AskRequest struct {
	Question string `json:"question"`
}
