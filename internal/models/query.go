package models

import "fmt"

// SearchQuery represents a retrieval request against the lexical index.
type SearchQuery struct {
	Query    string  `json:"query"`
	TopK     int     `json:"top_k,omitempty"`
	MinScore float64 `json:"min_score,omitempty"` // results below this score are dropped
}

// Validate ensures the query has valid fields and sets defaults.
// Returns an error if the query text is empty; otherwise normalizes top_k.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.TopK <= 0 {
		q.TopK = 3
	}
	if q.TopK > 100 {
		q.TopK = 100
	}
	if q.MinScore < 0 {
		q.MinScore = 0
	}
	return nil
}

// RankedResult is a single retrieval hit: a document reference with its
// cosine similarity score and 1-based rank position.
type RankedResult struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
	Preview    string  `json:"content_preview,omitempty"`
}

// SearchResponse is the response for a retrieval request.
type SearchResponse struct {
	Query          string          `json:"query"`
	Results        []*RankedResult `json:"results"`
	TotalDocuments int             `json:"total_documents"`
	QueryTime      int64           `json:"query_time_ms"`
}
