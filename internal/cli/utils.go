// Package cli provides output formatting for the Kotae command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/asanoha/kotae/internal/models"
)

// OutputFormat selects how results are rendered.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteSearchResults writes retrieval results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (corpus: %d documents)\n\n",
		len(response.Results), response.QueryTime, response.TotalDocuments)
	for _, r := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", r.Rank, r.Score)
		fmt.Fprintf(w, "ID: %s\n", r.DocumentID)
		if r.Title != "" {
			fmt.Fprintf(w, "Title: %s\n", r.Title)
		}
		if r.Preview != "" {
			fmt.Fprintf(w, "\n%s\n", r.Preview)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteAnswer writes an answer record to w in the given format.
func WriteAnswer(w io.Writer, rec *models.AnswerRecord, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	fmt.Fprintf(w, "\nQ: %s\n\n%s\n", rec.Question, rec.Answer)
	if len(rec.DocumentsUsed) > 0 {
		fmt.Fprintf(w, "\nSources: %s\n", strings.Join(rec.DocumentsUsed, ", "))
	}
	fmt.Fprintf(w, "Backend: %s\n", rec.Backend)
	return nil
}
