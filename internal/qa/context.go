package qa

import (
	"context"

	"github.com/asanoha/kotae/internal/models"
)

// DocumentLookup resolves a ranked document id to its full record.
// An error means the document is gone (stale id) and is skipped.
type DocumentLookup func(ctx context.Context, id string) (*models.Document, error)

const (
	partHeader    = "[Document: "
	partHeaderEnd = "]\n"
	partSeparator = "\n---\n"
)

// partCost returns the rendered length of one context part.
func partCost(title, excerpt string) int {
	return len(partHeader) + len(title) + len(partHeaderEnd) + len(excerpt)
}

// AssembleContext packs ranked documents into a context bounded by maxChars
// of rendered text. Documents are taken strictly in rank order: the first one
// that would overflow the budget is dropped and packing stops, even if a
// later, smaller document would still fit. The top-ranked document is always
// included; if it alone overflows, its body is truncated to fit and the
// context is marked truncated, so the generator never sees an empty context
// when at least one document was ranked.
//
// Lookup misses are skipped: a ranked id that no longer resolves must not
// fail the whole request.
func AssembleContext(ctx context.Context, ranked []*models.RankedResult, lookup DocumentLookup, maxChars int) *models.Context {
	out := &models.Context{}
	used := 0
	for _, r := range ranked {
		doc, err := lookup(ctx, r.DocumentID)
		if err != nil {
			continue
		}
		excerpt := doc.Content
		cost := partCost(doc.Title, excerpt)
		if len(out.Parts) > 0 {
			if used+len(partSeparator)+cost > maxChars {
				break
			}
			used += len(partSeparator)
		} else if cost > maxChars {
			// Truncate the top document rather than return nothing.
			allowed := maxChars - partCost(doc.Title, "")
			if allowed < 0 {
				allowed = 0
			}
			excerpt = excerpt[:allowed]
			cost = partCost(doc.Title, excerpt)
			out.Truncated = true
		}
		out.Parts = append(out.Parts, models.ContextPart{
			DocumentID: doc.ID,
			Title:      doc.Title,
			Excerpt:    excerpt,
		})
		used += cost
		if out.Truncated {
			break
		}
	}
	return out
}
