// Package index builds and queries the TF-IDF lexical index over the document
// corpus. An Index is an immutable snapshot: it is built from a corpus listing
// in one pass and never updated in place, so any number of readers may rank
// against it without coordination while a replacement is built off to the side.
package index

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/asanoha/kotae/internal/models"
	"github.com/asanoha/kotae/pkg/utils"
)

// ErrInvalidQuery is returned when a query normalizes to no usable terms
// (empty, punctuation-only, or nothing but stopwords).
var ErrInvalidQuery = errors.New("query contains no indexable terms")

// docMeta is the per-document metadata captured at build time. The index
// copies what it needs out of the corpus snapshot and holds no reference to
// storage, so later document mutations cannot skew an existing index.
type docMeta struct {
	ID      string
	Title   string
	Preview string
}

// Index is a term-weighted vector space over one corpus snapshot.
// Vectors are L2-normalized so cosine similarity reduces to a dot product.
type Index struct {
	vocabulary map[string]int // term -> dense position
	idf        []float64      // per-position inverse document frequency
	docs       []docMeta      // corpus insertion order
	vectors    []float64      // dense arena, document i at [i*dim, (i+1)*dim)
	dim        int
	tokenizer  *Tokenizer
	builtAt    time.Time
}

// Build constructs an index from the corpus snapshot. Document order is
// preserved and used as the ranking tie-breaker. previewChars bounds the
// stored content previews (0 keeps full content).
//
// An empty corpus produces a valid index with an empty vocabulary; a document
// whose body has no usable terms gets a zero vector and never matches.
func Build(docs []*models.Document, previewChars int) *Index {
	tok := NewTokenizer()

	// First pass: document frequencies.
	df := make(map[string]int)
	docTokens := make([][]string, len(docs))
	for i, doc := range docs {
		tokens := tok.Tokenize(doc.Content)
		docTokens[i] = tokens
		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	// Stable vocabulary: sorted terms so identical corpora always produce
	// identical term positions.
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	idx := &Index{
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
		docs:       make([]docMeta, len(docs)),
		dim:        len(terms),
		tokenizer:  tok,
		builtAt:    time.Now(),
	}

	// Smoothed idf: log((1+N)/(1+df)) + 1. Keeps every term's weight positive
	// and defined even when a term appears in all documents.
	n := float64(len(docs))
	for i, term := range terms {
		idx.vocabulary[term] = i
		idx.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	// Second pass: weighted, normalized document vectors in one arena.
	idx.vectors = make([]float64, len(docs)*idx.dim)
	for i, doc := range docs {
		idx.docs[i] = docMeta{
			ID:      doc.ID,
			Title:   doc.Title,
			Preview: doc.Preview(previewChars),
		}
		vec := idx.vector(i)
		total := len(docTokens[i])
		if total == 0 {
			continue
		}
		for _, t := range docTokens[i] {
			pos := idx.vocabulary[t]
			vec[pos] += 1 / float64(total) // term frequency
		}
		for pos := range vec {
			vec[pos] *= idx.idf[pos]
		}
		utils.NormalizeL2(vec)
	}

	return idx
}

// vector returns document i's slice of the arena.
func (idx *Index) vector(i int) []float64 {
	return idx.vectors[i*idx.dim : (i+1)*idx.dim]
}

// Size returns the number of indexed documents.
func (idx *Index) Size() int {
	return len(idx.docs)
}

// VocabularySize returns the number of distinct indexed terms.
func (idx *Index) VocabularySize() int {
	return idx.dim
}

// BuiltAt returns when the index snapshot was built.
func (idx *Index) BuiltAt() time.Time {
	return idx.builtAt
}

// Rank projects the query into the index's vector space and returns up to
// topK documents ordered by descending cosine similarity. The vocabulary is
// frozen: query terms unseen at build time contribute zero weight. Documents
// with zero similarity are excluded entirely. Ties are broken by ascending
// corpus insertion order, so repeated queries against the same index return
// identical results.
func (idx *Index) Rank(query string, topK int) ([]*models.RankedResult, error) {
	tokens := idx.tokenizer.Tokenize(query)
	if len(tokens) == 0 {
		return nil, ErrInvalidQuery
	}
	if topK <= 0 || idx.Size() == 0 {
		return nil, nil
	}

	qvec := make([]float64, idx.dim)
	known := 0
	for _, t := range tokens {
		if pos, ok := idx.vocabulary[t]; ok {
			qvec[pos] += 1 / float64(len(tokens))
			known++
		}
	}
	if known == 0 {
		// Valid query, but every term is outside the frozen vocabulary.
		return nil, nil
	}
	for pos := range qvec {
		qvec[pos] *= idx.idf[pos]
	}
	utils.NormalizeL2(qvec)

	type scored struct {
		position int
		score    float64
	}
	scores := make([]scored, 0, idx.Size())
	for i := range idx.docs {
		s := utils.Dot(qvec, idx.vector(i))
		if s <= 0 {
			continue
		}
		// Unit vectors with non-negative weights: clamp float fuzz above 1.
		scores = append(scores, scored{position: i, score: math.Min(1, s)})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].position < scores[j].position
	})

	if topK > len(scores) {
		topK = len(scores)
	}
	results := make([]*models.RankedResult, topK)
	for i := 0; i < topK; i++ {
		meta := idx.docs[scores[i].position]
		results[i] = &models.RankedResult{
			DocumentID: meta.ID,
			Title:      meta.Title,
			Score:      scores[i].score,
			Rank:       i + 1,
			Preview:    meta.Preview,
		}
	}
	return results, nil
}
