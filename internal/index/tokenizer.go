package index

import (
	"regexp"
	"strings"
)

// tokenPattern matches runs of Unicode letters, allowing internal apostrophes
// ("don't", "l'été"). Digits and punctuation are dropped.
var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// Tokenizer normalizes text into index terms: lower-cased letter runs with a
// fixed English stopword list removed. The same policy is applied to document
// bodies at build time and to queries at rank time, so scores are comparable.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// NewTokenizer returns a tokenizer with the default stopword list.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{stopwords: defaultStopwords()}
}

// Tokenize returns the normalized terms of text, in order, stopwords removed.
// Returns nil when the text contains no usable terms.
func (t *Tokenizer) Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, tok := range raw {
		if _, isStop := t.stopwords[tok]; isStop {
			continue
		}
		out = append(out, tok)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
		"to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was",
		"were", "be", "been", "being", "it", "this", "that", "these", "those",
		"from", "up", "down", "over", "under", "again", "further", "than",
		"so", "such", "into", "about", "between", "through", "during",
		"before", "after", "above", "below", "out", "off", "own", "same",
		"too", "very", "can", "will", "just", "don", "should", "now", "what",
		"which", "who", "whom", "how", "when", "where", "why", "do", "does",
		"did", "have", "has", "had", "not", "no", "nor", "only", "both",
		"each", "few", "more", "most", "other", "some", "any", "all", "there",
		"here", "i", "me", "my", "we", "our", "you", "your", "he", "him",
		"his", "she", "her", "they", "them", "their", "its",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
