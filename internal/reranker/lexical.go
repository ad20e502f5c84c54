package reranker

import (
	"context"
	"sort"
	"strings"
)

// ModelLexical selects the built-in term-overlap reranker instead of a
// cross-encoder server.
const ModelLexical = "lexical"

// LexicalReranker scores documents by the fraction of query terms they
// contain. It needs no external model, which makes it useful for air-gapped
// deployments and as a deterministic stand-in during development. Scores are
// in [0, 1] and ties keep the input order.
type LexicalReranker struct{}

// NewLexicalReranker builds the term-overlap reranker.
func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{}
}

func (r *LexicalReranker) Rerank(ctx context.Context, query string, documents []string) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	queryTerms := tokenize(query)
	results := make([]Result, len(documents))
	for i, doc := range documents {
		results[i] = Result{Index: i, Score: termOverlap(queryTerms, tokenize(doc))}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

func (r *LexicalReranker) ModelID() string { return ModelLexical }

func (r *LexicalReranker) Close() error { return nil }

// termOverlap returns the fraction of query terms present in the document.
func termOverlap(queryTerms, docTerms []string) float32 {
	if len(queryTerms) == 0 {
		return 0
	}
	present := make(map[string]struct{}, len(docTerms))
	for _, t := range docTerms {
		present[t] = struct{}{}
	}
	matched := 0
	for _, t := range queryTerms {
		if _, ok := present[t]; ok {
			matched++
		}
	}
	return float32(matched) / float32(len(queryTerms))
}

// tokenize lowercases text, splits on non-alphanumeric runes, and drops
// stopwords and tokens shorter than three characters.
func tokenize(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isAlphanumeric(r)
	})
	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len(token) > 2 && !stopwords[token] {
			filtered = append(filtered, token)
		}
	}
	return filtered
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_'
}

var stopwords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true,
	"from": true, "was": true, "are": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "does": true, "did": true,
	"will": true, "would": true, "can": true, "could": true, "should": true,
	"this": true, "that": true, "these": true, "those": true, "what": true,
	"how": true, "when": true, "where": true, "why": true, "which": true,
	"you": true, "your": true, "not": true, "all": true, "its": true,
}
