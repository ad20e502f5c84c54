// Package reranker scores retrieved chunks against the question with a
// cross-encoder, which reads query and chunk together instead of comparing
// precomputed vectors. It only reorders the handful of candidates that
// survive similarity filtering, so the extra model cost stays bounded.
package reranker

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates a rejected reranker configuration.
	ErrInvalidConfig = errors.New("invalid reranker config")
	// ErrModelUnavailable indicates the configured cross-encoder cannot be
	// reached. When reranking is enabled this is fatal at startup; a
	// silent fall back to vector order would hide a quality regression.
	ErrModelUnavailable = errors.New("reranker model unavailable")
	// ErrRerankFailed indicates a scoring call failed.
	ErrRerankFailed = errors.New("rerank failed")
)

// Result assigns a cross-encoder score to one input document.
type Result struct {
	// Index points into the documents slice passed to Rerank.
	Index int
	// Score is the cross-encoder relevance score. Scale depends on the
	// model and is not comparable to cosine similarity.
	Score float32
}

// Reranker reorders candidate documents by relevance to a query.
type Reranker interface {
	// Rerank scores every document against the query and returns one
	// Result per document, sorted by descending score. No documents are
	// added or removed.
	Rerank(ctx context.Context, query string, documents []string) ([]Result, error)
	// ModelID identifies the cross-encoder model.
	ModelID() string
	Close() error
}

// Config selects the cross-encoder.
type Config struct {
	// Enabled turns reranking on. Off by default: for documentation
	// corpora with descriptive headings, vector order is usually good
	// enough and reranking adds a model round trip per question.
	Enabled bool `koanf:"enabled"`
	// Model is the cross-encoder model ID, e.g. BAAI/bge-reranker-base.
	// The value "lexical" selects the built-in term-overlap reranker,
	// which needs no server.
	Model string `koanf:"model"`
	// BaseURL is the text-embeddings-inference rerank server.
	BaseURL string `koanf:"base_url"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8081"
	}
}

// New builds the configured reranker. Returns nil when reranking is
// disabled; an enabled configuration whose model cannot be reached is an
// error, never a silent downgrade.
func New(cfg Config) (Reranker, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Model == ModelLexical {
		return NewLexicalReranker(), nil
	}
	return NewTEIReranker(cfg)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model is required when reranking is enabled", ErrInvalidConfig)
	}
	if c.Model != ModelLexical && c.BaseURL == "" {
		return fmt.Errorf("%w: base_url is required when reranking is enabled", ErrInvalidConfig)
	}
	return nil
}
