// Package config provides configuration loading for grounder.
package config

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/grounder/internal/chunker"
	"github.com/fyrsmithlabs/grounder/internal/corpus"
	"github.com/fyrsmithlabs/grounder/internal/embeddings"
	"github.com/fyrsmithlabs/grounder/internal/indexer"
	"github.com/fyrsmithlabs/grounder/internal/logging"
	"github.com/fyrsmithlabs/grounder/internal/retriever"
	"github.com/fyrsmithlabs/grounder/internal/telemetry"
	"github.com/fyrsmithlabs/grounder/internal/vectorstore"
)

// ErrInvalidConfig indicates a rejected top-level configuration.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full grounder configuration.
type Config struct {
	Logging   logging.Config   `koanf:"logging"`
	Telemetry telemetry.Config `koanf:"telemetry"`

	// Tokenizer is the token encoding shared by chunking and budgets,
	// e.g. "cl100k_base". It is recorded in the index manifest; queries
	// against an index built with a different encoding still work, only
	// token budgets shift.
	Tokenizer string `koanf:"tokenizer"`

	Embedding embeddings.Config  `koanf:"embedding"`
	Chunking  chunker.Config     `koanf:"chunking"`
	Index     vectorstore.Config `koanf:"index"`
	Build     indexer.Config     `koanf:"build"`
	Retrieval retriever.Config   `koanf:"retrieval"`

	// Sources lists the documentation sets to index.
	Sources []corpus.Source `koanf:"sources"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	cfg.Logging.ApplyDefaults()
	cfg.Telemetry.ApplyDefaults()
	cfg.Embedding.ApplyDefaults()
	cfg.Index.ApplyDefaults()
	cfg.Build.ApplyDefaults()
	cfg.Retrieval.ApplyDefaults()

	if cfg.Tokenizer == "" {
		cfg.Tokenizer = "cl100k_base"
	}
	if cfg.Chunking.MaxTokens == 0 {
		cfg.Chunking.MaxTokens = 800
	}
	if cfg.Chunking.TargetTokens == 0 {
		cfg.Chunking.TargetTokens = 400
	}
	if cfg.Chunking.OverlapTokens == 0 {
		cfg.Chunking.OverlapTokens = 50
	}
}

// Validate checks the whole configuration. Sources may be empty; querying
// an existing index needs none.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	if err := c.Chunking.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	if err := c.Build.Validate(); err != nil {
		return err
	}
	if err := c.Retrieval.Validate(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.Sources))
	for i, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("%w: sources[%d] has no id", ErrInvalidConfig, i)
		}
		if src.Path == "" {
			return fmt.Errorf("%w: source %q has no path", ErrInvalidConfig, src.ID)
		}
		if _, dup := seen[src.ID]; dup {
			return fmt.Errorf("%w: duplicate source id %q", ErrInvalidConfig, src.ID)
		}
		seen[src.ID] = struct{}{}
	}
	return nil
}
