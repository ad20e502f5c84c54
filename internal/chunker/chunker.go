// Package chunker splits loaded documents into overlapping, bounded-size
// chunks, the unit of indexing and retrieval.
//
// Chunking is windowed in token space: a section that fits under the max
// bound stays whole, anything longer is cut into target-sized windows where
// each window begins target-overlap tokens after the previous one. Because
// the tokenizer codec reconstructs text exactly from token pieces, adjacent
// chunks share an overlap region of exactly OverlapTokens tokens.
//
// Chunking is best-effort per section: an empty or malformed section yields
// a skip record, never an error, so one bad section cannot abort a document.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/grounder/internal/corpus"
	"github.com/fyrsmithlabs/grounder/internal/tokenizer"
)

// ErrInvalidConfig indicates invalid chunking configuration.
var ErrInvalidConfig = errors.New("invalid chunker configuration")

// Config holds the chunking window bounds.
// Required ordering: MaxTokens >= TargetTokens > OverlapTokens >= 0.
type Config struct {
	// MaxTokens is the hard upper bound on chunk size. A section at or
	// under this bound becomes a single chunk.
	MaxTokens int `koanf:"max_tokens" json:"max_tokens"`

	// TargetTokens is the window length used when splitting.
	TargetTokens int `koanf:"target_tokens" json:"target_tokens"`

	// OverlapTokens is the shared region between adjacent windows.
	OverlapTokens int `koanf:"overlap_tokens" json:"overlap_tokens"`
}

// Validate validates the window bounds.
func (c Config) Validate() error {
	if c.MaxTokens <= 0 || c.TargetTokens <= 0 {
		return fmt.Errorf("%w: max_tokens and target_tokens must be positive", ErrInvalidConfig)
	}
	if c.OverlapTokens < 0 {
		return fmt.Errorf("%w: overlap_tokens must not be negative", ErrInvalidConfig)
	}
	if c.MaxTokens < c.TargetTokens {
		return fmt.Errorf("%w: max_tokens (%d) must be >= target_tokens (%d)", ErrInvalidConfig, c.MaxTokens, c.TargetTokens)
	}
	if c.TargetTokens <= c.OverlapTokens {
		return fmt.Errorf("%w: target_tokens (%d) must be > overlap_tokens (%d)", ErrInvalidConfig, c.TargetTokens, c.OverlapTokens)
	}
	return nil
}

// Chunk is a bounded slice of a source document. Chunks are created once at
// index-build time and never mutated; a re-index rebuilds them wholesale.
type Chunk struct {
	// ID is the stable chunk identifier, assigned by the build pipeline
	// as source ID plus sequential index.
	ID string `json:"chunk_id"`

	SourceID   string `json:"source"`
	SourceName string `json:"source_name"`

	// HeadingPath is the hierarchical heading context, most specific last.
	HeadingPath []string `json:"heading_path"`

	// URL deep-links into the published documentation for this chunk's
	// section.
	URL string `json:"url"`

	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

// Skip records a section that produced no chunks and why.
type Skip struct {
	Path    string
	Heading string
	Reason  string
}

// Chunker splits documents into chunks using a token codec.
type Chunker struct {
	cfg   Config
	codec tokenizer.Codec
}

// New creates a Chunker. The codec must be the same one used for budget
// accounting or token counts will disagree across the pipeline.
func New(cfg Config, codec tokenizer.Codec) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if codec == nil {
		return nil, fmt.Errorf("%w: codec is required", ErrInvalidConfig)
	}
	return &Chunker{cfg: cfg, codec: codec}, nil
}

// Split chunks every section of doc. Sections that produce no chunks are
// returned as skips.
func (c *Chunker) Split(doc corpus.Document) ([]Chunk, []Skip) {
	var chunks []Chunk
	var skips []Skip

	for _, section := range doc.Sections {
		sectionChunks, reason := c.splitSection(doc, section)
		if reason != "" {
			skips = append(skips, Skip{
				Path:    doc.Path,
				Heading: strings.Join(section.HeadingPath, " > "),
				Reason:  reason,
			})
			continue
		}
		chunks = append(chunks, sectionChunks...)
	}

	return chunks, skips
}

// splitSection returns the section's chunks, or a non-empty skip reason.
func (c *Chunker) splitSection(doc corpus.Document, section corpus.Section) ([]Chunk, string) {
	if strings.TrimSpace(section.Text) == "" {
		return nil, "empty section"
	}

	pieces := c.codec.Split(section.Text)
	total := len(pieces)
	if total == 0 {
		return nil, "no tokens"
	}

	if total <= c.cfg.MaxTokens {
		return []Chunk{c.newChunk(doc, section, section.Text, total)}, ""
	}

	// A single fenced code block cannot be split without destroying the
	// example; emit it whole even though it exceeds the bound.
	if isUnsplittable(section.Text) {
		return []Chunk{c.newChunk(doc, section, section.Text, total)}, ""
	}

	step := c.cfg.TargetTokens - c.cfg.OverlapTokens
	var chunks []Chunk
	for start := 0; ; start += step {
		end := start + c.cfg.TargetTokens
		if end > total {
			end = total
		}
		text := tokenizer.Join(pieces[start:end])
		chunks = append(chunks, c.newChunk(doc, section, text, end-start))
		if end == total {
			break
		}
	}
	return chunks, ""
}

func (c *Chunker) newChunk(doc corpus.Document, section corpus.Section, text string, tokens int) Chunk {
	path := make([]string, len(section.HeadingPath))
	copy(path, section.HeadingPath)
	return Chunk{
		SourceID:    doc.SourceID,
		SourceName:  doc.SourceName,
		HeadingPath: path,
		URL:         doc.SectionURL(section),
		Text:        text,
		TokenCount:  tokens,
	}
}

// isUnsplittable reports whether text is one fenced code block.
func isUnsplittable(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "```") &&
		strings.HasSuffix(trimmed, "```") &&
		strings.Count(trimmed, "```") == 2
}
