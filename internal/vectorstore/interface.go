// Package vectorstore stores chunk vectors and answers nearest-neighbor
// queries by cosine similarity.
//
// The default backend is a flat in-process index: brute-force exact search
// over every stored vector, append-only at build time, persisted as three
// artifacts (vectors, chunk metadata, manifest) that are produced together
// and loaded together. Corpus sizes here are in the low thousands of chunks,
// so exact search is both simpler and more reproducible than an approximate
// index. An embedded chromem-go backend is available behind the same
// interface.
//
// Corpus changes require a full rebuild; there is no delete or update API.
package vectorstore

import (
	"context"
	"errors"
	"time"

	"github.com/fyrsmithlabs/grounder/internal/chunker"
)

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid vectorstore configuration")

	// ErrDimensionMismatch is returned when a vector's dimensionality
	// does not match the index.
	ErrDimensionMismatch = errors.New("vector dimensionality mismatch")

	// ErrModelMismatch is returned when a persisted index was built with
	// a different embedding model than the one configured.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrSnapshotCorrupt indicates inconsistent persisted artifacts
	// (missing files, count mismatches, truncated vectors).
	ErrSnapshotCorrupt = errors.New("index snapshot corrupt")

	// ErrEmptyEntries indicates empty or nil entries.
	ErrEmptyEntries = errors.New("empty or nil entries")
)

// Entry pairs a chunk with its embedding vector inside the index.
type Entry struct {
	Chunk  chunker.Chunk
	Vector []float32
}

// Hit is one search result: a stored chunk and its cosine similarity to the
// query vector.
type Hit struct {
	Chunk chunker.Chunk
	Score float32
}

// Index is the vector index contract.
//
// Build-time use is single-writer: Add appends entries in order, Persist
// writes the snapshot. Query-time use is read-only and safe for concurrent
// Search calls.
type Index interface {
	// Add appends entries to the index in insertion order.
	Add(ctx context.Context, entries []Entry) error

	// Search returns up to k hits ordered by descending similarity.
	// Ties break by chunk insertion order, so repeated searches against
	// the same index are deterministic.
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)

	// Count returns the number of indexed chunks.
	Count() int

	// Persist writes the snapshot artifacts, including the manifest.
	Persist(manifest Manifest) error

	// Close releases backend resources.
	Close() error
}

// Manifest records how a persisted index was built. It is validated on load:
// a model or dimensionality mismatch with the active embedder makes the
// snapshot unusable.
type Manifest struct {
	BuildID          string         `json:"build_id"`
	EmbeddingModelID string         `json:"embedding_model_id"`
	Tokenizer        string         `json:"tokenizer"`
	Dimension        int            `json:"vector_dimensionality"`
	ChunkCount       int            `json:"chunk_count"`
	BuildConfig      chunker.Config `json:"build_config"`
	BuildTimestamp   time.Time      `json:"build_timestamp"`
	Stats            BuildStats     `json:"stats"`
}

// BuildStats carries corpus statistics for operators; not validated on load.
type BuildStats struct {
	SourceChunks      map[string]int `json:"source_chunks"`
	TotalTokens       int            `json:"total_tokens"`
	AvgTokensPerChunk int            `json:"avg_tokens_per_chunk"`
}

// Handle bundles a loaded, immutable index with its manifest. A rebuild
// produces a fresh handle that the retriever swaps in atomically.
type Handle struct {
	Index    Index
	Manifest Manifest
}
