package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/fyrsmithlabs/grounder/internal/chunker"
)

// chromemCollection is the single collection holding all indexed chunks.
const chromemCollection = "grounder_chunks"

// headingPathSeparator joins heading path elements inside chromem's flat
// string metadata. Unit separator never occurs in documentation headings.
const headingPathSeparator = "\x1f"

// ChromemIndex stores chunk vectors in an embedded chromem-go database.
//
// chromem persists documents itself (gob files under the index path); only
// the manifest sidecar is written by Persist. Like the flat index it does
// exhaustive exact search, but tie order among equal similarities is
// backend-defined, so the flat index remains the default backend.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	path       string
	dim        int
}

// noEmbedFunc rejects text embedding; all documents and queries arrive with
// precomputed vectors.
func noEmbedFunc(context.Context, string) ([]float32, error) {
	return nil, errors.New("chromem index is vector-only; embed before calling")
}

// NewChromemIndex creates an empty chromem-backed index under path,
// dropping any previous collection: corpus changes are wholesale rebuilds.
func NewChromemIndex(path string, dim int, compress bool) (*ChromemIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}

	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("opening chromem DB: %w", err)
	}

	if db.GetCollection(chromemCollection, noEmbedFunc) != nil {
		if err := db.DeleteCollection(chromemCollection); err != nil {
			return nil, fmt.Errorf("resetting collection: %w", err)
		}
	}
	collection, err := db.GetOrCreateCollection(chromemCollection, nil, noEmbedFunc)
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	return &ChromemIndex{db: db, collection: collection, path: path, dim: dim}, nil
}

// OpenChromemIndex loads a persisted chromem index and validates its
// manifest sidecar against the active embedder.
func OpenChromemIndex(path, modelID string, dim int) (*Handle, error) {
	manifest, err := readManifest(path)
	if err != nil {
		return nil, err
	}

	if manifest.EmbeddingModelID != modelID {
		return nil, fmt.Errorf("%w: index built with %q, embedder is %q",
			ErrModelMismatch, manifest.EmbeddingModelID, modelID)
	}
	if manifest.Dimension != dim {
		return nil, fmt.Errorf("%w: index has dimension %d, embedder produces %d",
			ErrDimensionMismatch, manifest.Dimension, dim)
	}

	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening chromem DB: %w", err)
	}
	collection := db.GetCollection(chromemCollection, noEmbedFunc)
	if collection == nil {
		return nil, fmt.Errorf("%w: collection %q missing", ErrSnapshotCorrupt, chromemCollection)
	}
	if collection.Count() != manifest.ChunkCount {
		return nil, fmt.Errorf("%w: manifest says %d chunks, collection has %d",
			ErrSnapshotCorrupt, manifest.ChunkCount, collection.Count())
	}

	idx := &ChromemIndex{db: db, collection: collection, path: path, dim: dim}
	return &Handle{Index: idx, Manifest: manifest}, nil
}

// Add appends entries with precomputed embeddings.
func (c *ChromemIndex) Add(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return ErrEmptyEntries
	}

	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		if len(e.Vector) != c.dim {
			return fmt.Errorf("%w: entry %d has dimension %d, index expects %d",
				ErrDimensionMismatch, i, len(e.Vector), c.dim)
		}
		docs[i] = chromem.Document{
			ID:        e.Chunk.ID,
			Content:   e.Chunk.Text,
			Embedding: e.Vector,
			Metadata: map[string]string{
				"source":       e.Chunk.SourceID,
				"source_name":  e.Chunk.SourceName,
				"heading_path": strings.Join(e.Chunk.HeadingPath, headingPathSeparator),
				"url":          e.Chunk.URL,
				"token_count":  strconv.Itoa(e.Chunk.TokenCount),
			},
		}
	}

	if err := c.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}
	return nil
}

// Search returns up to k hits by descending similarity.
func (c *ChromemIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != c.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			ErrDimensionMismatch, len(query), c.dim)
	}
	count := c.collection.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := c.collection.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		tokenCount, _ := strconv.Atoi(r.Metadata["token_count"])
		var headingPath []string
		if hp := r.Metadata["heading_path"]; hp != "" {
			headingPath = strings.Split(hp, headingPathSeparator)
		}
		hits[i] = Hit{
			Chunk: chunker.Chunk{
				ID:          r.ID,
				SourceID:    r.Metadata["source"],
				SourceName:  r.Metadata["source_name"],
				HeadingPath: headingPath,
				URL:         r.Metadata["url"],
				Text:        r.Content,
				TokenCount:  tokenCount,
			},
			Score: r.Similarity,
		}
	}
	return hits, nil
}

// Count returns the number of indexed chunks.
func (c *ChromemIndex) Count() int { return c.collection.Count() }

// Persist writes the manifest sidecar; chromem persists documents on Add.
func (c *ChromemIndex) Persist(manifest Manifest) error {
	manifest.Dimension = c.dim
	manifest.ChunkCount = c.collection.Count()
	return writeManifest(c.path, manifest)
}

// Close releases nothing; chromem holds no descriptors between operations.
func (c *ChromemIndex) Close() error { return nil }
