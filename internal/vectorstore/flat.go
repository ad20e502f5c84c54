package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/viant/vec/search"
)

// FlatIndex is a brute-force exact-search index over float32 vectors.
//
// Vectors and chunk metadata live in parallel slices in insertion order.
// Search scores every stored vector (SIMD-accelerated cosine), so results
// carry no approximation error and tie order is reproducible.
type FlatIndex struct {
	path string
	dim  int

	mu      sync.RWMutex
	entries []Entry
	// magnitudes flags zero vectors, which have no cosine similarity.
	magnitudes []float32
}

// NewFlatIndex creates an empty flat index for vectors of dimension dim,
// persisted under path.
func NewFlatIndex(path string, dim int) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return &FlatIndex{path: path, dim: dim}, nil
}

// Add appends entries in order. Vectors must match the index dimension.
func (f *FlatIndex) Add(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return ErrEmptyEntries
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for i, e := range entries {
		if len(e.Vector) != f.dim {
			return fmt.Errorf("%w: entry %d has dimension %d, index expects %d",
				ErrDimensionMismatch, i, len(e.Vector), f.dim)
		}
		f.entries = append(f.entries, e)
		f.magnitudes = append(f.magnitudes, search.Float32s(e.Vector).Magnitude())
	}
	return nil
}

// Search returns up to k hits by descending cosine similarity. Equal scores
// keep insertion order.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			ErrDimensionMismatch, len(query), f.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	q := search.Float32s(query)
	qMag := q.Magnitude()

	hits := make([]Hit, 0, len(f.entries))
	for i, e := range f.entries {
		var score float32
		// A zero vector has no direction; its similarity stays 0 instead
		// of dividing by a zero magnitude.
		if qMag != 0 && f.magnitudes[i] != 0 {
			score = 1 - q.CosineDistance(e.Vector)
		}
		hits = append(hits, Hit{Chunk: e.Chunk, Score: score})
	}

	// SliceStable preserves insertion order among equal scores.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of indexed chunks.
func (f *FlatIndex) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// Persist writes the snapshot artifacts (vectors, metadata, manifest) to
// the index path.
func (f *FlatIndex) Persist(manifest Manifest) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	manifest.Dimension = f.dim
	manifest.ChunkCount = len(f.entries)
	return writeSnapshot(f.path, f.entries, manifest)
}

// Close releases nothing; the flat index is plain memory.
func (f *FlatIndex) Close() error { return nil }

// OpenFlatIndex loads a persisted flat index and validates the snapshot
// against itself (counts) and against the active embedder (model identifier
// and dimensionality). Any inconsistency is fatal: the process must refuse
// to serve queries over an index it cannot trust.
func OpenFlatIndex(path, modelID string, dim int) (*Handle, error) {
	manifest, entries, err := readSnapshot(path)
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

	idx := &FlatIndex{path: path, dim: manifest.Dimension}
	// An empty corpus is a valid index; Search just finds nothing.
	if len(entries) > 0 {
		if err := idx.Add(context.Background(), entries); err != nil {
			return nil, err
		}
	}
	return &Handle{Index: idx, Manifest: manifest}, nil
}
