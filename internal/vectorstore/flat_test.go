package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/grounder/internal/chunker"
)

func testEntry(id string, vector []float32) Entry {
	return Entry{
		Chunk: chunker.Chunk{
			ID:          id,
			SourceID:    "rust-book",
			SourceName:  "The Rust Book",
			HeadingPath: []string{"Ownership", "Borrowing"},
			URL:         "https://doc.rust-lang.org/book/ch04.html#borrowing",
			Text:        "content of " + id,
			TokenCount:  3,
		},
		Vector: vector,
	}
}

func TestFlatIndexSearchOrdering(t *testing.T) {
	idx, err := NewFlatIndex(t.TempDir(), 3)
	require.NoError(t, err)

	err = idx.Add(context.Background(), []Entry{
		testEntry("far", []float32{0, 1, 0}),
		testEntry("near", []float32{1, 0, 0}),
		testEntry("mid", []float32{0.6, 0.8, 0}),
	})
	require.NoError(t, err)
	require.Equal(t, 3, idx.Count())

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "near", hits[0].Chunk.ID)
	assert.Equal(t, "mid", hits[1].Chunk.ID)
	assert.Equal(t, "far", hits[2].Chunk.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
	assert.InDelta(t, 0.6, hits[1].Score, 1e-5)
	assert.InDelta(t, 0.0, hits[2].Score, 1e-5)
}

func TestFlatIndexTiesKeepInsertionOrder(t *testing.T) {
	idx, err := NewFlatIndex(t.TempDir(), 2)
	require.NoError(t, err)

	// Identical vectors score identically for any query.
	err = idx.Add(context.Background(), []Entry{
		testEntry("first", []float32{1, 0}),
		testEntry("second", []float32{1, 0}),
		testEntry("third", []float32{1, 0}),
	})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		hits, err := idx.Search(context.Background(), []float32{1, 0}, 3)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, "first", hits[0].Chunk.ID)
		assert.Equal(t, "second", hits[1].Chunk.ID)
		assert.Equal(t, "third", hits[2].Chunk.ID)
	}
}

func TestFlatIndexSearchBounds(t *testing.T) {
	idx, err := NewFlatIndex(t.TempDir(), 2)
	require.NoError(t, err)
	require.NoError(t, idx.Add(context.Background(), []Entry{
		testEntry("a", []float32{1, 0}),
		testEntry("b", []float32{0, 1}),
	}))

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2, "k larger than the corpus returns everything")

	hits, err = idx.Search(context.Background(), []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFlatIndexDimensionChecks(t *testing.T) {
	idx, err := NewFlatIndex(t.TempDir(), 3)
	require.NoError(t, err)

	err = idx.Add(context.Background(), []Entry{testEntry("bad", []float32{1, 0})})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	require.NoError(t, idx.Add(context.Background(), []Entry{testEntry("ok", []float32{1, 0, 0})}))
	_, err = idx.Search(context.Background(), []float32{1, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlatIndexAddEmpty(t *testing.T) {
	idx, err := NewFlatIndex(t.TempDir(), 2)
	require.NoError(t, err)
	assert.ErrorIs(t, idx.Add(context.Background(), nil), ErrEmptyEntries)
}

func testManifest() Manifest {
	return Manifest{
		BuildID:          "b-123",
		EmbeddingModelID: "intfloat/multilingual-e5-small",
		Tokenizer:        "cl100k_base",
		BuildConfig:      chunker.Config{MaxTokens: 800, TargetTokens: 400, OverlapTokens: 50},
		BuildTimestamp:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Stats: BuildStats{
			SourceChunks:      map[string]int{"rust-book": 2},
			TotalTokens:       6,
			AvgTokensPerChunk: 3,
		},
	}
}

func TestFlatIndexZeroVectorScoresZero(t *testing.T) {
	idx, err := NewFlatIndex(t.TempDir(), 2)
	require.NoError(t, err)
	require.NoError(t, idx.Add(context.Background(), []Entry{
		testEntry("zero", []float32{0, 0}),
		testEntry("unit", []float32{1, 0}),
	}))

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "unit", hits[0].Chunk.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Zero(t, hits[1].Score)

	// A zero query has no direction either.
	hits, err = idx.Search(context.Background(), []float32{0, 0}, 2)
	require.NoError(t, err)
	for _, h := range hits {
		assert.Zero(t, h.Score)
	}
}

func TestFlatIndexPersistRejectsInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewFlatIndex(dir, 2)
	require.NoError(t, err)

	entry := testEntry("a", []float32{1, 0})
	// A trailing lead byte with no continuation, as a mid-rune cut would
	// leave behind. Marshaling it would silently rewrite it to U+FFFD.
	entry.Chunk.Text = "caf\xc3"
	require.NoError(t, idx.Add(context.Background(), []Entry{entry}))

	err = idx.Persist(testManifest())
	require.ErrorIs(t, err, ErrSnapshotCorrupt)
	assert.NoFileExists(t, filepath.Join(dir, vectorsFile))
	assert.NoFileExists(t, filepath.Join(dir, metadataFile))
}

func TestFlatIndexPersistAndOpen(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewFlatIndex(dir, 2)
	require.NoError(t, err)
	require.NoError(t, idx.Add(context.Background(), []Entry{
		testEntry("a", []float32{1, 0}),
		testEntry("b", []float32{0, 1}),
	}))
	require.NoError(t, idx.Persist(testManifest()))

	handle, err := OpenFlatIndex(dir, "intfloat/multilingual-e5-small", 2)
	require.NoError(t, err)
	defer handle.Index.Close()

	assert.Equal(t, "b-123", handle.Manifest.BuildID)
	assert.Equal(t, 2, handle.Manifest.ChunkCount)
	assert.Equal(t, 2, handle.Manifest.Dimension)
	assert.Equal(t, 2, handle.Index.Count())

	hits, err := handle.Index.Search(context.Background(), []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].Chunk.ID)
	assert.Equal(t, "content of b", hits[0].Chunk.Text)
	assert.Equal(t, []string{"Ownership", "Borrowing"}, hits[0].Chunk.HeadingPath)
}

func TestOpenFlatIndexEmptyCorpus(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewFlatIndex(dir, 2)
	require.NoError(t, err)
	require.NoError(t, idx.Persist(testManifest()))

	handle, err := OpenFlatIndex(dir, "intfloat/multilingual-e5-small", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, handle.Index.Count())

	hits, err := handle.Index.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestOpenFlatIndexModelMismatch(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewFlatIndex(dir, 2)
	require.NoError(t, err)
	require.NoError(t, idx.Add(context.Background(), []Entry{testEntry("a", []float32{1, 0})}))
	require.NoError(t, idx.Persist(testManifest()))

	_, err = OpenFlatIndex(dir, "some-other-model", 2)
	assert.ErrorIs(t, err, ErrModelMismatch)

	_, err = OpenFlatIndex(dir, "intfloat/multilingual-e5-small", 768)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestOpenFlatIndexCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewFlatIndex(dir, 2)
	require.NoError(t, err)
	require.NoError(t, idx.Add(context.Background(), []Entry{
		testEntry("a", []float32{1, 0}),
		testEntry("b", []float32{0, 1}),
	}))
	require.NoError(t, idx.Persist(testManifest()))

	// Truncating the vector file breaks the count cross-check.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vectors.bin"), []byte{0, 0, 0, 0}, 0o644))
	_, err = OpenFlatIndex(dir, "intfloat/multilingual-e5-small", 2)
	assert.ErrorIs(t, err, ErrSnapshotCorrupt)

	// A missing manifest is also corruption, not an empty index.
	require.NoError(t, os.Remove(filepath.Join(dir, "manifest.json")))
	_, err = OpenFlatIndex(dir, "intfloat/multilingual-e5-small", 2)
	assert.ErrorIs(t, err, ErrSnapshotCorrupt)
}

func TestFactorySelectsProvider(t *testing.T) {
	cfg := Config{Provider: "flat", Path: t.TempDir()}
	idx, err := NewBuilder(cfg, 4)
	require.NoError(t, err)
	_, ok := idx.(*FlatIndex)
	assert.True(t, ok)

	_, err = NewBuilder(Config{Provider: "pinecone", Path: t.TempDir()}, 4)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	var defaults Config
	defaults.ApplyDefaults()
	assert.Equal(t, "flat", defaults.Provider)
	require.NoError(t, defaults.Validate())
}
