package vectorstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/fyrsmithlabs/grounder/internal/chunker"
)

// Snapshot artifact names. The three files are produced together by Persist
// and loaded together; a partial set is treated as corruption.
const (
	vectorsFile  = "vectors.bin"
	metadataFile = "metadata.json"
	manifestFile = "manifest.json"
)

// writeSnapshot writes vectors (raw little-endian float32 in insertion
// order), chunk metadata, and the manifest under dir.
func writeSnapshot(dir string, entries []Entry, manifest Manifest) error {
	chunks := make([]chunker.Chunk, len(entries))
	for i, e := range entries {
		// json.Marshal rewrites invalid UTF-8 as U+FFFD, so a chunk
		// that slipped past the tokenizer with a partial rune would be
		// served back with different text than was embedded. Refuse to
		// persist it before any artifact is written.
		if !utf8.ValidString(e.Chunk.Text) {
			return fmt.Errorf("%w: chunk %q text is not valid UTF-8", ErrSnapshotCorrupt, e.Chunk.ID)
		}
		chunks[i] = e.Chunk
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	buf := make([]byte, 0, len(entries)*manifest.Dimension*4)
	scratch := make([]byte, 4)
	for _, e := range entries {
		for _, v := range e.Vector {
			binary.LittleEndian.PutUint32(scratch, math.Float32bits(v))
			buf = append(buf, scratch...)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, vectorsFile), buf, 0o644); err != nil {
		return fmt.Errorf("writing vectors: %w", err)
	}

	metaBytes, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), metaBytes, 0o644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	return writeManifest(dir, manifest)
}

func writeManifest(dir string, manifest Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), manifestBytes, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// ReadManifest loads only the manifest sidecar, without validating the
// snapshot against an embedder. Useful for inspection.
func ReadManifest(dir string) (Manifest, error) {
	return readManifest(dir)
}

func readManifest(dir string) (Manifest, error) {
	var manifest Manifest
	manifestBytes, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return manifest, fmt.Errorf("%w: reading manifest: %v", ErrSnapshotCorrupt, err)
	}
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return manifest, fmt.Errorf("%w: parsing manifest: %v", ErrSnapshotCorrupt, err)
	}
	if manifest.Dimension <= 0 {
		return manifest, fmt.Errorf("%w: manifest has non-positive dimension %d", ErrSnapshotCorrupt, manifest.Dimension)
	}
	return manifest, nil
}

// readSnapshot loads and cross-validates the three artifacts. Counts must
// agree between manifest, metadata, and the vector file's size.
func readSnapshot(dir string) (Manifest, []Entry, error) {
	manifest, err := readManifest(dir)
	if err != nil {
		return manifest, nil, err
	}

	metaBytes, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return manifest, nil, fmt.Errorf("%w: reading metadata: %v", ErrSnapshotCorrupt, err)
	}
	var chunks []chunker.Chunk
	if err := json.Unmarshal(metaBytes, &chunks); err != nil {
		return manifest, nil, fmt.Errorf("%w: parsing metadata: %v", ErrSnapshotCorrupt, err)
	}
	if len(chunks) != manifest.ChunkCount {
		return manifest, nil, fmt.Errorf("%w: manifest says %d chunks, metadata has %d",
			ErrSnapshotCorrupt, manifest.ChunkCount, len(chunks))
	}

	vecBytes, err := os.ReadFile(filepath.Join(dir, vectorsFile))
	if err != nil {
		return manifest, nil, fmt.Errorf("%w: reading vectors: %v", ErrSnapshotCorrupt, err)
	}
	want := manifest.ChunkCount * manifest.Dimension * 4
	if len(vecBytes) != want {
		return manifest, nil, fmt.Errorf("%w: vector file is %d bytes, expected %d",
			ErrSnapshotCorrupt, len(vecBytes), want)
	}

	entries := make([]Entry, manifest.ChunkCount)
	offset := 0
	for i := range entries {
		vector := make([]float32, manifest.Dimension)
		for j := range vector {
			vector[j] = math.Float32frombits(binary.LittleEndian.Uint32(vecBytes[offset:]))
			offset += 4
		}
		entries[i] = Entry{Chunk: chunks[i], Vector: vector}
	}
	return manifest, entries, nil
}
