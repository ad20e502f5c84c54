// Package indexer builds the index snapshot: load sources, chunk
// documents, embed chunks in parallel batches, then persist vectors,
// metadata and manifest together.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/grounder/internal/chunker"
	"github.com/fyrsmithlabs/grounder/internal/corpus"
	"github.com/fyrsmithlabs/grounder/internal/embeddings"
	"github.com/fyrsmithlabs/grounder/internal/tokenizer"
	"github.com/fyrsmithlabs/grounder/internal/vectorstore"
)

// ErrInvalidConfig indicates a rejected build configuration.
var ErrInvalidConfig = errors.New("invalid indexer config")

// Config controls the build pipeline.
type Config struct {
	// BatchSize is the number of chunks per embedding request.
	BatchSize int `koanf:"batch_size"`
	// Concurrency is the number of embedding requests in flight.
	Concurrency int `koanf:"concurrency"`
	// RateLimit caps embedding requests per second across all workers.
	// Zero means unlimited; hosted embedding APIs meter by request.
	RateLimit float64 `koanf:"rate_limit"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 32
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive", ErrInvalidConfig)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("%w: concurrency must be positive", ErrInvalidConfig)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// Report summarizes one build. Skips are per-item, never fatal: one
// unreadable file or empty section does not abort an hours-long build.
type Report struct {
	BuildID         string
	Documents       int
	Chunks          int
	TotalTokens     int
	SkippedFiles    []corpus.Skip
	SkippedSections []chunker.Skip
	Duration        time.Duration
}

// Builder runs builds from configured sources into an index snapshot.
type Builder struct {
	cfg      Config
	sources  []corpus.Source
	chunker  *chunker.Chunker
	chunkCfg chunker.Config
	codec    tokenizer.Codec
	embedder embeddings.Provider
	store    vectorstore.Config
	logger   *zap.Logger
}

// NewBuilder wires the build pipeline.
func NewBuilder(cfg Config, sources []corpus.Source, chunkCfg chunker.Config, codec tokenizer.Codec, embedder embeddings.Provider, store vectorstore.Config, logger *zap.Logger) (*Builder, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: at least one source is required", ErrInvalidConfig)
	}
	ch, err := chunker.New(chunkCfg, codec)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		cfg:      cfg,
		sources:  sources,
		chunker:  ch,
		chunkCfg: chunkCfg,
		codec:    codec,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}, nil
}

// Build produces a complete snapshot and persists it. The previous
// snapshot on disk is replaced wholesale; corpus changes mean rebuilds,
// not incremental updates.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{BuildID: uuid.NewString()}

	chunks, err := b.collect(report)
	if err != nil {
		return nil, err
	}

	vectors, err := b.embedAll(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}

	idx, err := vectorstore.NewBuilder(b.store, b.embedder.Dimension())
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}
	defer idx.Close()

	if len(chunks) > 0 {
		entries := make([]vectorstore.Entry, len(chunks))
		for i := range chunks {
			entries[i] = vectorstore.Entry{Chunk: chunks[i], Vector: vectors[i]}
		}
		if err := idx.Add(ctx, entries); err != nil {
			return nil, fmt.Errorf("populating index: %w", err)
		}
	}

	if err := idx.Persist(b.manifest(report, chunks)); err != nil {
		return nil, fmt.Errorf("persisting snapshot: %w", err)
	}

	report.Duration = time.Since(start)
	b.logger.Info("index build complete",
		zap.String("build_id", report.BuildID),
		zap.Int("documents", report.Documents),
		zap.Int("chunks", report.Chunks),
		zap.Int("skipped_files", len(report.SkippedFiles)),
		zap.Int("skipped_sections", len(report.SkippedSections)),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// collect loads and chunks every source, assigning chunk IDs in corpus
// order. IDs are stable across rebuilds of an unchanged corpus.
func (b *Builder) collect(report *Report) ([]chunker.Chunk, error) {
	var all []chunker.Chunk
	for _, src := range b.sources {
		docs, skips, err := corpus.Load(src)
		if err != nil {
			return nil, fmt.Errorf("loading source %s: %w", src.ID, err)
		}
		report.SkippedFiles = append(report.SkippedFiles, skips...)
		report.Documents += len(docs)

		seq := 0
		for _, doc := range docs {
			chunks, sectionSkips := b.chunker.Split(doc)
			report.SkippedSections = append(report.SkippedSections, sectionSkips...)
			for i := range chunks {
				chunks[i].ID = fmt.Sprintf("%s:%06d", src.ID, seq)
				seq++
			}
			all = append(all, chunks...)
		}
		b.logger.Info("source chunked",
			zap.String("source", src.ID),
			zap.Int("documents", len(docs)),
			zap.Int("chunks", seq),
			zap.Int("skipped_files", len(skips)))
	}
	report.Chunks = len(all)
	for _, c := range all {
		report.TotalTokens += c.TokenCount
	}
	return all, nil
}

// embedAll embeds chunks in batches. Workers run concurrently but write
// into slots keyed by batch offset, so vector order matches chunk order
// regardless of completion order.
func (b *Builder) embedAll(ctx context.Context, chunks []chunker.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	var limiter *rate.Limiter
	if b.cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(b.cfg.RateLimit), 1)
	}

	vectors := make([][]float32, len(chunks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Concurrency)

	for offset := 0; offset < len(chunks); offset += b.cfg.BatchSize {
		end := min(offset+b.cfg.BatchSize, len(chunks))
		batch := chunks[offset:end]
		slot := vectors[offset:end]

		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
			}
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			batchVectors, err := b.embedder.EmbedDocuments(ctx, texts)
			if err != nil {
				return err
			}
			if len(batchVectors) != len(batch) {
				return fmt.Errorf("got %d vectors for %d chunks", len(batchVectors), len(batch))
			}
			copy(slot, batchVectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (b *Builder) manifest(report *Report, chunks []chunker.Chunk) vectorstore.Manifest {
	sourceChunks := make(map[string]int, len(b.sources))
	for _, c := range chunks {
		sourceChunks[c.SourceID]++
	}
	avg := 0
	if len(chunks) > 0 {
		avg = report.TotalTokens / len(chunks)
	}
	return vectorstore.Manifest{
		BuildID:          report.BuildID,
		EmbeddingModelID: b.embedder.ModelID(),
		Tokenizer:        b.codec.Name(),
		BuildConfig:      b.chunkCfg,
		BuildTimestamp:   time.Now().UTC(),
		Stats: vectorstore.BuildStats{
			SourceChunks:      sourceChunks,
			TotalTokens:       report.TotalTokens,
			AvgTokensPerChunk: avg,
		},
	}
}
