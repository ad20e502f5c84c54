// Package retriever answers questions against a built index: embed the
// question, search, filter by similarity, optionally rerank, then assemble
// a token-budgeted context with citations.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/grounder/internal/chunker"
	"github.com/fyrsmithlabs/grounder/internal/citation"
	"github.com/fyrsmithlabs/grounder/internal/embeddings"
	"github.com/fyrsmithlabs/grounder/internal/reranker"
	"github.com/fyrsmithlabs/grounder/internal/vectorstore"
)

var (
	// ErrInvalidConfig indicates a rejected retrieval configuration.
	ErrInvalidConfig = errors.New("invalid retrieval config")
	// ErrEmptyQuestion indicates a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
)

// Config controls retrieval behavior.
type Config struct {
	// TopK is the number of nearest chunks fetched from the index before
	// filtering.
	TopK int `koanf:"top_k"`
	// SimilarityThreshold drops chunks below this cosine similarity.
	// Applied before reranking, so the cross-encoder can reorder relevant
	// chunks but never resurrect irrelevant ones. Zero selects the
	// default of 0.3.
	SimilarityThreshold float32 `koanf:"similarity_threshold"`
	// ContextTokenBudget caps the total tokens of retrieved context.
	// Zero selects the default of 2000.
	ContextTokenBudget int `koanf:"context_token_budget"`
	// MaxCitations caps the citation list. Zero selects the default of 4.
	MaxCitations int `koanf:"max_citations"`
	// Timeout bounds one retrieval end to end. A timed-out retrieval
	// returns an empty result, the same as no chunk clearing the
	// threshold; only logs and metrics tell the two apart.
	Timeout time.Duration `koanf:"timeout"`
	// Rerank configures optional cross-encoder reranking.
	Rerank reranker.Config `koanf:"rerank"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = 0.3
	}
	if c.ContextTokenBudget == 0 {
		c.ContextTokenBudget = 2000
	}
	if c.MaxCitations == 0 {
		c.MaxCitations = 4
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	c.Rerank.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidConfig)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity_threshold must be in [0, 1]", ErrInvalidConfig)
	}
	if c.ContextTokenBudget < 0 {
		return fmt.Errorf("%w: context_token_budget cannot be negative", ErrInvalidConfig)
	}
	if c.MaxCitations < 0 {
		return fmt.Errorf("%w: max_citations cannot be negative", ErrInvalidConfig)
	}
	if err := c.Rerank.Validate(); err != nil {
		return err
	}
	return nil
}

// ScoredChunk is one retrieved chunk with its scores.
type ScoredChunk struct {
	chunker.Chunk
	// Similarity is the cosine similarity from the vector search.
	Similarity float32
	// Relevance orders the result. Equal to Similarity unless reranking
	// ran, in which case it is the cross-encoder score.
	Relevance float32
}

// Result is the outcome of one retrieval. An empty Chunks slice is a valid
// answer meaning the corpus has nothing relevant, not a failure.
type Result struct {
	Question  string
	Chunks    []ScoredChunk
	Citations []string
	// Reranked records whether the cross-encoder ordered the chunks.
	Reranked bool
}

// Empty reports whether nothing relevant was found.
func (r *Result) Empty() bool { return len(r.Chunks) == 0 }

// Service executes retrievals against the current index snapshot. The index
// handle is swappable, so a rebuild can go live without stopping queries;
// in-flight retrievals finish on the snapshot they started with.
type Service struct {
	cfg      Config
	embedder embeddings.Provider
	handle   atomic.Pointer[vectorstore.Handle]
	reranker reranker.Reranker
	logger   *zap.Logger
	metrics  *Metrics
}

// NewService creates a retrieval service. The reranker may be nil when
// reranking is disabled.
func NewService(cfg Config, embedder embeddings.Provider, handle *vectorstore.Handle, rr reranker.Reranker, logger *zap.Logger) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Rerank.Enabled && rr == nil {
		return nil, fmt.Errorf("%w: reranking enabled but no reranker provided", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		cfg:      cfg,
		embedder: embedder,
		reranker: rr,
		logger:   logger,
		metrics:  NewMetrics(),
	}
	s.handle.Store(handle)
	return s, nil
}

// Swap atomically replaces the index snapshot used by new retrievals.
func (s *Service) Swap(handle *vectorstore.Handle) {
	old := s.handle.Swap(handle)
	if old != nil && handle != nil {
		s.logger.Info("index snapshot swapped",
			zap.String("old_build", old.Manifest.BuildID),
			zap.String("new_build", handle.Manifest.BuildID),
			zap.Int("chunks", handle.Manifest.ChunkCount))
	}
}

// Manifest returns the manifest of the current snapshot, or nil when no
// index is loaded.
func (s *Service) Manifest() *vectorstore.Manifest {
	h := s.handle.Load()
	if h == nil {
		return nil
	}
	m := h.Manifest
	return &m
}

// Retrieve answers a question with relevant chunks and citations.
func (s *Service) Retrieve(ctx context.Context, question string) (*Result, error) {
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, outcome, err := s.retrieve(ctx, question)
	s.metrics.RecordRetrieval(ctx, outcome, time.Since(start), result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// retrieval outcomes for logs and metrics. A caller cannot tell an empty
// result apart by shape; these labels carry the distinction.
const (
	outcomeOK             = "ok"
	outcomeBelowThreshold = "below_threshold"
	outcomeEmptyIndex     = "empty_index"
	outcomeOverBudget     = "over_budget"
	outcomeTimeout        = "timeout"
	outcomeError          = "error"
)

func (s *Service) retrieve(ctx context.Context, question string) (*Result, string, error) {
	empty := &Result{Question: question}

	handle := s.handle.Load()
	if handle == nil || handle.Index.Count() == 0 {
		s.logger.Warn("retrieval against empty index", zap.String("question", question))
		return empty, outcomeEmptyIndex, nil
	}

	queryVec, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		if timedOut(ctx, err) {
			s.logger.Warn("retrieval timed out embedding question",
				zap.String("question", question), zap.Duration("timeout", s.cfg.Timeout))
			return empty, outcomeTimeout, nil
		}
		return nil, outcomeError, fmt.Errorf("embedding question: %w", err)
	}

	hits, err := handle.Index.Search(ctx, queryVec, s.cfg.TopK)
	if err != nil {
		if timedOut(ctx, err) {
			s.logger.Warn("retrieval timed out searching index",
				zap.String("question", question), zap.Duration("timeout", s.cfg.Timeout))
			return empty, outcomeTimeout, nil
		}
		return nil, outcomeError, fmt.Errorf("searching index: %w", err)
	}

	chunks := make([]ScoredChunk, 0, len(hits))
	for _, h := range hits {
		if h.Score < s.cfg.SimilarityThreshold {
			continue
		}
		chunks = append(chunks, ScoredChunk{Chunk: h.Chunk, Similarity: h.Score, Relevance: h.Score})
	}
	if len(chunks) == 0 {
		s.logger.Info("no chunk cleared the similarity threshold",
			zap.String("question", question),
			zap.Float32("threshold", s.cfg.SimilarityThreshold),
			zap.Int("candidates", len(hits)))
		return empty, outcomeBelowThreshold, nil
	}

	reranked := false
	if s.cfg.Rerank.Enabled {
		chunks, err = s.rerank(ctx, question, chunks)
		if err != nil {
			if timedOut(ctx, err) {
				s.logger.Warn("retrieval timed out reranking",
					zap.String("question", question), zap.Duration("timeout", s.cfg.Timeout))
				return empty, outcomeTimeout, nil
			}
			return nil, outcomeError, fmt.Errorf("reranking: %w", err)
		}
		reranked = true
	}

	chunks = s.applyBudget(chunks)
	if len(chunks) == 0 {
		s.logger.Warn("every relevant chunk exceeded the context token budget",
			zap.String("question", question),
			zap.Int("budget", s.cfg.ContextTokenBudget))
		return empty, outcomeOverBudget, nil
	}

	cited := make([]chunker.Chunk, len(chunks))
	for i, c := range chunks {
		cited[i] = c.Chunk
	}

	s.logger.Debug("retrieval complete",
		zap.String("question", question),
		zap.Int("chunks", len(chunks)),
		zap.Bool("reranked", reranked))

	return &Result{
		Question:  question,
		Chunks:    chunks,
		Citations: citation.List(cited, s.cfg.MaxCitations),
		Reranked:  reranked,
	}, outcomeOK, nil
}

// rerank reorders chunks by cross-encoder score. Similarity scores are
// preserved on each chunk; only the order and Relevance change.
func (s *Service) rerank(ctx context.Context, question string, chunks []ScoredChunk) ([]ScoredChunk, error) {
	docs := make([]string, len(chunks))
	for i, c := range chunks {
		docs[i] = c.Text
	}
	results, err := s.reranker.Rerank(ctx, question, docs)
	if err != nil {
		return nil, err
	}

	reordered := make([]ScoredChunk, len(results))
	for i, r := range results {
		reordered[i] = chunks[r.Index]
		reordered[i].Relevance = r.Score
	}
	return reordered, nil
}

// applyBudget keeps the longest prefix of chunks whose summed token count
// stays within the context token budget. The prefix can be empty: a single
// chunk over the budget is excluded too, never served partially or hoping
// the caller trims it.
func (s *Service) applyBudget(chunks []ScoredChunk) []ScoredChunk {
	if s.cfg.ContextTokenBudget <= 0 {
		return chunks
	}
	total := 0
	for i, c := range chunks {
		total += c.TokenCount
		if total > s.cfg.ContextTokenBudget {
			return chunks[:i]
		}
	}
	return chunks
}

// timedOut reports whether err or the context indicates the retrieval
// deadline passed.
func timedOut(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}
