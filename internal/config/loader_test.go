package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "cl100k_base", cfg.Tokenizer)
	assert.Equal(t, "tei", cfg.Embedding.Provider)
	assert.Equal(t, 800, cfg.Chunking.MaxTokens)
	assert.Equal(t, 400, cfg.Chunking.TargetTokens)
	assert.Equal(t, 50, cfg.Chunking.OverlapTokens)
	assert.Equal(t, "flat", cfg.Index.Provider)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.3, cfg.Retrieval.SimilarityThreshold, 1e-6)
	assert.Equal(t, 2000, cfg.Retrieval.ContextTokenBudget)
	assert.Equal(t, 4, cfg.Retrieval.MaxCitations)
	assert.Equal(t, 10*time.Second, cfg.Retrieval.Timeout)
	assert.False(t, cfg.Retrieval.Rerank.Enabled)
	assert.Empty(t, cfg.Sources)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
tokenizer: o200k_base
embedding:
  provider: openai
  model: text-embedding-3-small
chunking:
  max_tokens: 600
  target_tokens: 300
  overlap_tokens: 40
index:
  provider: chromem
  path: /tmp/grounder-index
retrieval:
  top_k: 8
  similarity_threshold: 0.25
  timeout: 3s
  rerank:
    enabled: true
    model: BAAI/bge-reranker-base
sources:
  - id: book
    name: The Rust Book
    path: /docs/book
    base_url: https://doc.rust-lang.org/book/
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "o200k_base", cfg.Tokenizer)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 600, cfg.Chunking.MaxTokens)
	assert.Equal(t, "chromem", cfg.Index.Provider)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.25, cfg.Retrieval.SimilarityThreshold, 1e-6)
	assert.Equal(t, 3*time.Second, cfg.Retrieval.Timeout)
	assert.True(t, cfg.Retrieval.Rerank.Enabled)
	assert.Equal(t, "BAAI/bge-reranker-base", cfg.Retrieval.Rerank.Model)

	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "book", cfg.Sources[0].ID)
	assert.Equal(t, "https://doc.rust-lang.org/book/", cfg.Sources[0].BaseURL)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
retrieval:
  top_k: 8
embedding:
  model: intfloat/multilingual-e5-small
`)
	t.Setenv("GROUNDER_RETRIEVAL_TOP_K", "3")
	t.Setenv("GROUNDER_EMBEDDING_BASE_URL", "http://tei.internal:8080")
	t.Setenv("GROUNDER_RETRIEVAL_RERANK_MODEL", "BAAI/bge-reranker-large")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, "http://tei.internal:8080", cfg.Embedding.BaseURL)
	assert.Equal(t, "intfloat/multilingual-e5-small", cfg.Embedding.Model)
	assert.Equal(t, "BAAI/bge-reranker-large", cfg.Retrieval.Rerank.Model)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "threshold out of range", yaml: "retrieval:\n  similarity_threshold: 1.5\n"},
		{name: "rerank enabled without model", yaml: "retrieval:\n  rerank:\n    enabled: true\n"},
		{name: "overlap not below target", yaml: "chunking:\n  target_tokens: 50\n  overlap_tokens: 50\n"},
		{name: "source without id", yaml: "sources:\n  - path: /docs\n"},
		{name: "duplicate source ids", yaml: "sources:\n  - id: book\n    path: /a\n  - id: book\n    path: /b\n"},
		{name: "unknown index provider", yaml: "index:\n  provider: faiss\n"},
		{name: "unknown log level", yaml: "logging:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestTransformEnvKey(t *testing.T) {
	assert.Equal(t, "retrieval.top_k", transformEnvKey("GROUNDER_RETRIEVAL_TOP_K"))
	assert.Equal(t, "embedding.base_url", transformEnvKey("GROUNDER_EMBEDDING_BASE_URL"))
	assert.Equal(t, "retrieval.rerank.enabled", transformEnvKey("GROUNDER_RETRIEVAL_RERANK_ENABLED"))
	assert.Equal(t, "tokenizer", transformEnvKey("GROUNDER_TOKENIZER"))
}
