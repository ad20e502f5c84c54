package reranker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexicalRerankerRanksByTermOverlap(t *testing.T) {
	r := NewLexicalReranker()
	defer r.Close()

	docs := []string{
		"Configuring log rotation for background services.",
		"Retention policies control snapshot lifetime and snapshot retention windows.",
		"Snapshot compression is configured per index.",
	}
	results, err := r.Rerank(context.Background(), "snapshot retention", docs)
	require.NoError(t, err)
	require.Len(t, results, len(docs))

	assert.Equal(t, 1, results[0].Index)
	assert.Equal(t, 2, results[1].Index)
	assert.Equal(t, 0, results[2].Index)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 0.0, results[2].Score, 1e-6)
}

func TestLexicalRerankerTiesKeepInputOrder(t *testing.T) {
	r := NewLexicalReranker()
	docs := []string{
		"snapshot format details",
		"snapshot format details",
		"snapshot format details",
	}
	results, err := r.Rerank(context.Background(), "snapshot format", docs)
	require.NoError(t, err)
	for i, res := range results {
		assert.Equal(t, i, res.Index)
	}
}

func TestLexicalRerankerStopwordOnlyQuery(t *testing.T) {
	r := NewLexicalReranker()
	results, err := r.Rerank(context.Background(), "what is the", []string{"anything at all"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Zero(t, results[0].Score)
}

func TestLexicalRerankerCancelledContext(t *testing.T) {
	r := NewLexicalReranker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Rerank(ctx, "query", []string{"doc"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSelectsLexicalModel(t *testing.T) {
	r, err := New(Config{Enabled: true, Model: ModelLexical})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, ModelLexical, r.ModelID())
	assert.IsType(t, &LexicalReranker{}, r)
}

func TestConfigValidateLexicalNeedsNoBaseURL(t *testing.T) {
	cfg := Config{Enabled: true, Model: ModelLexical}
	assert.NoError(t, cfg.Validate())
}
