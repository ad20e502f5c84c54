package embeddings

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/grounder/internal/tokenizer"
)

// captureProvider records the texts it was asked to embed.
type captureProvider struct {
	docs    [][]string
	queries []string
}

func (c *captureProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	c.docs = append(c.docs, texts)
	return make([][]float32, len(texts)), nil
}

func (c *captureProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	c.queries = append(c.queries, text)
	return nil, nil
}

func (c *captureProvider) Dimension() int  { return 3 }
func (c *captureProvider) ModelID() string { return "capture" }
func (c *captureProvider) Close() error    { return nil }

func TestTruncatingProviderBoundsDocuments(t *testing.T) {
	inner := &captureProvider{}
	codec := tokenizer.Whitespace()
	p := withTruncation(inner, codec, 4, zap.NewNop())

	long := strings.Repeat("word ", 10)
	short := "short text"

	_, err := p.EmbedDocuments(context.Background(), []string{long, short})
	require.NoError(t, err)
	require.Len(t, inner.docs, 1)

	sent := inner.docs[0]
	require.Len(t, sent, 2)
	assert.Equal(t, 4, codec.Count(sent[0]), "long input must be head-truncated")
	assert.True(t, strings.HasPrefix(long, sent[0]))
	assert.Equal(t, short, sent[1], "short input must pass through unchanged")
}

func TestTruncatingProviderBoundsQuery(t *testing.T) {
	inner := &captureProvider{}
	codec := tokenizer.Whitespace()
	p := withTruncation(inner, codec, 3, zap.NewNop())

	_, err := p.EmbedQuery(context.Background(), "one two three four five")
	require.NoError(t, err)
	require.Len(t, inner.queries, 1)
	assert.Equal(t, 3, codec.Count(inner.queries[0]))
}
