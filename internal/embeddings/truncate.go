package embeddings

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/grounder/internal/tokenizer"
)

// truncatingProvider head-truncates inputs that exceed the model's maximum
// input length. Truncation is deterministic and logged at warn level; it is
// never an error, so an oversized chunk still gets indexed on its head.
type truncatingProvider struct {
	Provider
	codec  tokenizer.Codec
	max    int
	logger *zap.Logger
}

func withTruncation(p Provider, codec tokenizer.Codec, max int, logger *zap.Logger) Provider {
	return &truncatingProvider{Provider: p, codec: codec, max: max, logger: logger}
}

func (t *truncatingProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	bounded := make([]string, len(texts))
	for i, text := range texts {
		bounded[i] = t.bound(text)
	}
	return t.Provider.EmbedDocuments(ctx, bounded)
}

func (t *truncatingProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return t.Provider.EmbedQuery(ctx, t.bound(text))
}

func (t *truncatingProvider) bound(text string) string {
	out, truncated := tokenizer.Truncate(t.codec, text, t.max)
	if truncated {
		t.logger.Warn("input exceeds model max length, head-truncated",
			zap.String("model", t.ModelID()),
			zap.Int("max_tokens", t.max),
			zap.Int("input_tokens", t.codec.Count(text)),
		)
	}
	return out
}
