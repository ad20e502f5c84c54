package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/grounder/internal/tokenizer"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid tei",
			cfg:  Config{Provider: "tei", Model: "m", BaseURL: "http://localhost:8080"},
		},
		{
			name: "valid openai",
			cfg:  Config{Provider: "openai", Model: "text-embedding-3-small"},
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "cohere", Model: "m"},
			wantErr: true,
		},
		{
			name:    "tei without base url",
			cfg:     Config{Provider: "tei", Model: "m"},
			wantErr: true,
		},
		{
			name:    "missing model",
			cfg:     Config{Provider: "openai"},
			wantErr: true,
		},
		{
			name:    "negative batch size",
			cfg:     Config{Provider: "openai", Model: "m", BatchSize: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, "tei", cfg.Provider)
	assert.Equal(t, "intfloat/multilingual-e5-small", cfg.Model)
	assert.Equal(t, 512, cfg.MaxInputTokens)
	assert.Equal(t, 32, cfg.BatchSize)
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(Config{Provider: "cohere", Model: "m"}, tokenizer.Whitespace(), zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewProviderUnreachableTEIIsFatal(t *testing.T) {
	// A dead endpoint must surface as a model-unavailable error at
	// construction, not on the first query.
	_, err := NewProvider(Config{
		Provider: "tei",
		Model:    "m",
		BaseURL:  "http://127.0.0.1:1",
	}, tokenizer.Whitespace(), zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}
