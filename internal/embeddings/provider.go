package embeddings

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/grounder/internal/tokenizer"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid embeddings configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrModelUnavailable indicates the embedding model failed to load.
	// This is fatal for the stage that needs it.
	ErrModelUnavailable = errors.New("embedding model unavailable")
)

// Provider generates dense vectors from text.
//
// One provider instance serves both build and query time. The loaded model
// is a process-lifetime resource released by Close.
type Provider interface {
	// EmbedDocuments generates embeddings for multiple texts, one vector
	// per input, in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query. Some models
	// encode queries differently from passages.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimensionality for the model.
	Dimension() int

	// ModelID returns the model identifier recorded in index manifests.
	ModelID() string

	// Close releases resources held by the provider.
	Close() error
}

// Config holds configuration for creating an embedding provider.
type Config struct {
	// Provider is the provider type: "tei", "openai", or "fastembed".
	Provider string `koanf:"provider"`

	// Model is the embedding model name.
	Model string `koanf:"model"`

	// BaseURL is the TEI endpoint (TEI provider only).
	BaseURL string `koanf:"base_url"`

	// CacheDir is the model cache directory (FastEmbed only).
	CacheDir string `koanf:"cache_dir"`

	// MaxInputTokens bounds input length; longer inputs are
	// head-truncated before embedding. Zero disables truncation.
	MaxInputTokens int `koanf:"max_input_tokens"`

	// BatchSize is the number of chunks embedded per batch at build time.
	BatchSize int `koanf:"batch_size"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = "tei"
	}
	if c.Model == "" {
		c.Model = "intfloat/multilingual-e5-small"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8080"
	}
	if c.MaxInputTokens == 0 {
		c.MaxInputTokens = 512
	}
	if c.BatchSize == 0 {
		c.BatchSize = 32
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	switch c.Provider {
	case "tei":
		if c.BaseURL == "" {
			return fmt.Errorf("%w: base_url required for tei provider", ErrInvalidConfig)
		}
	case "openai", "fastembed":
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.MaxInputTokens < 0 || c.BatchSize < 0 {
		return fmt.Errorf("%w: max_input_tokens and batch_size must not be negative", ErrInvalidConfig)
	}
	return nil
}

// NewProvider creates an embedding provider based on the configuration.
// Inputs are head-truncated to MaxInputTokens using codec before embedding.
func NewProvider(cfg Config, codec tokenizer.Codec, logger *zap.Logger) (Provider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case "tei":
		p, err = NewTEIProvider(cfg)
	case "openai":
		p, err = NewOpenAIProvider(cfg)
	case "fastembed":
		p, err = NewFastEmbedProvider(FastEmbedConfig{
			Model:     cfg.Model,
			CacheDir:  cfg.CacheDir,
			MaxLength: cfg.MaxInputTokens,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	if cfg.MaxInputTokens > 0 && codec != nil {
		p = withTruncation(p, codec, cfg.MaxInputTokens, logger)
	}
	return p, nil
}
