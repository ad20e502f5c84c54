package vectorstore

import "fmt"

// Config selects and locates the index backend.
type Config struct {
	// Provider is "flat" (raw snapshot files, reproducible tie order) or
	// "chromem" (embedded chromem-go database).
	Provider string `koanf:"provider"`
	// Path is the snapshot directory.
	Path string `koanf:"path"`
	// Compress gzips chromem's persisted documents. Ignored by flat.
	Compress bool `koanf:"compress"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = "flat"
	}
	if c.Path == "" {
		c.Path = "data/index"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Provider {
	case "flat", "chromem":
	default:
		return fmt.Errorf("%w: unknown provider %q (want flat or chromem)", ErrInvalidConfig, c.Provider)
	}
	if c.Path == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidConfig)
	}
	return nil
}

// NewBuilder returns an empty index for a fresh build. Any on-disk state
// under the configured path is replaced on Persist.
func NewBuilder(cfg Config, dim int) (Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "flat":
		return NewFlatIndex(cfg.Path, dim)
	case "chromem":
		return NewChromemIndex(cfg.Path, dim, cfg.Compress)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// Open loads a persisted index and validates it against the active
// embedder's model and dimension.
func Open(cfg Config, modelID string, dim int) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "flat":
		return OpenFlatIndex(cfg.Path, modelID, dim)
	case "chromem":
		return OpenChromemIndex(cfg.Path, modelID, dim)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
