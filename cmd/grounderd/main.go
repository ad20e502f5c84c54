// Package main implements the grounderd CLI for building and querying
// documentation retrieval indexes.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/grounder/internal/config"
	"github.com/fyrsmithlabs/grounder/internal/embeddings"
	"github.com/fyrsmithlabs/grounder/internal/indexer"
	"github.com/fyrsmithlabs/grounder/internal/logging"
	"github.com/fyrsmithlabs/grounder/internal/reranker"
	"github.com/fyrsmithlabs/grounder/internal/retriever"
	"github.com/fyrsmithlabs/grounder/internal/telemetry"
	"github.com/fyrsmithlabs/grounder/internal/tokenizer"
	"github.com/fyrsmithlabs/grounder/internal/vectorstore"
)

var (
	// configPath is the YAML configuration file.
	configPath string
	// version information
	version = "dev"
)

func main() {
	// Local .env files carry API keys during development. Missing is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "grounderd",
	Short: "Build and query documentation retrieval indexes",
	Long: `grounderd indexes documentation sources into an embedding index and
answers questions against it with cited, token-budgeted context.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "grounder.yaml", "configuration file")
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(infoCmd)
}

// buildCmd rebuilds the index snapshot from configured sources
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the index from configured documentation sources",
	Long: `Build loads every configured source, chunks it, embeds the chunks and
persists a fresh index snapshot. The previous snapshot is replaced.

Examples:
  # Build with the default config file
  grounderd build

  # Build with an explicit config
  grounderd build --config docs/grounder.yaml`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

// queryCmd retrieves cited context for one question
var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Retrieve cited documentation context for a question",
	Long: `Query embeds the question, searches the index and prints the retrieved
context block followed by its citations.

Examples:
  # Ask a question
  grounderd query "how do lifetimes work?"

  # Tighten retrieval from the environment
  GROUNDER_RETRIEVAL_TOP_K=3 grounderd query "what is a slice?"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

// infoCmd prints the manifest of the current snapshot
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the current index snapshot manifest",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

// setup loads configuration and the pieces every command needs.
func setup() (*config.Config, *zap.Logger, tokenizer.Codec, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}
	codec, err := tokenizer.New(cfg.Tokenizer)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, codec, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, logger, codec, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	tel, err := telemetry.New(cmd.Context(), cfg.Telemetry, version)
	if err != nil {
		return err
	}
	defer tel.Shutdown(cmd.Context()) //nolint:errcheck

	if len(cfg.Sources) == 0 {
		return fmt.Errorf("no sources configured in %s", configPath)
	}

	embedder, err := embeddings.NewProvider(cfg.Embedding, codec, logger)
	if err != nil {
		return err
	}
	defer embedder.Close()

	builder, err := indexer.NewBuilder(cfg.Build, cfg.Sources, cfg.Chunking, codec, embedder, cfg.Index, logger)
	if err != nil {
		return err
	}

	report, err := builder.Build(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("build %s complete: %d documents, %d chunks, %d tokens in %s\n",
		report.BuildID, report.Documents, report.Chunks, report.TotalTokens, report.Duration.Round(10*time.Millisecond))
	for _, skip := range report.SkippedFiles {
		fmt.Printf("  skipped file %s: %s\n", skip.Path, skip.Reason)
	}
	for _, skip := range report.SkippedSections {
		fmt.Printf("  skipped section %q in %s: %s\n", skip.Heading, skip.Path, skip.Reason)
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, logger, codec, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	tel, err := telemetry.New(cmd.Context(), cfg.Telemetry, version)
	if err != nil {
		return err
	}
	defer tel.Shutdown(cmd.Context()) //nolint:errcheck

	embedder, err := embeddings.NewProvider(cfg.Embedding, codec, logger)
	if err != nil {
		return err
	}
	defer embedder.Close()

	handle, err := vectorstore.Open(cfg.Index, embedder.ModelID(), embedder.Dimension())
	if err != nil {
		return fmt.Errorf("opening index (run 'grounderd build' first?): %w", err)
	}
	defer handle.Index.Close()

	// An unreachable cross-encoder with reranking enabled aborts here.
	rr, err := reranker.New(cfg.Retrieval.Rerank)
	if err != nil {
		return err
	}
	if rr != nil {
		defer rr.Close()
	}

	service, err := retriever.NewService(cfg.Retrieval, embedder, handle, rr, logger)
	if err != nil {
		return err
	}

	result, err := service.Retrieve(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if result.Empty() {
		fmt.Println("no relevant documentation found")
		return nil
	}

	fmt.Println(result.Context())
	fmt.Println()
	fmt.Println("Sources:")
	for _, c := range result.Citations {
		fmt.Println("  - " + c)
	}
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, _, _, err := setup()
	if err != nil {
		return err
	}

	// Inspection needs no embedder; read the manifest sidecar directly.
	manifest, err := vectorstore.ReadManifest(cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("reading index manifest: %w", err)
	}
	printManifest(manifest)
	return nil
}

func printManifest(m vectorstore.Manifest) {
	fmt.Printf("build:      %s (%s)\n", m.BuildID, m.BuildTimestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("model:      %s (%d dimensions)\n", m.EmbeddingModelID, m.Dimension)
	fmt.Printf("tokenizer:  %s\n", m.Tokenizer)
	fmt.Printf("chunking:   max %d / target %d / overlap %d tokens\n",
		m.BuildConfig.MaxTokens, m.BuildConfig.TargetTokens, m.BuildConfig.OverlapTokens)
	fmt.Printf("chunks:     %d (%d tokens, avg %d per chunk)\n",
		m.ChunkCount, m.Stats.TotalTokens, m.Stats.AvgTokensPerChunk)

	if len(m.Stats.SourceChunks) > 0 {
		var lines []string
		for id, n := range m.Stats.SourceChunks {
			lines = append(lines, fmt.Sprintf("%s=%d", id, n))
		}
		fmt.Printf("sources:    %s\n", strings.Join(lines, " "))
	}
}
