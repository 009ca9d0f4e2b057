// Package cli provides the command-line interface for ragweb.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/ragweb/internal/config"
	"github.com/raphaelgruber/ragweb/internal/llm"
	"github.com/raphaelgruber/ragweb/internal/metrics"
	"github.com/raphaelgruber/ragweb/internal/scraper"
	"github.com/raphaelgruber/ragweb/internal/service"
	"github.com/raphaelgruber/ragweb/internal/store"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, logger and session store
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	sessions   *store.Store

	// Per-process runtime statistics
	collector = metrics.NewCollector()

	// Lazy-initialized LLM components
	embedder *llm.Embedder
	model    *llm.Model
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ragweb",
	Short: "Chat with web pages from your terminal",
	Long: `Ragweb ingests web pages and lets you chat about their content.

Pages are fetched, reduced to readable text, chunked and embedded into an
in-memory similarity index. Questions are answered by an LLM grounded in
the most relevant chunks, with source URLs cited. Conversations persist
across runs in a local JSON session store.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}

		logger, logCleanup = config.SetupLogger(cfg.LogFile, level)
		slog.SetDefault(logger)

		var err error
		sessions, err = store.Open(cfg.SessionFile(), logger)
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// getModel lazily initializes the generation model.
func getModel() (*llm.Model, error) {
	if model == nil {
		var err error
		model, err = llm.NewModel(cfg)
		if err != nil {
			return nil, fmt.Errorf("init model: %w", err)
		}
	}
	return model, nil
}

// getEmbedder lazily initializes the embedding provider.
func getEmbedder() (*llm.Embedder, error) {
	if embedder == nil {
		var err error
		embedder, err = llm.NewEmbedder(cfg)
		if err != nil {
			return nil, fmt.Errorf("init embedder: %w", err)
		}
	}
	return embedder, nil
}

// newIngestService wires a ready-to-use ingestion pipeline.
func newIngestService() (*service.IngestService, error) {
	emb, err := getEmbedder()
	if err != nil {
		return nil, err
	}

	return service.NewIngestService(
		scraper.New(cfg.FetchTimeout, logger),
		emb,
		chunkConfig(),
		collector,
		logger,
	), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(statsCmd)
}
