// Package cmd defines the CLI commands for the handbook-ingest executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ragops/handbook-ingest/internal/config"
	"github.com/ragops/handbook-ingest/internal/logging"
)

var (
	cfgFile string
	v       = viper.New()
)

// newRootCmd creates and configures the root command with every pipeline
// stage as a subcommand.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handbook-ingest",
		Short: "Polite, resumable ingestion pipeline for the GitLab Handbook",
		Long: `handbook-ingest crawls a restricted slice of the GitLab Handbook and
prepares it for retrieval: raw pages are fetched politely with a page
budget, cleaned into plain text, chunked along headings, and embedded
via an OpenAI-compatible endpoint. Interrupted crawls resume from the
append-only manifest without refetching.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newCleanCmd())
	cmd.AddCommand(newChunkCmd())
	cmd.AddCommand(newEmbedCmd())
	return cmd
}

// Execute is the main entry point. It installs signal handling so a SIGINT
// lets the crawl drain in-flight pages before exiting.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "handbook-ingest: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the process logger. Called at the
// top of every subcommand's RunE.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}

// syncLogger flushes buffered log entries at command exit.
func syncLogger(logger *zap.Logger) {
	// Sync on stderr returns EINVAL on some platforms; nothing to do about it.
	_ = logger.Sync()
}

// bindFlags attaches each flag to its configuration key. Flag defaults
// mirror the config defaults so an unbound flag never masks a config file
// value.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flagName := range keys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flagName)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flagName, err)
		}
	}
	return nil
}
