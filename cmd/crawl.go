package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ragops/handbook-ingest/internal/app"
	"github.com/ragops/handbook-ingest/internal/clock/system"
	"github.com/ragops/handbook-ingest/internal/config"
)

// newCrawlCmd creates the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Fetch handbook pages into the raw output tree",
		Long: `Crawls the allowed handbook tree breadth-first from the configured
seeds, saving raw HTML pages and appending one manifest record per URL.
Rerunning resumes from the manifest: previously recorded URLs are never
refetched and still count toward the page budget.`,
		RunE: runCrawlCommand,
	}

	flags := cmd.Flags()
	flags.String("out-dir", "data/raw", "output directory for pages and the manifest")
	flags.Int("max-pages", 80, "page budget per session, counting resumed URLs")
	flags.Int("concurrency", 4, "number of concurrent fetch workers")
	flags.Float64("timeout", 10.0, "per-request timeout in seconds")
	flags.Int("retries", 2, "extra attempts for transient fetch failures")
	flags.Float64("delay", 0.7, "politeness delay before each fetch, in seconds")
	flags.Float64("jitter", 0.5, "random jitter added to delays, in seconds")
	flags.String("user-agent", config.DefaultUserAgent, "User-Agent header sent with every request")
	flags.StringSlice("seeds", config.DefaultSeeds, "starting URLs")
	flags.String("fetcher", "http", "fetch implementation: http or colly")

	cobra.CheckErr(bindFlags(cmd, map[string]string{
		"crawl.out_dir":         "out-dir",
		"crawl.max_pages":       "max-pages",
		"crawl.concurrency":     "concurrency",
		"crawl.timeout_seconds": "timeout",
		"crawl.retries":         "retries",
		"crawl.delay_seconds":   "delay",
		"crawl.jitter_seconds":  "jitter",
		"crawl.user_agent":      "user-agent",
		"crawl.seeds":           "seeds",
		"crawl.fetcher":         "fetcher",
	}))
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	a, err := app.NewApp(cfg, system.Clock{}, logger)
	if err != nil {
		return fmt.Errorf("init crawl: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if closeErr := a.Close(closeCtx); closeErr != nil {
			logger.Warn("shutdown incomplete", zap.Error(closeErr))
		}
	}()

	logger.Info("starting crawl", zap.String("run_id", a.RunID().String()))
	if err := a.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
