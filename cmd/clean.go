package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ragops/handbook-ingest/internal/pipeline/cleaner"
)

// newCleanCmd creates the 'clean' subcommand.
func newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Strip crawled pages down to their main text content",
		Long: `Reads every saved HTML page, removes scripts, navigation, and other
boilerplate, and writes one plain-text JSONL document per page that
still has content.`,
		RunE: runCleanCommand,
	}

	flags := cmd.Flags()
	flags.String("raw-pages-dir", "data/raw/pages", "directory of crawled HTML pages")
	flags.String("out", "data/clean/handbook_clean.jsonl", "output JSONL path")

	cobra.CheckErr(bindFlags(cmd, map[string]string{
		"clean.raw_pages_dir": "raw-pages-dir",
		"clean.out_path":      "out",
	}))
	return cmd
}

func runCleanCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	return cleaner.New(cfg.Clean, logger).Run(cmd.Context())
}
