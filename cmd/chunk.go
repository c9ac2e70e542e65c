package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ragops/handbook-ingest/internal/pipeline/chunker"
)

// newChunkCmd creates the 'chunk' subcommand.
func newChunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "Split cleaned documents into heading-aware chunks",
		Long: `Splits each cleaned document along its upper-cased headings, then
windows oversized sections into overlapping character-bounded chunks
with stable per-document chunk IDs.`,
		RunE: runChunkCommand,
	}

	flags := cmd.Flags()
	flags.String("in", "data/clean/handbook_clean.jsonl", "cleaned documents JSONL path")
	flags.String("out", "data/chunks/handbook_chunks.jsonl", "output JSONL path")
	flags.Int("max-chars", 1200, "maximum characters per chunk")
	flags.Int("overlap", 200, "characters shared between consecutive chunks")

	cobra.CheckErr(bindFlags(cmd, map[string]string{
		"chunk.in_path":       "in",
		"chunk.out_path":      "out",
		"chunk.max_chars":     "max-chars",
		"chunk.overlap_chars": "overlap",
	}))
	return cmd
}

func runChunkCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	return chunker.New(cfg.Chunk, logger).Run(cmd.Context())
}
