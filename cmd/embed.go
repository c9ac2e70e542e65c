package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ragops/handbook-ingest/internal/pipeline/embedder"
)

// newEmbedCmd creates the 'embed' subcommand.
func newEmbedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed chunks through an OpenAI-compatible endpoint",
		Long: `Streams chunks in batches to the configured embeddings endpoint and
writes one vector record per chunk, carrying the retrieval metadata
through unchanged.`,
		RunE: runEmbedCommand,
	}

	flags := cmd.Flags()
	flags.String("in", "data/chunks/handbook_chunks.jsonl", "chunks JSONL path")
	flags.String("out", "data/embeddings/handbook_embeddings.jsonl", "output JSONL path")
	flags.String("endpoint", "http://localhost:8089/v1/embeddings", "embeddings endpoint URL")
	flags.String("model", "sentence-transformers/all-MiniLM-L6-v2", "embedding model name")
	flags.Int("batch-size", 16, "chunks per embedding request")

	cobra.CheckErr(bindFlags(cmd, map[string]string{
		"embed.in_path":    "in",
		"embed.out_path":   "out",
		"embed.endpoint":   "endpoint",
		"embed.model":      "model",
		"embed.batch_size": "batch-size",
	}))
	return cmd
}

func runEmbedCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	return embedder.New(cfg.Embed, nil, logger).Run(cmd.Context())
}
