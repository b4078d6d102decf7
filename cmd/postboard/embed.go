package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/postboard/internal/embedder"
)

// detectProvider picks the provider from the environment instead of config
var detectProvider bool

func init() {
	embedCmd.Flags().BoolVar(&detectProvider, "detect", false, "choose the provider from POSTBOARD_EMBEDDING_PROVIDER or available API keys")
	rootCmd.AddCommand(embedCmd)
}

var embedCmd = &cobra.Command{
	Use:   "embed <text>",
	Short: "Embed a piece of text to check the provider",
	Long: `Embed text with the configured provider and print the vector size.

Examples:
  postboard embed "hello world"
  JINA_API_KEY=... postboard embed --detect "hello world"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEmbed,
}

func runEmbed(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	provider := cfg.Embedding.Provider
	var emb embedder.Embedder
	if detectProvider {
		provider = embedder.DetectProvider()
		emb, err = embedder.NewFromEnv()
	} else {
		emb, err = newEmbedder(cfg.Embedding)
	}
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	if emb == nil {
		return fmt.Errorf("embedding provider %q is disabled", provider)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Embedding.Timeout)
	defer cancel()

	text := strings.Join(args, " ")
	resp, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	_ = logger.Sync()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Provider: %s\n", provider)
	fmt.Fprintf(out, "Dimension: %d\n", len(resp.Vector))
	n := min(5, len(resp.Vector))
	fmt.Fprintf(out, "First values: %v\n", resp.Vector[:n])
	return nil
}
