package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/streed/synapse/internal/config"
	"github.com/streed/synapse/internal/logger"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-embed every note with the current embedding configuration",
	Long: `Empty the vector store and re-embed every note in the graph store.

This is necessary after changing the embedding provider, model or vector
dimensions, and repairs notes whose vector write failed.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

var forceReindex bool

func init() {
	rootCmd.AddCommand(reindexCmd)
	reindexCmd.Flags().BoolVarP(&forceReindex, "force", "f", false, "Reindex even if the embedding configuration hasn't changed")
}

func runReindex(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	currentHash := appConfig.GetVectorConfigHash()
	if !forceReindex && appConfig.VectorConfigVersion == currentHash {
		fmt.Fprintln(out, "Embedding configuration hasn't changed. Use --force to reindex anyway.")
		return nil
	}

	fmt.Fprintf(out, "Reindexing notes with:\n")
	fmt.Fprintf(out, "  Provider: %s\n", appConfig.EmbeddingProvider)
	fmt.Fprintf(out, "  Model: %s\n", appConfig.EmbeddingModel)
	fmt.Fprintf(out, "  Dimensions: %d\n\n", appConfig.VectorDimensions)

	count, err := svc.Notes.Reindex(cmd.Context(), progressReporter(cmd.ErrOrStderr(), "Reindexing"))
	if err != nil {
		return fmt.Errorf("reindex stopped after %d notes: %w", count, err)
	}
	fmt.Fprintf(out, "Reindexing complete: %d notes reindexed.\n", count)

	appConfig.VectorConfigVersion = currentHash
	if err := config.Save(appConfig); err != nil {
		logger.Error("Failed to update configuration: %v", err)
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}
