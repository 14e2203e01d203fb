package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	stats, err := svc.Notes.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Synapse Statistics ===")
	fmt.Fprintf(out, "Notes (graph, %s):  %d\n", stats.GraphBackend, stats.TotalNotesGraph)
	fmt.Fprintf(out, "Notes (vector):        %d\n", stats.TotalNotesVector)
	fmt.Fprintf(out, "Tags:                  %d\n", stats.TotalTags)
	fmt.Fprintf(out, "Embedding provider:    %s\n", stats.EmbeddingProvider)
	fmt.Fprintf(out, "Embedding model:       %s\n", stats.EmbeddingModel)
	if stats.TotalNotesGraph != stats.TotalNotesVector {
		fmt.Fprintln(out, "\nThe stores are out of step. Run 'synapse reindex --force' to rebuild the vector index.")
	}
	return nil
}
