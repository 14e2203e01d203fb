package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/streed/synapse/internal/constants"
	"github.com/streed/synapse/internal/services"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search notes by meaning",
	Long: `Embed the query and return the most similar notes, best match first.

Scores run from 0 to 1; identical text scores 1.0.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var (
	searchTopK  int
	searchShort bool
)

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", constants.DefaultTopK, "Maximum number of results")
	searchCmd.Flags().BoolVarP(&searchShort, "short", "s", false, "Show only ID, score and title")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	k := services.ClampTopK(searchTopK)

	results, err := svc.Notes.Search(cmd.Context(), query, k)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No matching notes found.")
		return nil
	}

	fmt.Fprintf(out, "Found %d notes for %q:\n\n", len(results), query)
	for i, r := range results {
		if searchShort {
			fmt.Fprintf(out, "%d. [%s] %s %s\n", i+1, r.SimilarityPercentage, r.ID, r.Title)
			continue
		}
		fmt.Fprintf(out, "%d. %s (%s)\n", i+1, r.Title, r.SimilarityPercentage)
		fmt.Fprintf(out, "   ID: %s\n", r.ID)
		if len(r.Tags) > 0 {
			fmt.Fprintf(out, "   Tags: %s\n", strings.Join(r.Tags, ", "))
		}
		fmt.Fprintf(out, "   %s\n\n", strings.ReplaceAll(r.Preview(constants.SearchPreviewLength), "\n", " "))
	}
	return nil
}
