package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List all tags",
	Long:  `List all tags in the graph store with the number of notes carrying each.`,
	Args:  cobra.NoArgs,
	RunE:  runTags,
}

func init() {
	rootCmd.AddCommand(tagsCmd)
}

func runTags(cmd *cobra.Command, _ []string) error {
	tags, err := svc.Notes.Tags(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(tags) == 0 {
		fmt.Fprintln(out, "No tags found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "TAG\tNOTES\n")
	for _, tag := range tags {
		fmt.Fprintf(w, "%s\t%d\n", tag.Name, tag.Count)
	}
	return w.Flush()
}
