package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a note by ID",
	Long:  `Display the full content of a note and the notes related to it.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	note, err := svc.Notes.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get note: %w", err)
	}

	out := cmd.OutOrStdout()
	rule := strings.Repeat("=", 80)
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "ID: %s\n", note.ID)
	fmt.Fprintf(out, "Title: %s\n", note.Title)
	if len(note.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(note.Tags, ", "))
	}
	fmt.Fprintf(out, "Created: %s\n", note.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Updated: %s\n", note.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "%s\n\n", rule)
	fmt.Fprintln(out, note.Content)

	related, err := svc.Notes.Related(ctx, note.ID)
	if err != nil {
		return fmt.Errorf("failed to load related notes: %w", err)
	}
	if len(related) > 0 {
		fmt.Fprintf(out, "\nRelated notes:\n")
		for _, r := range related {
			fmt.Fprintf(out, "  [%s] %s (%s)\n", r.RelationType, r.Title, r.ID)
		}
	}
	fmt.Fprintln(out)

	return nil
}
