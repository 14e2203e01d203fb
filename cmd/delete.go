package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/streed/synapse/internal/logger"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete one or more notes",
	Long: `Delete notes by their IDs from both the graph store and the vector store.

You will be prompted for confirmation unless --force is given.`,
	Args:    cobra.MinimumNArgs(1),
	Aliases: []string{"rm", "remove"},
	RunE:    runDelete,
}

var forceDelete bool

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "Skip confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	titles := make(map[string]string, len(args))
	var ids []string
	for _, id := range args {
		note, err := svc.Notes.Get(ctx, id)
		if err != nil {
			logger.Error("Note %s not found: %v", id, err)
			fmt.Fprintf(out, "Warning: note %s not found\n", id)
			continue
		}
		if _, seen := titles[id]; !seen {
			ids = append(ids, id)
		}
		titles[id] = note.Title
	}

	if len(ids) == 0 {
		return fmt.Errorf("no valid notes to delete")
	}

	fmt.Fprintln(out, "The following notes will be deleted:")
	fmt.Fprintln(out, strings.Repeat("-", 60))
	for _, id := range ids {
		fmt.Fprintf(out, "  [%s] %s\n", id, titles[id])
	}
	fmt.Fprintln(out, strings.Repeat("-", 60))

	if !forceDelete && !confirmDeletion(cmd.InOrStdin(), out, len(ids)) {
		fmt.Fprintln(out, "Deletion cancelled.")
		return nil
	}

	failCount := 0
	for _, id := range ids {
		if err := svc.Notes.Delete(ctx, id); err != nil {
			logger.Error("Failed to delete note %s: %v", id, err)
			fmt.Fprintf(out, "✗ Failed to delete note %s: %v\n", id, err)
			failCount++
			continue
		}
		fmt.Fprintf(out, "✓ Deleted note %s: %s\n", id, titles[id])
	}

	fmt.Fprintln(out, strings.Repeat("=", 60))
	if failCount > 0 {
		return fmt.Errorf("deleted %d note(s), failed to delete %d", len(ids)-failCount, failCount)
	}
	fmt.Fprintf(out, "Successfully deleted %d note(s).\n", len(ids))
	return nil
}

func confirmDeletion(in io.Reader, out io.Writer, count int) bool {
	if count == 1 {
		fmt.Fprint(out, "Are you sure you want to delete this note? (y/N): ")
	} else {
		fmt.Fprintf(out, "Are you sure you want to delete %d notes? (y/N): ", count)
	}

	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
