package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/streed/synapse/internal/importer"
	"github.com/streed/synapse/internal/models"
)

var importCmd = &cobra.Command{
	Use:   "import <directory>",
	Short: "Import Markdown files as notes",
	Long: `Import every Markdown file under a directory as a note.

Each file may start with a YAML front matter block:

  ---
  title: Calculus
  tags: [math, school]
  ---

Without a title the first "# " heading is used, then the file name.
Files that cannot be parsed are skipped and reported.

Examples:
  synapse import ~/notes
  synapse import ~/notes --pattern "journal/**/*.md" --tags journal`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	importPattern string
	importTags    string
)

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVarP(&importPattern, "pattern", "p", importer.DefaultPattern, "Glob pattern selecting files, relative to the directory")
	importCmd.Flags().StringVarP(&importTags, "tags", "T", "", "Additional tags for every imported note (comma-separated)")
}

func runImport(cmd *cobra.Command, args []string) error {
	root := expandPath(args[0])
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Importing %s from %s...\n", importPattern, root)
	result, err := importer.ImportDir(cmd.Context(), svc.Notes, root, importer.DirOptions{
		Pattern:  importPattern,
		Tags:     models.ParseTags(importTags),
		Progress: progressReporter(cmd.ErrOrStderr(), "Importing"),
	})
	if result != nil {
		for _, skipped := range result.Skipped {
			fmt.Fprintf(out, "Skipped %s: %v\n", skipped.Path, skipped.Err)
		}
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintf(out, "Imported %d notes, skipped %d files.\n", len(result.Imported), len(result.Skipped))
	return nil
}
