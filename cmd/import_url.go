package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/streed/synapse/internal/importer"
	"github.com/streed/synapse/internal/models"
)

var importURLCmd = &cobra.Command{
	Use:   "import-url <url>",
	Short: "Import a web page as a note",
	Long: `Fetch a web page, extract its main content, convert it to Markdown
and store it as a note. The page title becomes the note title and the
source URL is appended to the content.

Examples:
  synapse import-url https://example.com/article
  synapse import-url https://blog.example.com/post --tags research`,
	Args: cobra.ExactArgs(1),
	RunE: runImportURL,
}

var (
	importURLTags    string
	importURLTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(importURLCmd)
	importURLCmd.Flags().StringVarP(&importURLTags, "tags", "T", "", "Additional tags for the note (comma-separated)")
	importURLCmd.Flags().DurationVar(&importURLTimeout, "timeout", importer.DefaultFetchTimeout, "HTTP timeout for fetching the page")
}

func runImportURL(cmd *cobra.Command, args []string) error {
	pageURL := args[0]
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Fetching %s...\n", pageURL)
	note, err := importer.ImportURL(cmd.Context(), svc.Notes, importer.NewFetcher(importURLTimeout), pageURL, models.ParseTags(importURLTags))
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", pageURL, err)
	}

	fmt.Fprintf(out, "Note created successfully!\n")
	fmt.Fprintf(out, "ID: %s\n", note.ID)
	fmt.Fprintf(out, "Title: %s\n", note.Title)
	if len(note.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(note.Tags, ", "))
	}
	fmt.Fprintf(out, "Content length: %d characters\n", len(note.Content))
	return nil
}
