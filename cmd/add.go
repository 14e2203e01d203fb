package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	interrors "github.com/streed/synapse/internal/errors"
	"github.com/streed/synapse/internal/models"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new note",
	Long: `Add a new note with a title and content.

Content can be provided in two ways:
1. Via --content flag: synapse add -t "Title" -c "Content"
2. Via stdin: echo "Content" | synapse add -t "Title"`,
	RunE: runAdd,
}

var (
	addTitle   string
	addContent string
	addTags    string
)

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "Note title (required)")
	addCmd.Flags().StringVarP(&addContent, "content", "c", "", "Note content (read from stdin when omitted)")
	addCmd.Flags().StringVarP(&addTags, "tags", "T", "", "Tags for the note (comma-separated)")
	_ = addCmd.MarkFlagRequired("title")
}

func runAdd(cmd *cobra.Command, _ []string) error {
	content := addContent
	if content == "" {
		var err error
		content, err = readPipedContent(cmd.InOrStdin())
		if err != nil {
			return err
		}
	}

	note, err := svc.Notes.Create(cmd.Context(), addTitle, content, models.ParseTags(addTags))
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Note created successfully!\n")
	fmt.Fprintf(out, "ID: %s\n", note.ID)
	fmt.Fprintf(out, "Title: %s\n", note.Title)
	if len(note.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(note.Tags, ", "))
	}
	fmt.Fprintf(out, "Created: %s\n", note.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}

// readPipedContent reads note content from in unless in is an interactive
// terminal.
func readPipedContent(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return "", err
		}
		if stat.Mode()&os.ModeCharDevice != 0 {
			return "", interrors.Validation(interrors.ErrEmptyContent, "hint", "use --content or pipe the content on stdin")
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}
	return string(data), nil
}
