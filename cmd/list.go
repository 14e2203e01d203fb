package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/streed/synapse/internal/constants"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List notes",
	Long:    `List notes, most recent first, with their ID, title, and creation date.`,
	Aliases: []string{"ls"},
	RunE:    runList,
}

var (
	listLimit int
	listShort bool
)

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", 20, "Maximum number of notes to display")
	listCmd.Flags().BoolVarP(&listShort, "short", "s", false, "Show only ID and title")
}

func runList(cmd *cobra.Command, _ []string) error {
	notes, err := svc.Notes.List(cmd.Context(), listLimit)
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(notes) == 0 {
		fmt.Fprintln(out, "No notes found.")
		return nil
	}

	fmt.Fprintf(out, "Found %d notes:\n\n", len(notes))

	for _, note := range notes {
		if listShort {
			fmt.Fprintf(out, "[%s] %s\n", note.ID, note.Title)
			continue
		}
		fmt.Fprintf(out, "ID: %s\n", note.ID)
		fmt.Fprintf(out, "Title: %s\n", note.Title)
		if len(note.Tags) > 0 {
			fmt.Fprintf(out, "Tags: %s\n", strings.Join(note.Tags, ", "))
		}
		fmt.Fprintf(out, "Created: %s\n", formatTime(note.CreatedAt, time.Now()))
		fmt.Fprintf(out, "Preview: %s\n", strings.ReplaceAll(note.Preview(constants.PreviewLength), "\n", " "))
		fmt.Fprintln(out, strings.Repeat("-", 60))
	}

	return nil
}

func formatTime(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		minutes := int(diff.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}
