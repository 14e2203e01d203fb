// Package importer turns Markdown files and web pages into notes.
package importer

import (
	"context"
	"strings"

	"github.com/streed/synapse/internal/models"
)

// Creator is the part of the notes service an import writes through.
type Creator interface {
	Create(ctx context.Context, title, content string, tags []string) (*models.Note, error)
}

// Document is a parsed source ready to become a note.
type Document struct {
	Title   string
	Content string
	Tags    []string
	Source  string
}

// mergeTags appends extra to tags, keeping first occurrences.
func mergeTags(tags, extra []string) []string {
	return models.NormalizeTags(append(append([]string{}, tags...), extra...))
}

// cleanMarkdownContent trims each line and collapses runs of blank lines.
func cleanMarkdownContent(content string) string {
	lines := strings.Split(content, "\n")
	cleanLines := make([]string, 0, len(lines))

	previousLineEmpty := false
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(trimmed) == "" {
			if !previousLineEmpty {
				cleanLines = append(cleanLines, "")
				previousLineEmpty = true
			}
			continue
		}
		previousLineEmpty = false
		cleanLines = append(cleanLines, trimmed)
	}

	for len(cleanLines) > 0 && cleanLines[0] == "" {
		cleanLines = cleanLines[1:]
	}
	for len(cleanLines) > 0 && cleanLines[len(cleanLines)-1] == "" {
		cleanLines = cleanLines[:len(cleanLines)-1]
	}

	return strings.Join(cleanLines, "\n")
}
