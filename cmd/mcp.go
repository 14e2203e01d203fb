package cmd

import (
	"errors"
	"io"

	"github.com/spf13/cobra"
	"github.com/streed/synapse/internal/logger"
	"github.com/streed/synapse/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for LLM integration",
	Long: `Start a Model Context Protocol (MCP) server on stdio that lets LLMs work
with your notes.

Tools:
- add_note: Create a note with optional tags
- search_notes: Semantic search over notes
- list_notes: Most recent notes
- get_note: A note with its related notes
- delete_note: Remove a note from both stores
- relate_notes: Create a relationship between two notes
- list_tags: Tags with usage counts

Resources:
- notes://recent: Most recently created notes
- notes://stats: Store statistics

To use with Claude Desktop, add this to your claude_desktop_config.json:
{
  "mcpServers": {
    "synapse": {
      "command": "synapse",
      "args": ["mcp"]
    }
  }
}`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(_ *cobra.Command, _ []string) error {
	logger.Info("Starting MCP server...")
	notesServer := mcp.NewNotesServer(svc.Notes, Version)

	logger.Info("MCP server ready. Listening on stdio...")
	if err := notesServer.Serve(); err != nil && !errors.Is(err, io.EOF) {
		logger.Error("MCP server error: %v", err)
		return err
	}

	logger.Info("MCP server shutting down")
	return nil
}
