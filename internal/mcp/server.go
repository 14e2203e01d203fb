package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/streed/synapse/internal/constants"
	"github.com/streed/synapse/internal/logger"
	"github.com/streed/synapse/internal/metrics"
	"github.com/streed/synapse/internal/models"
	"github.com/streed/synapse/internal/services"
)

const dateTimeLayout = "2006-01-02 15:04:05"

type NotesServer struct {
	notes     *services.NotesService
	mcpServer *server.MCPServer
	tools     map[string]server.ToolHandlerFunc
}

func NewNotesServer(notes *services.NotesService, version string) *NotesServer {
	ns := &NotesServer{notes: notes, tools: map[string]server.ToolHandlerFunc{}}

	ns.mcpServer = server.NewMCPServer(
		"synapse",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
	)

	ns.registerTools()
	ns.registerResources()
	ns.registerPrompts()

	return ns
}

func (s *NotesServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// Serve runs the server over stdin/stdout until the client disconnects.
func (s *NotesServer) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// addTool registers tool with a handler that logs and times each call.
// Domain failures are returned to the client as tool errors rather than
// protocol errors.
func (s *NotesServer) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	name := tool.Name
	wrapped := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger.Debug("MCP tool call: %s", name)
		done := metrics.TimeTool(name)

		result, err := handler(ctx, request)
		if err != nil {
			done(false)
			logger.Debug("MCP tool %s failed: %v", name, err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		done(true)
		return result, nil
	}
	s.tools[name] = wrapped
	s.mcpServer.AddTool(tool, wrapped)
}

// Tool returns the registered handler for name, or nil.
func (s *NotesServer) Tool(name string) server.ToolHandlerFunc {
	return s.tools[name]
}

func (s *NotesServer) registerTools() {
	s.addTool(mcp.NewTool("add_note",
		mcp.WithDescription("Add a new note. The note is embedded for semantic search and stored in the graph."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("The title of the note"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The content of the note"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags for the note (optional)"),
		),
	), s.handleAddNote)

	s.addTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Semantic search over notes, ranked by similarity"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language search query"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum number of results (default: 5, max: 100)"),
		),
	), s.handleSearchNotes)

	s.addTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, most recent first"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of notes to return (default: 100)"),
		),
	), s.handleListNotes)

	s.addTool(mcp.NewTool("get_note",
		mcp.WithDescription("Get a specific note by ID"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The ID of the note to retrieve"),
		),
	), s.handleGetNote)

	s.addTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note by ID"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The ID of the note to delete"),
		),
	), s.handleDeleteNote)

	s.addTool(mcp.NewTool("relate_notes",
		mcp.WithDescription("Create a typed relationship between two notes"),
		mcp.WithString("from_id",
			mcp.Required(),
			mcp.Description("The ID of the source note"),
		),
		mcp.WithString("to_id",
			mcp.Required(),
			mcp.Description("The ID of the target note"),
		),
		mcp.WithString("type",
			mcp.Description("Relationship type such as RELATED_TO or DEPENDS_ON (default: RELATED_TO)"),
		),
	), s.handleRelateNotes)

	s.addTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List all tags with the number of notes using each"),
	), s.handleListTags)
}

func (s *NotesServer) registerResources() {
	recentResource := mcp.NewResource("notes://recent",
		"Recent Notes",
		mcp.WithResourceDescription("The most recently created notes"),
		mcp.WithMIMEType("text/plain"),
	)
	s.mcpServer.AddResource(recentResource, s.handleRecentNotes)

	statsResource := mcp.NewResource("notes://stats",
		"Notes Statistics",
		mcp.WithResourceDescription("Note counts in the graph and vector stores plus the embedding model"),
		mcp.WithMIMEType("application/json"),
	)
	s.mcpServer.AddResource(statsResource, s.handleStats)
}

func (s *NotesServer) registerPrompts() {
	searchPrompt := mcp.NewPrompt("search_notes",
		mcp.WithPromptDescription("Search notes by meaning"),
		mcp.WithArgument("query",
			mcp.ArgumentDescription("What to look for"),
			mcp.RequiredArgument(),
		),
	)
	s.mcpServer.AddPrompt(searchPrompt, s.handleSearchPrompt)
}

// Tool handlers

func (s *NotesServer) handleAddNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'title': %w", err)
	}
	content, err := request.RequireString("content")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'content': %w", err)
	}
	tags := models.ParseTags(request.GetString("tags", ""))

	note, err := s.notes.Create(ctx, title, content, tags)
	if err != nil {
		return nil, err
	}

	result := fmt.Sprintf("Note created successfully with ID: %s\nTitle: %s", note.ID, note.Title)
	if len(note.Tags) > 0 {
		result += fmt.Sprintf("\nTags: %s", strings.Join(note.Tags, ", "))
	}
	return mcp.NewToolResultText(result), nil
}

func (s *NotesServer) handleSearchNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'query': %w", err)
	}
	topK := request.GetInt("top_k", constants.DefaultTopK)

	results, err := s.notes.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No notes found matching your query."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d notes:\n\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&b, "%d. [ID: %s] %s (%s)%s\n   %s\n\n",
			i+1, r.ID, r.Title, r.SimilarityPercentage, tagsSuffix(r.Tags),
			r.Preview(constants.SearchPreviewLength))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *NotesServer) handleListNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.notes.List(ctx, request.GetInt("limit", constants.DefaultListLimit))
	if err != nil {
		return nil, err
	}

	if len(notes) == 0 {
		return mcp.NewToolResultText("No notes found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Listing %d notes:\n\n", len(notes))
	for i, note := range notes {
		fmt.Fprintf(&b, "%d. [ID: %s] %s%s (Created: %s)\n   %s\n\n",
			i+1, note.ID, note.Title, tagsSuffix(note.Tags),
			note.CreatedAt.Format("2006-01-02"),
			note.Preview(constants.PreviewLength))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *NotesServer) handleGetNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'id': %w", err)
	}

	note, err := s.notes.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	result := fmt.Sprintf("Note ID: %s\nTitle: %s", note.ID, note.Title)
	if len(note.Tags) > 0 {
		result += fmt.Sprintf("\nTags: %s", strings.Join(note.Tags, ", "))
	}
	result += fmt.Sprintf("\nCreated: %s\nUpdated: %s\n\nContent:\n%s",
		note.CreatedAt.Format(dateTimeLayout),
		note.UpdatedAt.Format(dateTimeLayout),
		note.Content)

	if related, err := s.notes.Related(ctx, id); err == nil && len(related) > 0 {
		result += "\n\nRelated:"
		for _, r := range related {
			result += fmt.Sprintf("\n- [%s] %s (%s)", r.RelationType, r.Title, r.ID)
		}
	}

	return mcp.NewToolResultText(result), nil
}

func (s *NotesServer) handleDeleteNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'id': %w", err)
	}

	if err := s.notes.Delete(ctx, id); err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(fmt.Sprintf("Successfully deleted note %s", id)), nil
}

func (s *NotesServer) handleRelateNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fromID, err := request.RequireString("from_id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'from_id': %w", err)
	}
	toID, err := request.RequireString("to_id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'to_id': %w", err)
	}
	relType := request.GetString("type", constants.RelationRelatedTo)

	if err := s.notes.Relate(ctx, fromID, toID, relType); err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(fmt.Sprintf("Related %s -[%s]-> %s", fromID, strings.ToUpper(relType), toID)), nil
}

func (s *NotesServer) handleListTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.notes.Tags(ctx)
	if err != nil {
		return nil, err
	}

	if len(tags) == 0 {
		return mcp.NewToolResultText("No tags found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d tags:\n", len(tags))
	for _, tag := range tags {
		fmt.Fprintf(&b, "- %s (%d)\n", tag.Name, tag.Count)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// Resource handlers

func (s *NotesServer) handleRecentNotes(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	logger.Debug("MCP resource read: notes://recent")

	notes, err := s.notes.List(ctx, constants.RecentNotesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent notes: %w", err)
	}

	var b strings.Builder
	b.WriteString("Recent Notes:\n\n")
	for i, note := range notes {
		fmt.Fprintf(&b, "%d. [ID: %s] %s\n   Created: %s\n   %s\n\n",
			i+1, note.ID, note.Title,
			note.CreatedAt.Format(dateTimeLayout),
			note.Preview(constants.SearchPreviewLength))
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/plain",
			Text:     b.String(),
		},
	}, nil
}

func (s *NotesServer) handleStats(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	logger.Debug("MCP resource read: notes://stats")

	stats, err := s.notes.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// Prompt handlers

func (s *NotesServer) handleSearchPrompt(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	query := request.Params.Arguments["query"]
	prompt := fmt.Sprintf("Use the search_notes tool to find notes about: %s\n\nSummarize what the most similar notes say and cite their IDs.", query)

	return &mcp.GetPromptResult{
		Description: "Search prompt for notes",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(prompt),
			},
		},
	}, nil
}

func tagsSuffix(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return fmt.Sprintf(" [Tags: %s]", strings.Join(tags, ", "))
}
