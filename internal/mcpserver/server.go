// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes NoteHub tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notehub/internal/apperr"
	"github.com/starford/notehub/internal/models"
	"github.com/starford/notehub/internal/querycache"
)

// Pages serves note listings, sharing in-flight requests per key.
type Pages interface {
	Fetch(ctx context.Context, key querycache.Key) (*models.PageResult, error)
	Invalidate()
}

// NoteService performs note mutations.
type NoteService interface {
	Create(ctx context.Context, d models.Draft) (*models.Note, error)
	Remove(ctx context.Context, id int64) (*models.Note, error)
}

// Server wraps the MCP server with NoteHub tools.
type Server struct {
	mcp   *server.MCPServer
	pages Pages
	notes NoteService
}

// ListResult is the list_notes payload.
type ListResult struct {
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
	Search     string        `json:"search,omitempty"`
	Notes      []models.Note `json:"notes"`
}

// New creates a new MCP server with all NoteHub tools registered.
func New(pages Pages, notes NoteService, version string) *Server {
	s := &Server{pages: pages, notes: notes}

	s.mcp = server.NewMCPServer(
		"NoteHub",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes newest first, 12 per page, optionally filtered by a search term."),
		mcp.WithNumber("page", mcp.Description("1-based page number (default 1)"), mcp.Min(1)),
		mcp.WithString("search", mcp.Description("Optional text matched against title and content")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. Read the notehub://note-tags resource first for field rules."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Note body")),
		mcp.WithString("tag", mcp.Required(), mcp.Enum(allTags()...), mcp.Description("Note tag")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note by id and return it."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

	s.mcp.AddResource(
		mcp.NewResource(TagsURI, "Note Contract",
			mcp.WithResourceDescription("Accepted note fields and tags."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTagsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func allTags() []string {
	tags := models.AllTags()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := req.GetInt("page", 1)
	if page < 1 {
		return mcp.NewToolResultError("page must be at least 1"), nil
	}
	key := querycache.Key{Page: page, Search: req.GetString("search", "")}

	res, err := s.pages.Fetch(ctx, key)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list notes: %v", err)), nil
	}
	out, _ := json.MarshalIndent(ListResult{
		Page:       res.Page,
		TotalPages: res.TotalPages,
		Search:     key.Search,
		Notes:      res.Items,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d := models.Draft{Title: title, Content: req.GetString("content", ""), Tag: models.NoteTag(tag)}

	note, err := s.notes.Create(ctx, d)
	if err != nil {
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			return mcp.NewToolResultError("rejected: " + ve.Message), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.pages.Invalidate()

	out, _ := json.MarshalIndent(note, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, err := s.notes.Remove(ctx, int64(id))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.pages.Invalidate()
			return mcp.NewToolResultError(fmt.Sprintf("not found: %d", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.pages.Invalidate()

	out, _ := json.MarshalIndent(note, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readTagsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      TagsURI,
			MIMEType: "text/markdown",
			Text:     NoteTagContract,
		},
	}, nil
}
