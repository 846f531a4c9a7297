// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Othala capture and archival tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/inbox"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/noteservice"
	"github.com/starford/othala/internal/storage"
)

// Server wraps the MCP server with Othala tools.
type Server struct {
	mcp     *server.MCPServer
	store   storage.Provider
	scanner *inbox.Scanner
	svc     *noteservice.Service
}

// New creates a new MCP server with all Othala tools registered.
func New(store storage.Provider, scanner *inbox.Scanner, svc *noteservice.Service) *Server {
	s := &Server{store: store, scanner: scanner, svc: svc}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("save_note",
		mcp.WithDescription("Save a note directly into the Knowledge Base. "+
			"Content MUST follow the canonical note format. Read the contract "+
			"first via the get_note_contract tool or the othala://note-format resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown note body")),
		mcp.WithString("date", mcp.Description("ISO date (YYYY-MM-DD); defaults to today")),
	), s.saveNote)

	s.mcp.AddTool(mcp.NewTool("scan_inbox",
		mcp.WithDescription("List pending inbox notes awaiting archival, newest first."),
	), s.scanInbox)

	s.mcp.AddTool(mcp.NewTool("read_inbox_note",
		mcp.WithDescription("Read the full content of one inbox note."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Inbox filename (e.g. 2025-07-03_ideas.md)")),
	), s.readInboxNote)

	s.mcp.AddTool(mcp.NewTool("archive_note",
		mcp.WithDescription("Archive an inbox note into the Knowledge Base with the given metadata. "+
			"Linked files referenced from the note are copied alongside it."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Inbox filename to archive")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("date", mcp.Required(), mcp.Description("ISO date (YYYY-MM-DD)")),
		mcp.WithString("tags", mcp.Description("Comma-separated topic tags")),
		mcp.WithString("summary", mcp.Description("One-sentence summary")),
	), s.archiveNote)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Download a file (HTTP URL or base64 data URI) into the inbox "+
			"and return an embed snippet for referencing it from a note."),
		mcp.WithString("url", mcp.Required(), mcp.Description("HTTP(S) URL or data URI of the asset")),
		mcp.WithString("filename", mcp.Description("Optional filename; derived from the URL when omitted")),
	), s.uploadAsset)

	s.mcp.AddTool(mcp.NewTool("search_archives",
		mcp.WithDescription("Search archived Knowledge Base notes by title, summary and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
	), s.searchArchives)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical Othala note format contract. "+
			"Call this before saving notes to ensure correct structure."),
	), s.getNoteContract)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource("othala://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical Markdown note format produced by archival."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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

func (s *Server) saveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date := ""
	if v, dErr := req.RequireString("date"); dErr == nil {
		date = v
	}

	kbPath, err := s.svc.SaveRaw(ctx, title, date, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", kbPath)), nil
}

func (s *Server) scanInbox(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.scanner.Files()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("inbox is empty"), nil
	}
	out, _ := json.MarshalIndent(notes, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readInboxNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.scanner.NoteContent(filename)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", filename)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) archiveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	meta := models.Metadata{Title: title, Date: date}
	if v, tErr := req.RequireString("tags"); tErr == nil && v != "" {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				meta.Tags = append(meta.Tags, tag)
			}
		}
	}
	if v, sErr := req.RequireString("summary"); sErr == nil {
		meta.Summary = v
	}

	res, err := s.svc.ProcessInboxNote(ctx, filename, meta, true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchArchives(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.SearchArchives(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "othala://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
