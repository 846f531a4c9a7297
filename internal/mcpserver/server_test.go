package mcpserver

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/othala/internal/inbox"
	"github.com/starford/othala/internal/noteservice"
	"github.com/starford/othala/internal/pipeline"
	"github.com/starford/othala/internal/storage"
	"github.com/starford/othala/internal/testutil"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()

	store := testutil.TestStore(t)
	logger := slog.New(slog.DiscardHandler)
	led := testutil.TestLedger(t)

	scanner := inbox.NewScanner(store, "Inbox", logger)
	processor := pipeline.NewProcessor(store, "Inbox", logger)
	svc := noteservice.NewService(store, scanner, processor, led, nil, "Inbox", "NotesKB", logger)

	srv := New(store, scanner, svc)
	return srv, store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "save_note":
		result, err = srv.saveNote(ctx, req)
	case "scan_inbox":
		result, err = srv.scanInbox(ctx, req)
	case "read_inbox_note":
		result, err = srv.readInboxNote(ctx, req)
	case "archive_note":
		result, err = srv.archiveNote(ctx, req)
	case "upload_asset":
		result, err = srv.uploadAsset(ctx, req)
	case "get_note_contract":
		result, err = srv.getNoteContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSaveNote(t *testing.T) {
	srv, store := testServer(t)

	r := callTool(t, srv, "save_note", map[string]interface{}{
		"title":   "Quick Thought",
		"content": "# Quick Thought",
		"date":    "2025-07-03",
	})
	text := resultText(r)
	if text != "saved: NotesKB/2025-07/2025-07-03_quick_thought.md" {
		t.Errorf("save result = %q", text)
	}
	if _, err := store.Download("NotesKB/2025-07/2025-07-03_quick_thought.md"); err != nil {
		t.Errorf("note not stored: %v", err)
	}
}

func TestScanAndReadInbox(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Upload("Inbox/pending.md", []byte("# Pending"))

	r := callTool(t, srv, "scan_inbox", map[string]interface{}{})
	if !strings.Contains(resultText(r), "pending.md") {
		t.Errorf("scan result = %q", resultText(r))
	}

	r = callTool(t, srv, "read_inbox_note", map[string]interface{}{"filename": "pending.md"})
	if resultText(r) != "# Pending" {
		t.Errorf("read result = %q", resultText(r))
	}
}

func TestScanInbox_Empty(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Upload("Inbox/.keep", []byte(""))

	r := callTool(t, srv, "scan_inbox", map[string]interface{}{})
	if resultText(r) != "inbox is empty" {
		t.Errorf("scan result = %q", resultText(r))
	}
}

func TestReadInboxNote_Missing(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Upload("Inbox/.keep", []byte(""))

	r := callTool(t, srv, "read_inbox_note", map[string]interface{}{"filename": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestArchiveNote(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Upload("Inbox/ideas.md", []byte("# Ideas\n\n![[diagram.png]]"))
	_ = store.Upload("Inbox/diagram.png", []byte("png"))

	r := callTool(t, srv, "archive_note", map[string]interface{}{
		"filename": "ideas.md",
		"title":    "Ideas",
		"date":     "2025-07-03",
		"tags":     "brainstorm, product",
	})
	if r.IsError {
		t.Fatalf("archive failed: %q", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, "NotesKB/2025-07/2025-07-03_ideas.md") {
		t.Errorf("archive result = %q", text)
	}
	if _, err := store.Download("NotesKB/2025-07/diagram.png"); err != nil {
		t.Errorf("linked file not copied: %v", err)
	}
}

func TestArchiveNote_InvalidDate(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Upload("Inbox/x.md", []byte("x"))

	r := callTool(t, srv, "archive_note", map[string]interface{}{
		"filename": "x.md",
		"title":    "X",
		"date":     "03/07/2025",
	})
	if !r.IsError {
		t.Error("expected error for invalid date")
	}
}

func TestUploadAsset_DataURI(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Upload("Inbox/.keep", []byte(""))

	// Minimal valid PNG header so content sniffing passes.
	png := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	r := callTool(t, srv, "upload_asset", map[string]interface{}{
		"url":      uri,
		"filename": "diagram.png",
	})
	if r.IsError {
		t.Fatalf("upload failed: %q", resultText(r))
	}
	if !strings.Contains(resultText(r), "![[diagram.png]]") {
		t.Errorf("upload result = %q", resultText(r))
	}
	if _, err := store.Download("Inbox/diagram.png"); err != nil {
		t.Errorf("asset not stored: %v", err)
	}

	// Second upload with the same name collides.
	r = callTool(t, srv, "upload_asset", map[string]interface{}{
		"url":      uri,
		"filename": "diagram.png",
	})
	if !r.IsError {
		t.Error("expected error for duplicate asset")
	}
}

func TestUploadAsset_RejectsBadExtension(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Upload("Inbox/.keep", []byte(""))

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("x"))
	r := callTool(t, srv, "upload_asset", map[string]interface{}{
		"url":      uri,
		"filename": "script.sh",
	})
	if !r.IsError {
		t.Error("expected error for disallowed extension")
	}
}

func TestGetNoteContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_note_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "Note Format Contract") {
		t.Error("contract text missing")
	}
}
