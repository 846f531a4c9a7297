package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/othala/internal/generator"
	"github.com/starford/othala/internal/inbox"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/noteservice"
	"github.com/starford/othala/internal/pipeline"
	"github.com/starford/othala/internal/pull"
	"github.com/starford/othala/internal/state"
	"github.com/starford/othala/internal/storage"
	"github.com/starford/othala/internal/testutil"
)

type stubGenerator struct {
	meta models.Metadata
	err  error
}

func (g *stubGenerator) Generate(context.Context, string, string) (models.Metadata, error) {
	return g.meta, g.err
}

// testEnv sets up a temp store, ledger, services, and router for testing.
// authToken="" means auth disabled; a non-empty token enables token mode.
func testEnv(t *testing.T, authToken string, gen generator.Generator) (*storage.FS, http.Handler) {
	t.Helper()

	store := testutil.TestStore(t)
	logger := slog.New(slog.DiscardHandler)
	led := testutil.TestLedger(t)

	scanner := inbox.NewScanner(store, "Inbox", logger)
	processor := pipeline.NewProcessor(store, "Inbox", logger)
	svc := noteservice.NewService(store, scanner, processor, led, nil, "Inbox", "NotesKB", logger)
	st := state.NewStore(filepath.Join(t.TempDir(), "state.json"))
	pullSvc := pull.NewService(svc, scanner, gen, st, logger)

	router := NewRouter(svc, pullSvc, store, "Inbox", authToken != "", authToken, nil)
	return store, router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadNote(t *testing.T) {
	store, router := testEnv(t, "", nil)

	w := doJSON(t, router, http.MethodPost, "/notes", map[string]string{
		"title":   "Quick Thought",
		"date":    "2025-07-03",
		"content": "# Quick Thought",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp UploadNoteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.KBPath != "NotesKB/2025-07/2025-07-03_quick_thought.md" {
		t.Errorf("kb_path = %q", resp.KBPath)
	}
	if _, err := store.Download(resp.KBPath); err != nil {
		t.Errorf("note not stored: %v", err)
	}
}

func TestUploadNote_Validation(t *testing.T) {
	_, router := testEnv(t, "", nil)

	w := doJSON(t, router, http.MethodPost, "/notes", map[string]string{"content": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing title: status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/notes", map[string]string{
		"title": "T", "date": "03/07/2025", "content": "x",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d", w.Code)
	}
}

func TestInboxListingAndRead(t *testing.T) {
	store, router := testEnv(t, "", nil)
	_ = store.Upload("Inbox/2025-07-03_ideas.md", []byte("# Ideas"))
	_ = store.Upload("Inbox/skipped.txt", []byte("not a note"))

	w := doJSON(t, router, http.MethodGet, "/inbox/files", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("files status = %d", w.Code)
	}
	var files InboxFilesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &files)
	if files.Total != 1 || files.Files[0].Filename != "2025-07-03_ideas.md" {
		t.Errorf("files = %+v", files)
	}

	w = doJSON(t, router, http.MethodGet, "/inbox/notes?limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("notes status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/inbox/notes/2025-07-03_ideas.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("note status = %d", w.Code)
	}
	var note InboxNoteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Content != "# Ideas" || note.Title != "ideas" {
		t.Errorf("note = %+v", note)
	}

	w = doJSON(t, router, http.MethodGet, "/inbox/notes/missing.md", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing note status = %d", w.Code)
	}
}

func TestProcessInboxNote(t *testing.T) {
	store, router := testEnv(t, "", nil)
	_ = store.Upload("Inbox/ideas.md", []byte("# Ideas\n\n![[diagram.png]]"))
	_ = store.Upload("Inbox/diagram.png", []byte("png"))

	w := doJSON(t, router, http.MethodPatch, "/inbox/notes/ideas.md", map[string]any{
		"action":   "process",
		"metadata": map[string]any{"title": "Ideas", "date": "2025-07-03"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res ProcessResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.KBPath != "NotesKB/2025-07/2025-07-03_ideas.md" || res.LinkedFilesCopied != 1 {
		t.Errorf("result = %+v", res)
	}
	if _, err := store.Download("NotesKB/2025-07/diagram.png"); err != nil {
		t.Errorf("linked file not copied: %v", err)
	}
}

func TestProcessInboxNote_Validation(t *testing.T) {
	store, router := testEnv(t, "", nil)
	_ = store.Upload("Inbox/ok.md", []byte("x"))

	// Unknown action.
	w := doJSON(t, router, http.MethodPatch, "/inbox/notes/ok.md", map[string]any{
		"action":   "delete",
		"metadata": map[string]any{"title": "T", "date": "2025-07-03"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown action: status = %d", w.Code)
	}

	// Missing metadata.
	w = doJSON(t, router, http.MethodPatch, "/inbox/notes/ok.md", map[string]any{"action": "process"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing metadata: status = %d", w.Code)
	}

	// Invalid date inside metadata.
	w = doJSON(t, router, http.MethodPatch, "/inbox/notes/ok.md", map[string]any{
		"action":   "process",
		"metadata": map[string]any{"title": "T", "date": "nope"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid date: status = %d", w.Code)
	}

	// Missing file.
	w = doJSON(t, router, http.MethodPatch, "/inbox/notes/gone.md", map[string]any{
		"action":   "process",
		"metadata": map[string]any{"title": "T", "date": "2025-07-03"},
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing file: status = %d", w.Code)
	}
}

func TestProcessInboxNote_CopyLinkedFilesFlag(t *testing.T) {
	store, router := testEnv(t, "", nil)
	_ = store.Upload("Inbox/ideas.md", []byte("![[diagram.png]]"))
	_ = store.Upload("Inbox/diagram.png", []byte("png"))

	w := doJSON(t, router, http.MethodPatch, "/inbox/notes/ideas.md", map[string]any{
		"action":            "process",
		"metadata":          map[string]any{"title": "Ideas", "date": "2025-07-03"},
		"copy_linked_files": false,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if _, err := store.Download("NotesKB/2025-07/diagram.png"); err == nil {
		t.Error("linked file copied despite copy_linked_files=false")
	}
}

func TestPullEndpoints(t *testing.T) {
	gen := &stubGenerator{meta: models.Metadata{Title: "Pulled", Date: "2025-07-03"}}
	store, router := testEnv(t, "", gen)
	_ = store.Upload("Inbox/one.md", []byte("pull me"))

	w := doJSON(t, router, http.MethodPost, "/pull/preview", map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("preview status = %d, body = %s", w.Code, w.Body.String())
	}
	var prev PreviewResponse
	_ = json.Unmarshal(w.Body.Bytes(), &prev)
	if prev.Total != 1 || prev.Items[0].Filename != "one.md" {
		t.Errorf("preview = %+v", prev)
	}
	if prev.Items[0].Metadata == nil || prev.Items[0].Metadata.Title != "Pulled" {
		t.Errorf("preview metadata = %+v", prev.Items[0].Metadata)
	}

	// A review run generates metadata but archives nothing.
	w = doJSON(t, router, http.MethodPost, "/pull/process", map[string]any{
		"batch_size": 5, "auto_approve": false,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("review status = %d, body = %s", w.Code, w.Body.String())
	}
	var review BatchResult
	_ = json.Unmarshal(w.Body.Bytes(), &review)
	if review.Skipped != 1 || review.Processed != 0 {
		t.Errorf("review batch = %+v", review)
	}
	if _, err := store.Download("NotesKB/2025-07/2025-07-03_pulled.md"); err == nil {
		t.Error("review run archived a note")
	}

	w = doJSON(t, router, http.MethodPost, "/pull/process", map[string]any{"batch_size": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("process status = %d, body = %s", w.Code, w.Body.String())
	}
	var batch BatchResult
	_ = json.Unmarshal(w.Body.Bytes(), &batch)
	if batch.Processed != 1 || batch.Failed != 0 {
		t.Errorf("batch = %+v", batch)
	}

	w = doJSON(t, router, http.MethodGet, "/pull/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status status = %d", w.Code)
	}
	var st PullStatus
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if !st.GeneratorAvailable || st.InboxTotal != 1 {
		t.Errorf("status = %+v", st)
	}
}

func TestPullEndpoints_GeneratorDisabled(t *testing.T) {
	store, router := testEnv(t, "", nil)
	_ = store.Upload("Inbox/one.md", []byte("x"))

	w := doJSON(t, router, http.MethodPost, "/pull/process", map[string]any{})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("process status = %d, want 503", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/pull/preview", map[string]any{})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("preview status = %d, want 503", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/pull/status", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status status = %d, want 200", w.Code)
	}
}

func TestPullProcess_GeneratorFailureCounted(t *testing.T) {
	gen := &stubGenerator{err: errors.New("model down")}
	store, router := testEnv(t, "", gen)
	_ = store.Upload("Inbox/one.md", []byte("x"))

	w := doJSON(t, router, http.MethodPost, "/pull/process", map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var batch BatchResult
	_ = json.Unmarshal(w.Body.Bytes(), &batch)
	if batch.Failed != 1 || batch.Processed != 0 {
		t.Errorf("batch = %+v", batch)
	}
}

func TestListArchives(t *testing.T) {
	store, router := testEnv(t, "", nil)
	_ = store.Upload("Inbox/ideas.md", []byte("content"))

	w := doJSON(t, router, http.MethodPatch, "/inbox/notes/ideas.md", map[string]any{
		"action":   "process",
		"metadata": map[string]any{"title": "Ideas", "date": "2025-07-03"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("archive status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/archives?limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("archives status = %d", w.Code)
	}
	var resp ArchivesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || len(resp.Archives) != 1 {
		t.Errorf("archives = %+v", resp)
	}
	if resp.Archives[0].Title != "Ideas" {
		t.Errorf("record = %+v", resp.Archives[0])
	}
}

func TestSearchArchives(t *testing.T) {
	store, router := testEnv(t, "", nil)
	_ = store.Upload("Inbox/ideas.md", []byte("content"))

	w := doJSON(t, router, http.MethodPatch, "/inbox/notes/ideas.md", map[string]any{
		"action": "process",
		"metadata": map[string]any{
			"title": "Gardening Ideas", "date": "2025-07-03",
			"summary": "Planting schedule", "tags": []string{"garden"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("archive status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/archives/search?q=gardening", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Results[0].Title != "Gardening Ideas" {
		t.Errorf("search = %+v", resp)
	}

	w = doJSON(t, router, http.MethodGet, "/archives/search?q=nothing-matches", nil)
	var empty SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &empty)
	if w.Code != http.StatusOK || empty.Total != 0 {
		t.Errorf("empty search: status = %d, resp = %+v", w.Code, empty)
	}

	// Query is required.
	w = doJSON(t, router, http.MethodGet, "/archives/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing query: status = %d", w.Code)
	}
}

func TestAttachmentUpload(t *testing.T) {
	store, router := testEnv(t, "", nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "diagram.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("png-bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/inbox/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	data, err := store.Download("Inbox/diagram.png")
	if err != nil {
		t.Fatalf("attachment not stored: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("content = %q", data)
	}
}

func TestAttachmentUpload_RejectsInvalidName(t *testing.T) {
	_, router := testEnv(t, "", nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "bad?.png")
	_, _ = fw.Write([]byte("x"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/inbox/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAuth(t *testing.T) {
	_, router := testEnv(t, "secret", nil)

	req := httptest.NewRequest(http.MethodGet, "/inbox/files", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/inbox/files", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/inbox/files", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d", w.Code)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	_, router := testEnv(t, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
