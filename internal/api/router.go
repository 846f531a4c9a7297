package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/noteservice"
	"github.com/starford/othala/internal/pull"
	"github.com/starford/othala/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, pullSvc *pull.Service, store storage.Provider,
	inboxRoot string, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, pullSvc)
	ah := NewAttachmentHandler(store, inboxRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Direct note capture.
	r.Post("/notes", h.UploadNote)

	// Inbox.
	r.Get("/inbox/files", h.ListInboxFiles)
	r.Get("/inbox/notes", h.ListInboxNotes)
	r.Get("/inbox/notes/{filename}", h.GetInboxNote)
	r.Patch("/inbox/notes/{filename}", h.ProcessInboxNote)
	r.Post("/inbox/attachments", ah.Upload)

	// Pull mode.
	r.Post("/pull/preview", h.PullPreview)
	r.Post("/pull/process", h.PullProcess)
	r.Get("/pull/status", h.PullStatus)

	// Archive ledger.
	r.Get("/archives", h.ListArchives)
	r.Get("/archives/search", h.SearchArchives)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
