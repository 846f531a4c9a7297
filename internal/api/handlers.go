package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/inbox"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/noteservice"
	"github.com/starford/othala/internal/pull"
)

const (
	maxListLimit     = 100
	defaultListLimit = 20
	maxBodyBytes     = 10 << 20
)

// Handler holds API route handlers.
type Handler struct {
	svc  *noteservice.Service
	pull *pull.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, pullSvc *pull.Service) *Handler {
	return &Handler{svc: svc, pull: pullSvc}
}

// clampLimit normalizes a listing limit into [1, maxListLimit].
func clampLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

// writeError maps a service error to an HTTP response.
func writeError(w http.ResponseWriter, err error, op string) {
	var verrs validation.Errors
	switch {
	case errors.Is(err, apperr.ErrInvalid), errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists), errors.Is(err, apperr.ErrBusy):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrGeneratorUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// UploadNote handles POST /api/notes.
//
//	@Summary		Save a raw note directly into the Knowledge Base
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UploadNoteRequest	true	"Note to save"
//	@Success		201		{object}	UploadNoteResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) UploadNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req UploadNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	kbPath, err := h.svc.SaveRaw(r.Context(), req.Title, req.Date, req.Content)
	if err != nil {
		writeError(w, err, "upload note")
		return
	}
	writeJSON(w, http.StatusCreated, UploadNoteResponse{KBPath: kbPath})
}

// ListInboxFiles handles GET /api/inbox/files.
//
//	@Summary		List every pending inbox note
//	@Tags			inbox
//	@Produce		json
//	@Success		200	{object}	InboxFilesResponse
//	@Security		BearerAuth
//	@Router			/inbox/files [get]
func (h *Handler) ListInboxFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.Scanner().Files()
	if err != nil {
		writeError(w, err, "list inbox files")
		return
	}

	// A full listing counts as a scan for the pull-state bookkeeping.
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Filename
	}
	h.pull.CommitScan(names)

	writeJSON(w, http.StatusOK, InboxFilesResponse{Files: files, Total: len(files)})
}

// ListInboxNotes handles GET /api/inbox/notes.
//
//	@Summary		List inbox notes with pagination
//	@Tags			inbox
//	@Produce		json
//	@Param			limit	query		int	false	"Page size (max 100)"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	InboxNotesResponse
//	@Security		BearerAuth
//	@Router			/inbox/notes [get]
func (h *Handler) ListInboxNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	page, err := h.svc.Scanner().Scan(clampLimit(limit), offset)
	if err != nil {
		writeError(w, err, "list inbox notes")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetInboxNote handles GET /api/inbox/notes/{filename}.
//
//	@Summary		Read one inbox note
//	@Tags			inbox
//	@Produce		json
//	@Param			filename	path		string	true	"Inbox filename"
//	@Success		200			{object}	InboxNoteResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/inbox/notes/{filename} [get]
func (h *Handler) GetInboxNote(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	content, err := h.svc.Scanner().NoteContent(filename)
	if err != nil {
		writeError(w, err, "get inbox note")
		return
	}
	writeJSON(w, http.StatusOK, InboxNoteResponse{
		Filename: filename,
		Title:    inbox.TitleFromFilename(filename),
		Content:  string(content),
		Size:     int64(len(content)),
	})
}

// ProcessInboxNote handles PATCH /api/inbox/notes/{filename}.
//
//	@Summary		Archive an inbox note into the Knowledge Base
//	@Tags			inbox
//	@Accept			json
//	@Produce		json
//	@Param			filename	path		string				true	"Inbox filename"
//	@Param			body		body		ProcessNoteRequest	true	"Archival action and metadata"
//	@Success		200			{object}	ProcessResult
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/inbox/notes/{filename} [patch]
func (h *Handler) ProcessInboxNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	filename := chi.URLParam(r, "filename")

	var req ProcessNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	meta := models.MetadataFromMap(req.Metadata)
	res, err := h.svc.ProcessInboxNote(r.Context(), filename, meta, req.CopyLinks())
	if err != nil {
		writeError(w, err, "process inbox note")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PullPreview handles POST /api/pull/preview.
//
//	@Summary		Preview the notes a pull batch would cover
//	@Tags			pull
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PreviewRequest	true	"Preview selection"
//	@Success		200		{object}	PreviewResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pull/preview [post]
func (h *Handler) PullPreview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	items, err := h.pull.Preview(r.Context(), req.Filenames, req.Limit, req.CustomInstructions)
	if err != nil {
		writeError(w, err, "pull preview")
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{Items: items, Total: len(items)})
}

// PullProcess handles POST /api/pull/process.
//
//	@Summary		Run one pull batch over the inbox
//	@Tags			pull
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BatchRequest	true	"Batch selection"
//	@Success		200		{object}	BatchResult
//	@Failure		409		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pull/process [post]
func (h *Handler) PullProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	res, err := h.pull.BatchProcess(r.Context(), req.Options())
	if err != nil {
		writeError(w, err, "pull process")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PullStatus handles GET /api/pull/status.
//
//	@Summary		Report pull-mode status
//	@Tags			pull
//	@Produce		json
//	@Success		200	{object}	PullStatus
//	@Security		BearerAuth
//	@Router			/pull/status [get]
func (h *Handler) PullStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.pull.CurrentStatus(r.Context())
	if err != nil {
		writeError(w, err, "pull status")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ListArchives handles GET /api/archives.
//
//	@Summary		List recently archived notes
//	@Tags			archives
//	@Produce		json
//	@Param			limit	query		int	false	"Max entries (max 100)"
//	@Success		200		{object}	ArchivesResponse
//	@Security		BearerAuth
//	@Router			/archives [get]
func (h *Handler) ListArchives(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, total, err := h.svc.Archives(r.Context(), clampLimit(limit))
	if err != nil {
		writeError(w, err, "list archives")
		return
	}
	writeJSON(w, http.StatusOK, ArchivesResponse{Archives: recs, Total: total})
}

// SearchArchives handles GET /api/archives/search.
//
//	@Summary		Search archived notes by title, summary and tags
//	@Tags			archives
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results (max 100)"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/archives/search [get]
func (h *Handler) SearchArchives(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	results, err := h.svc.SearchArchives(r.Context(), q.Get("q"), clampLimit(limit))
	if err != nil {
		writeError(w, err, "search archives")
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results, Total: len(results)})
}
