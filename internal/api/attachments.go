package api

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/othala/internal/storage"
)

const maxUploadBytes = 50 << 20 // 50 MB

// AttachmentHandler accepts binary files into the inbox so notes can
// reference them before archival.
type AttachmentHandler struct {
	store     storage.Provider
	inboxRoot string
}

// NewAttachmentHandler creates a handler writing into the inbox root.
func NewAttachmentHandler(store storage.Provider, inboxRoot string) *AttachmentHandler {
	return &AttachmentHandler{store: store, inboxRoot: inboxRoot}
}

// safeName validates that the filename is a plain name (no path
// separators, no traversal).
func safeName(name string) error {
	if name == "" {
		return fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return fmt.Errorf("invalid filename: %s", name)
	}
	if strings.ContainsAny(name, `/\:*?"<>|`) {
		return fmt.Errorf("invalid filename: %s", name)
	}
	return nil
}

// Upload handles POST /api/inbox/attachments (multipart/form-data, field "file").
//
//	@Summary		Upload a file into the inbox
//	@Tags			inbox
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"File to upload"
//	@Success		201		{object}	AttachmentUploadResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/inbox/attachments [post]
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	if err := safeName(header.Filename); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	if err := h.store.Upload(path.Join(h.inboxRoot, header.Filename), data); err != nil {
		writeError(w, err, "upload attachment")
		return
	}

	writeJSON(w, http.StatusCreated, AttachmentUploadResponse{
		Filename: header.Filename,
		Size:     int64(len(data)),
	})
}
