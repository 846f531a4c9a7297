package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/othala/internal/inbox"
	"github.com/starford/othala/internal/ledger"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/noteservice"
	"github.com/starford/othala/internal/pull"
)

// UploadNoteRequest is the request body for saving a raw note directly
// into the Knowledge Base.
type UploadNoteRequest struct {
	Title   string `json:"title" example:"Quick Thought" validate:"required"`
	Date    string `json:"date,omitempty" example:"2025-07-03"`
	Content string `json:"content" example:"# Quick Thought" validate:"required"`
}

// Validate checks required fields; Date is optional and defaults to
// today downstream.
func (r UploadNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Date, validation.Date(models.DateLayout)),
		validation.Field(&r.Content, validation.Required),
	)
}

// ProcessNoteRequest is the request body for archiving an inbox note.
type ProcessNoteRequest struct {
	Action          string         `json:"action" example:"process" validate:"required"`
	Metadata        map[string]any `json:"metadata" validate:"required"`
	CopyLinkedFiles *bool          `json:"copy_linked_files,omitempty"`
}

// Validate accepts only the "process" action.
func (r ProcessNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Action, validation.Required, validation.In("process")),
		validation.Field(&r.Metadata, validation.Required),
	)
}

// CopyLinks resolves the copy flag, defaulting to true.
func (r ProcessNoteRequest) CopyLinks() bool {
	return r.CopyLinkedFiles == nil || *r.CopyLinkedFiles
}

// PreviewRequest is the request body for a pull preview.
type PreviewRequest struct {
	Filenames          []string `json:"filenames,omitempty"`
	Limit              int      `json:"limit,omitempty" example:"5"`
	CustomInstructions string   `json:"custom_instructions,omitempty"`
}

// Validate bounds the preview limit.
func (r PreviewRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Limit, validation.Min(0), validation.Max(pull.MaxPreview)),
	)
}

// BatchRequest is the request body for a pull batch run.
type BatchRequest struct {
	Filenames          []string `json:"filenames,omitempty"`
	BatchSize          int      `json:"batch_size,omitempty" example:"5"`
	AutoApprove        *bool    `json:"auto_approve,omitempty"`
	CopyLinkedFiles    *bool    `json:"copy_linked_files,omitempty"`
	CustomInstructions string   `json:"custom_instructions,omitempty"`
}

// Validate bounds the batch size.
func (r BatchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BatchSize, validation.Min(0), validation.Max(pull.MaxBatchSize)),
	)
}

// Options resolves the batch flags; auto-approval and link copying both
// default to on.
func (r BatchRequest) Options() pull.BatchOptions {
	return pull.BatchOptions{
		Filenames:          r.Filenames,
		BatchSize:          r.BatchSize,
		AutoApprove:        r.AutoApprove == nil || *r.AutoApprove,
		CopyLinks:          r.CopyLinkedFiles == nil || *r.CopyLinkedFiles,
		CustomInstructions: r.CustomInstructions,
	}
}

// UploadNoteResponse is returned after a raw note upload.
type UploadNoteResponse struct {
	KBPath string `json:"kb_path" example:"NotesKB/2025-07/2025-07-03_quick_thought.md" validate:"required"`
}

// InboxFilesResponse wraps a full inbox listing.
type InboxFilesResponse struct {
	Files []models.InboxNote `json:"files" validate:"required"`
	Total int                `json:"total" example:"3" validate:"required"`
}

// InboxNotesResponse wraps a paginated inbox listing.
type InboxNotesResponse = inbox.ScanResult

// InboxNoteResponse is one inbox note with its content.
type InboxNoteResponse struct {
	Filename string `json:"filename" example:"2025-07-03_ideas.md" validate:"required"`
	Title    string `json:"title" example:"ideas" validate:"required"`
	Content  string `json:"content" validate:"required"`
	Size     int64  `json:"size" example:"128" validate:"required"`
}

// ProcessResult is the archival outcome (aliased from the domain layer).
type ProcessResult = noteservice.ProcessResult

// BatchResult aggregates a pull batch (aliased from the domain layer).
type BatchResult = pull.BatchResult

// PreviewResponse wraps a pull preview.
type PreviewResponse struct {
	Items []pull.PreviewItem `json:"items" validate:"required"`
	Total int                `json:"total" example:"2" validate:"required"`
}

// PullStatus reports the pull subsystem (aliased from the domain layer).
type PullStatus = pull.Status

// ArchivesResponse wraps recent archive ledger entries.
type ArchivesResponse struct {
	Archives []ledger.Record `json:"archives" validate:"required"`
	Total    int             `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps archive search hits.
type SearchResponse struct {
	Results []ledger.SearchResult `json:"results" validate:"required"`
	Total   int                   `json:"total" example:"3" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"diagram.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
}
