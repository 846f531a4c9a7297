package pipeline

import (
	"log/slog"

	"github.com/starford/othala/internal/links"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// Default metadata values applied when the caller leaves a field empty.
const (
	DefaultAuthor   = "user"
	DefaultSource   = "inbox"
	DefaultType     = "note"
	DefaultStatus   = "processed"
	DefaultLanguage = "en"
)

// Processor orchestrates link detection, resolution, and copying for a
// single note, and finalizes its metadata.
type Processor struct {
	store     storage.Provider
	inboxRoot string
	isLocal   func(string) bool
	logger    *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLocalPredicate overrides the locality heuristic used for Markdown
// link targets.
func WithLocalPredicate(fn func(string) bool) Option {
	return func(p *Processor) {
		p.isLocal = fn
	}
}

// NewProcessor creates a Processor reading linked files from inboxRoot.
func NewProcessor(store storage.Provider, inboxRoot string, logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		store:     store,
		inboxRoot: inboxRoot,
		isLocal:   links.IsLocalPath,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the outcome of processing one note, ready for front-matter
// assembly and upload by the caller.
type Result struct {
	Content  string
	Detected models.DetectedLinks
	Copy     models.CopyResult
	Metadata models.Metadata
}

// Process runs detection, resolution, and copying for a note destined
// for destFolder, then returns the content (unchanged — link syntax is
// left exactly as authored, since copies preserve relative structure)
// together with the finalized metadata.
//
// The caller must have validated meta beforehand; here only absent
// optional fields are default-filled. A resolver failure propagates;
// per-file copy failures do not (they are reported in Result.Copy).
func (p *Processor) Process(content string, meta models.Metadata, destFolder string, copyLinks bool) (*Result, error) {
	detected := links.DetectWith(content, p.isLocal)

	copyResult := models.EmptyCopyResult()
	if copyLinks && detected.Total() > 0 {
		resolved, err := links.Resolve(p.store, detected, p.inboxRoot, p.logger)
		if err != nil {
			return nil, err
		}
		copyResult = links.CopyAll(p.store, resolved, destFolder, p.logger)
	}

	if names := detected.Names(); len(names) > 0 {
		meta.LinkedFiles = names
	}
	fillDefaults(&meta)

	return &Result{
		Content:  content,
		Detected: detected,
		Copy:     copyResult,
		Metadata: meta,
	}, nil
}

func fillDefaults(m *models.Metadata) {
	if m.Author == "" {
		m.Author = DefaultAuthor
	}
	if m.Source == "" {
		m.Source = DefaultSource
	}
	if m.Type == "" {
		m.Type = DefaultType
	}
	if m.Status == "" {
		m.Status = DefaultStatus
	}
	if m.Language == "" {
		m.Language = DefaultLanguage
	}
	if m.UID == "" {
		m.UID = UID(m.Title, m.Date)
	}
}
