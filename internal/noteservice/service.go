// Package noteservice archives inbox notes into the Knowledge Base.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/frontmatter"
	"github.com/starford/othala/internal/inbox"
	"github.com/starford/othala/internal/ledger"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/pipeline"
	"github.com/starford/othala/internal/storage"
)

// ArchivePublisher receives a notification after each successful archival.
type ArchivePublisher interface {
	PublishArchiveEvent(sourceNote, kbPath string)
}

// ProcessResult describes a completed archival.
type ProcessResult struct {
	SourceNote          string               `json:"source_note"`
	KBPath              string               `json:"kb_path"`
	LinkedFilesDetected int                  `json:"linked_files_detected"`
	LinkedFilesCopied   int                  `json:"linked_files_copied"`
	CopiedFiles         []models.CopyOutcome `json:"copied_files"`
	FailedFiles         []models.CopyOutcome `json:"failed_files"`
	Metadata            models.Metadata      `json:"metadata"`
}

// Service coordinates storage, the processing pipeline, and the archive
// ledger.
type Service struct {
	store     storage.Provider
	scanner   *inbox.Scanner
	processor *pipeline.Processor
	ledger    ledger.ArchiveLedger
	events    ArchivePublisher
	inboxRoot string
	kbRoot    string
	logger    *slog.Logger
}

// NewService creates a note service. events may be nil.
func NewService(store storage.Provider, scanner *inbox.Scanner, processor *pipeline.Processor,
	led ledger.ArchiveLedger, events ArchivePublisher, inboxRoot, kbRoot string, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		scanner:   scanner,
		processor: processor,
		ledger:    led,
		events:    events,
		inboxRoot: inboxRoot,
		kbRoot:    kbRoot,
		logger:    logger,
	}
}

// ProcessInboxNote archives one inbox note: its content is enriched
// with the given metadata, linked files are copied alongside it, and
// the composed document lands in the date-partitioned Knowledge Base.
// The inbox file itself is left in place.
func (s *Service) ProcessInboxNote(ctx context.Context, filename string, meta models.Metadata, copyLinks bool) (*ProcessResult, error) {
	if !inbox.ValidFilename(filename) {
		return nil, fmt.Errorf("%w: filename %q", apperr.ErrInvalid, filename)
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}

	content, err := s.store.Download(path.Join(s.inboxRoot, filename))
	if err != nil {
		return nil, err
	}
	return s.archive(ctx, filename, string(content), meta, copyLinks)
}

// ArchiveGenerated archives a note whose metadata came from the pull
// generator. Pull-mode provenance defaults are applied before the
// shared archival path runs.
func (s *Service) ArchiveGenerated(ctx context.Context, filename, content string, meta models.Metadata, copyLinks bool) (*ProcessResult, error) {
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	if meta.Author == "" {
		meta.Author = "pull-mode"
	}
	if meta.Source == "" {
		meta.Source = "gpt-pull-mode"
	}
	return s.archive(ctx, filename, content, meta, copyLinks)
}

// SaveRaw uploads content directly into the Knowledge Base without any
// link processing or front-matter composition. An empty date defaults
// to today. The KB path of the stored note is returned.
func (s *Service) SaveRaw(_ context.Context, title, date, content string) (string, error) {
	if title == "" {
		return "", fmt.Errorf("%w: title is required", apperr.ErrInvalid)
	}
	if date == "" {
		date = time.Now().Format(models.DateLayout)
	}
	folder, name, err := pipeline.ArchivePath(s.kbRoot, title, date)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	kbPath := path.Join(folder, name)
	if err := s.store.Upload(kbPath, []byte(content)); err != nil {
		return "", err
	}
	s.logger.Info("raw note saved", slog.String("kb_path", kbPath))
	return kbPath, nil
}

// Archives returns the most recent ledger entries, newest first.
func (s *Service) Archives(_ context.Context, limit int) ([]ledger.Record, int, error) {
	recs, err := s.ledger.Recent(limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.ledger.Count()
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// SearchArchives searches archived notes by title, summary and tags.
func (s *Service) SearchArchives(_ context.Context, query string, limit int) ([]ledger.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", apperr.ErrInvalid)
	}
	return s.ledger.Search(query, limit)
}

// archive is the shared path for push and pull mode: resolve the
// destination, run the link pipeline, compose front matter, upload,
// and record the outcome in the ledger.
func (s *Service) archive(_ context.Context, filename, content string, meta models.Metadata, copyLinks bool) (*ProcessResult, error) {
	folder, name, err := pipeline.ArchivePath(s.kbRoot, meta.Title, meta.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}

	res, err := s.processor.Process(content, meta, folder, copyLinks)
	if err != nil {
		return nil, err
	}

	doc, err := frontmatter.Compose(res.Metadata, res.Content)
	if err != nil {
		return nil, err
	}

	kbPath := path.Join(folder, name)
	if err := s.store.Upload(kbPath, []byte(doc)); err != nil {
		return nil, err
	}

	if _, err := s.ledger.Record(ledger.Record{
		Filename:    filename,
		KBPath:      kbPath,
		Title:       res.Metadata.Title,
		Date:        res.Metadata.Date,
		Summary:     res.Metadata.Summary,
		Tags:        res.Metadata.Tags,
		Checksum:    checksum.Sum([]byte(doc)),
		LinkedFiles: res.Metadata.LinkedFiles,
		LinksCopied: res.Copy.TotalCopied,
	}); err != nil {
		// The note is already archived; a ledger failure must not
		// undo that, so log and continue.
		s.logger.Error("ledger record failed",
			slog.String("kb_path", kbPath),
			slog.String("error", err.Error()))
	}

	if s.events != nil {
		s.events.PublishArchiveEvent(filename, kbPath)
	}

	s.logger.Info("note archived",
		slog.String("source_note", filename),
		slog.String("kb_path", kbPath),
		slog.Int("links_copied", res.Copy.TotalCopied))

	return &ProcessResult{
		SourceNote:          filename,
		KBPath:              kbPath,
		LinkedFilesDetected: res.Detected.Total(),
		LinkedFilesCopied:   res.Copy.TotalCopied,
		CopiedFiles:         res.Copy.CopiedFiles,
		FailedFiles:         res.Copy.FailedFiles,
		Metadata:            res.Metadata,
	}, nil
}

// Scanner exposes the underlying inbox scanner for read endpoints.
func (s *Service) Scanner() *inbox.Scanner {
	return s.scanner
}
