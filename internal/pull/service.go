// Package pull orchestrates generator-driven batch archival of inbox
// notes.
package pull

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/generator"
	"github.com/starford/othala/internal/inbox"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/noteservice"
	"github.com/starford/othala/internal/state"
)

const (
	// DefaultBatchSize is used when a batch request names no size.
	DefaultBatchSize = 5
	// MaxBatchSize caps how many notes one batch may process.
	MaxBatchSize = 20
	// MaxPreview caps how many notes a preview may cover.
	MaxPreview = 20
)

// Per-note outcome statuses.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// NoteResult is the outcome for a single note in a batch.
type NoteResult struct {
	Filename          string           `json:"filename"`
	Status            string           `json:"status"`
	Metadata          *models.Metadata `json:"metadata,omitempty"`
	KBPath            string           `json:"kb_path,omitempty"`
	LinkedFilesCopied int              `json:"linked_files_copied,omitempty"`
	Error             string           `json:"error,omitempty"`
	Message           string           `json:"message,omitempty"`
}

// BatchResult aggregates a completed batch run.
type BatchResult struct {
	Total     int          `json:"total"`
	Processed int          `json:"processed"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Results   []NoteResult `json:"results"`
}

// BatchOptions selects the notes a batch covers and how far it goes.
// With AutoApprove off, metadata is generated and returned for review
// but nothing is archived.
type BatchOptions struct {
	Filenames          []string
	BatchSize          int
	AutoApprove        bool
	CopyLinks          bool
	CustomInstructions string
}

// PreviewItem is the dry-run outcome for one note: the metadata the
// generator produced for it, or the error that prevented it. Nothing
// is archived either way.
type PreviewItem struct {
	Filename string           `json:"filename"`
	Title    string           `json:"title"`
	Size     int64            `json:"size"`
	Excerpt  string           `json:"excerpt"`
	Metadata *models.Metadata `json:"metadata,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Status reports the pull subsystem's current condition.
type Status struct {
	GeneratorAvailable bool      `json:"generator_available"`
	BatchInProgress    bool      `json:"batch_in_progress"`
	InboxTotal         int       `json:"inbox_total"`
	InboxSize          int64     `json:"inbox_size"`
	LastScan           time.Time `json:"last_scan"`
	LastFiles          []string  `json:"last_files"`
}

// Service runs pull-mode batches. At most one batch is in flight at a
// time; concurrent attempts fail fast with ErrBusy.
type Service struct {
	notes   *noteservice.Service
	scanner *inbox.Scanner
	gen     generator.Generator
	state   *state.Store
	sem     *semaphore.Weighted
	logger  *slog.Logger
}

// NewService creates a pull service. gen may be nil when pull mode is
// disabled; batch operations then fail with ErrGeneratorUnavailable.
func NewService(notes *noteservice.Service, scanner *inbox.Scanner, gen generator.Generator,
	st *state.Store, logger *slog.Logger) *Service {
	return &Service{
		notes:   notes,
		scanner: scanner,
		gen:     gen,
		state:   st,
		sem:     semaphore.NewWeighted(1),
		logger:  logger,
	}
}

// clampBatch normalizes a requested batch size into [1, MaxBatchSize].
func clampBatch(n int) int {
	if n <= 0 {
		return DefaultBatchSize
	}
	if n > MaxBatchSize {
		return MaxBatchSize
	}
	return n
}

// candidates picks the notes a batch will cover: the explicit
// filenames when given, otherwise the newest inbox notes up to limit.
func (s *Service) candidates(filenames []string, limit int) ([]string, error) {
	if len(filenames) > 0 {
		if len(filenames) > limit {
			filenames = filenames[:limit]
		}
		return filenames, nil
	}
	notes, err := s.scanner.Files()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, limit)
	for _, n := range notes {
		if len(out) == limit {
			break
		}
		out = append(out, n.Filename)
	}
	return out, nil
}

// BatchProcess runs one pull batch: for each candidate note it reads
// the content, asks the generator for metadata, and (with AutoApprove)
// archives the result. Individual failures do not stop the batch. The
// scan state is committed once at the end, covering every candidate.
func (s *Service) BatchProcess(ctx context.Context, opts BatchOptions) (*BatchResult, error) {
	if s.gen == nil {
		return nil, apperr.ErrGeneratorUnavailable
	}
	if !s.sem.TryAcquire(1) {
		return nil, apperr.ErrBusy
	}
	defer s.sem.Release(1)

	names, err := s.candidates(opts.Filenames, clampBatch(opts.BatchSize))
	if err != nil {
		return nil, err
	}

	res := &BatchResult{Total: len(names), Results: make([]NoteResult, 0, len(names))}
	for _, name := range names {
		res.Results = append(res.Results, s.processOne(ctx, name, opts))
	}
	for _, r := range res.Results {
		switch r.Status {
		case StatusProcessed:
			res.Processed++
		case StatusSkipped:
			res.Skipped++
		default:
			res.Failed++
		}
	}

	if err := s.state.MarkScan(names); err != nil {
		s.logger.Error("pull: state save failed", slog.String("error", err.Error()))
	}

	s.logger.Info("pull: batch finished",
		slog.Int("total", res.Total),
		slog.Int("processed", res.Processed),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed))
	return res, nil
}

func (s *Service) processOne(ctx context.Context, name string, opts BatchOptions) NoteResult {
	content, err := s.scanner.NoteContent(name)
	if err != nil {
		return NoteResult{Filename: name, Status: StatusFailed, Error: "read failed: " + err.Error()}
	}
	if strings.TrimSpace(string(content)) == "" {
		return NoteResult{Filename: name, Status: StatusSkipped, Message: "empty note"}
	}

	meta, err := s.gen.Generate(ctx, string(content), opts.CustomInstructions)
	if err != nil {
		s.logger.Warn("pull: generation failed",
			slog.String("filename", name),
			slog.String("error", err.Error()))
		return NoteResult{Filename: name, Status: StatusFailed, Error: "generation failed: " + err.Error()}
	}

	if !opts.AutoApprove {
		return NoteResult{
			Filename: name,
			Status:   StatusSkipped,
			Metadata: &meta,
			Message:  "metadata generated, awaiting approval",
		}
	}

	archived, err := s.notes.ArchiveGenerated(ctx, name, string(content), meta, opts.CopyLinks)
	if err != nil {
		return NoteResult{Filename: name, Status: StatusFailed, Error: "archive failed: " + err.Error()}
	}
	return NoteResult{
		Filename:          name,
		Status:            StatusProcessed,
		Metadata:          &archived.Metadata,
		KBPath:            archived.KBPath,
		LinkedFilesCopied: archived.LinkedFilesCopied,
	}
}

// Preview dry-runs metadata generation over the notes a batch would
// pick up: each note is read and run through the generator, and the
// resulting metadata (or per-note error) is returned for inspection.
// Nothing is archived and no scan state is committed.
func (s *Service) Preview(ctx context.Context, filenames []string, limit int, customInstructions string) ([]PreviewItem, error) {
	if s.gen == nil {
		return nil, apperr.ErrGeneratorUnavailable
	}
	if limit <= 0 || limit > MaxPreview {
		limit = MaxPreview
	}
	names, err := s.candidates(filenames, limit)
	if err != nil {
		return nil, err
	}

	items := make([]PreviewItem, 0, len(names))
	for _, name := range names {
		item := PreviewItem{Filename: name, Title: inbox.TitleFromFilename(name)}
		content, err := s.scanner.NoteContent(name)
		if err != nil {
			item.Error = "read failed: " + err.Error()
			items = append(items, item)
			continue
		}
		item.Size = int64(len(content))
		item.Excerpt = excerpt(string(content), 200)

		meta, err := s.gen.Generate(ctx, string(content), customInstructions)
		if err != nil {
			s.logger.Warn("pull: preview generation failed",
				slog.String("filename", name),
				slog.String("error", err.Error()))
			item.Error = "generation failed: " + err.Error()
		} else {
			item.Metadata = &meta
		}
		items = append(items, item)
	}
	return items, nil
}

// CommitScan records that the caller just surveyed the inbox. Listing
// endpoints use it to keep the last-scan bookkeeping current.
func (s *Service) CommitScan(files []string) {
	if err := s.state.MarkScan(files); err != nil {
		s.logger.Error("pull: scan state save failed", slog.String("error", err.Error()))
	}
}

// CurrentStatus reports generator availability, batch occupancy, inbox
// totals, and the last committed scan.
func (s *Service) CurrentStatus(_ context.Context) (*Status, error) {
	stats, err := s.scanner.Summarize()
	if err != nil {
		return nil, err
	}
	st, err := s.state.Load()
	if err != nil {
		return nil, err
	}

	busy := !s.sem.TryAcquire(1)
	if !busy {
		s.sem.Release(1)
	}

	return &Status{
		GeneratorAvailable: s.gen != nil,
		BatchInProgress:    busy,
		InboxTotal:         stats.TotalNotes,
		InboxSize:          stats.TotalSize,
		LastScan:           st.LastScan,
		LastFiles:          st.LastFiles,
	}, nil
}

func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	// ToValidUTF8 drops a rune cut in half by the byte slice.
	return strings.ToValidUTF8(s[:max], "") + "…"
}
