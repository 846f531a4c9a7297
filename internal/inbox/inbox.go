// Package inbox lists and reads pending notes awaiting archival.
package inbox

import (
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// Scanner reads the inbox folder through a storage provider.
type Scanner struct {
	store  storage.Provider
	root   string
	logger *slog.Logger
}

// NewScanner creates a Scanner over the given inbox root.
func NewScanner(store storage.Provider, root string, logger *slog.Logger) *Scanner {
	return &Scanner{store: store, root: root, logger: logger}
}

// Root returns the inbox folder this scanner reads.
func (s *Scanner) Root() string {
	return s.root
}

// ScanResult is one page of inbox notes.
type ScanResult struct {
	Notes   []models.InboxNote `json:"notes"`
	Total   int                `json:"total"`
	HasMore bool               `json:"has_more"`
}

// Stats summarizes the inbox without reading note contents.
type Stats struct {
	TotalNotes int    `json:"total_notes"`
	TotalSize  int64  `json:"total_size"`
	Latest     string `json:"latest,omitempty"`
	Oldest     string `json:"oldest,omitempty"`
}

// ValidFilename reports whether name is acceptable as an inbox note
// filename: it must end in .md and contain no path separators or other
// path-hostile characters.
func ValidFilename(name string) bool {
	if !strings.HasSuffix(name, ".md") || len(name) == len(".md") {
		return false
	}
	return !strings.ContainsAny(name, `/\:*?"<>|`)
}

// TitleFromFilename derives a display title from an inbox filename.
// A leading YYYY-MM-DD_ date prefix is stripped, the extension dropped,
// and separators replaced with spaces.
func TitleFromFilename(name string) string {
	base := strings.TrimSuffix(name, ".md")
	if first, rest, ok := strings.Cut(base, "_"); ok && strings.Count(first, "-") == 2 {
		base = rest
	}
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	return strings.TrimSpace(base)
}

// Files returns every Markdown entry currently in the inbox root,
// newest first. Sub-folders and non-Markdown files are skipped.
func (s *Scanner) Files() ([]models.InboxNote, error) {
	entries, err := s.store.List(s.root)
	if err != nil {
		return nil, err
	}
	notes := make([]models.InboxNote, 0, len(entries))
	for _, e := range entries {
		if e.Kind != storage.KindFile || !strings.HasSuffix(e.Name, ".md") {
			continue
		}
		notes = append(notes, models.InboxNote{
			Filename: e.Name,
			Title:    TitleFromFilename(e.Name),
			Status:   "pending",
			Created:  e.Modified,
			Size:     e.Size,
			Path:     path.Join(s.root, e.Name),
		})
	}
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].Created.Equal(notes[j].Created) {
			return notes[i].Filename < notes[j].Filename
		}
		return notes[i].Created.After(notes[j].Created)
	})
	return notes, nil
}

// Scan returns one page of inbox notes, newest first.
func (s *Scanner) Scan(limit, offset int) (*ScanResult, error) {
	notes, err := s.Files()
	if err != nil {
		return nil, err
	}
	total := len(notes)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return &ScanResult{
		Notes:   notes[offset:end],
		Total:   total,
		HasMore: end < total,
	}, nil
}

// NoteContent reads one inbox note by filename.
func (s *Scanner) NoteContent(filename string) ([]byte, error) {
	if !ValidFilename(filename) {
		return nil, apperr.ErrNotFound
	}
	return s.store.Download(path.Join(s.root, filename))
}

// Summarize computes aggregate inbox statistics.
func (s *Scanner) Summarize() (*Stats, error) {
	notes, err := s.Files()
	if err != nil {
		return nil, err
	}
	st := &Stats{TotalNotes: len(notes)}
	for _, n := range notes {
		st.TotalSize += n.Size
	}
	if len(notes) > 0 {
		st.Latest = notes[0].Filename
		st.Oldest = notes[len(notes)-1].Filename
	}
	return st, nil
}
