package models

import "path"

// LinkKind classifies a detected link occurrence.
type LinkKind string

const (
	KindEmbeddedFile  LinkKind = "embedded_file"
	KindWikiLink      LinkKind = "wiki_link"
	KindMarkdownLink  LinkKind = "markdown_link"
	KindMarkdownImage LinkKind = "markdown_image"
)

// linkKinds fixes the iteration order for aggregate operations over a
// DetectedLinks map, since Go map iteration order is randomized.
var linkKinds = []LinkKind{KindEmbeddedFile, KindWikiLink, KindMarkdownLink, KindMarkdownImage}

// LinkReference is one detected link occurrence in note content.
type LinkReference struct {
	Kind    LinkKind `json:"kind"`
	RawText string   `json:"raw_text"`
	Label   string   `json:"display_text,omitempty"`
}

// Name returns the referenced file name: the raw name for wiki and
// embedded links, the basename of the path for Markdown variants.
func (r LinkReference) Name() string {
	switch r.Kind {
	case KindMarkdownLink, KindMarkdownImage:
		return path.Base(r.RawText)
	}
	return r.RawText
}

// DetectedLinks maps each link kind to the references found in a note.
type DetectedLinks map[LinkKind][]LinkReference

// Total returns the number of detected references across all kinds.
func (d DetectedLinks) Total() int {
	n := 0
	for _, refs := range d {
		n += len(refs)
	}
	return n
}

// Names returns the deduplicated referenced file names in kind order.
func (d DetectedLinks) Names() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, kind := range linkKinds {
		for _, ref := range d[kind] {
			name := ref.Name()
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// ResolvedLink is a LinkReference matched to a file present in the
// source folder tree.
type ResolvedLink struct {
	Ref          LinkReference `json:"ref"`
	SourcePath   string        `json:"source_path"`
	RelativePath string        `json:"relative_path"`
}

// CopyOutcome is the per-file result of one copy attempt.
type CopyOutcome struct {
	RelativePath string `json:"relative_path"`
	SourcePath   string `json:"source_path"`
	TargetPath   string `json:"target_path"`
	Error        string `json:"error,omitempty"`
}

// CopyResult aggregates the outcomes of copying a note's linked files.
type CopyResult struct {
	CopiedFiles []CopyOutcome `json:"copied_files"`
	FailedFiles []CopyOutcome `json:"failed_files"`
	TotalCopied int           `json:"total_copied"`
}

// EmptyCopyResult returns a CopyResult with non-nil slices so it
// serializes as empty arrays rather than null.
func EmptyCopyResult() CopyResult {
	return CopyResult{CopiedFiles: []CopyOutcome{}, FailedFiles: []CopyOutcome{}}
}
