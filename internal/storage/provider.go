// Package storage defines the backing-store abstraction for the Inbox
// and Knowledge Base folder trees.
package storage

import "time"

// EntryKind distinguishes files from folders in a listing.
type EntryKind string

const (
	KindFile   EntryKind = "file"
	KindFolder EntryKind = "folder"
)

// Entry is one item in a folder listing.
type Entry struct {
	Name     string    `json:"name"`
	Kind     EntryKind `json:"kind"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified_time"`
}

// Provider is the narrow contract the pipeline needs from a backing
// store. All paths are relative to the store root. Upload overwrites an
// existing file; Copy refuses to (a collision surfaces as an error).
type Provider interface {
	// List returns the immediate children of folder.
	List(folder string) ([]Entry, error)
	// Download returns the raw bytes of the file at path.
	Download(path string) ([]byte, error)
	// Upload writes content to path, creating parent folders and
	// overwriting any existing file.
	Upload(path string, content []byte) error
	// Copy duplicates the file at src to dst. It fails with
	// apperr.ErrAlreadyExists when dst is already present.
	Copy(src, dst string) error
}
