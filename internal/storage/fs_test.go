package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/othala/internal/apperr"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestUploadAndDownload(t *testing.T) {
	s := tempStore(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Upload("Inbox/note.md", content); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	got, err := s.Download("Inbox/note.md")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestUploadOverwrites(t *testing.T) {
	s := tempStore(t)
	_ = s.Upload("a.md", []byte("old"))
	if err := s.Upload("a.md", []byte("new")); err != nil {
		t.Fatalf("Upload overwrite: %v", err)
	}
	got, _ := s.Download("a.md")
	if string(got) != "new" {
		t.Errorf("content = %q, want %q", got, "new")
	}
}

func TestDownloadNotFound(t *testing.T) {
	s := tempStore(t)
	_, err := s.Download("missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	s := tempStore(t)
	_ = s.Upload("Inbox/a.md", []byte("a"))
	_ = s.Upload("Inbox/attachments/pic.png", []byte{1, 2, 3})

	entries, err := s.List("Inbox")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	kinds := map[string]EntryKind{}
	for _, e := range entries {
		kinds[e.Name] = e.Kind
	}
	if kinds["a.md"] != KindFile {
		t.Errorf("a.md kind = %q", kinds["a.md"])
	}
	if kinds["attachments"] != KindFolder {
		t.Errorf("attachments kind = %q", kinds["attachments"])
	}
}

func TestListMissingFolder(t *testing.T) {
	s := tempStore(t)
	_, err := s.List("nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCopyPreservesContentAndRefusesOverwrite(t *testing.T) {
	s := tempStore(t)
	_ = s.Upload("Inbox/diagram.png", []byte("png-bytes"))

	if err := s.Copy("Inbox/diagram.png", "NotesKB/2025-07/diagram.png"); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	got, err := s.Download("NotesKB/2025-07/diagram.png")
	if err != nil {
		t.Fatalf("Download after copy: %v", err)
	}
	if string(got) != "png-bytes" {
		t.Errorf("content = %q", got)
	}

	// Second copy must fail loudly, not rename.
	err = s.Copy("Inbox/diagram.png", "NotesKB/2025-07/diagram.png")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestCopyMissingSource(t *testing.T) {
	s := tempStore(t)
	err := s.Copy("Inbox/nope.png", "NotesKB/nope.png")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempStore(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Download(p); err == nil {
			t.Errorf("expected error for download %q", p)
		}
		if err := s.Upload(p, []byte("x")); err == nil {
			t.Errorf("expected error for upload to %q", p)
		}
	}
}

func TestAtomicUploadLeavesNoTempFiles(t *testing.T) {
	s := tempStore(t)
	_ = s.Upload("atomic.md", []byte("original"))
	if err := s.Upload("atomic.md", []byte("updated")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".othala-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "othala-test-*")
	_ = f.Close()
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
