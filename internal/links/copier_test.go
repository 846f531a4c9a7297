package links

import (
	"testing"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

func TestCopyAll_PartialFailureIsolation(t *testing.T) {
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	_ = store.Upload("Inbox/one.png", []byte("one"))
	_ = store.Upload("Inbox/two.png", []byte("two"))
	// Pre-existing file at the destination of two.png forces a collision.
	_ = store.Upload("NotesKB/2025-07/two.png", []byte("already here"))

	resolved := []models.ResolvedLink{
		{Ref: models.LinkReference{Kind: models.KindEmbeddedFile, RawText: "one.png"}, SourcePath: "Inbox/one.png", RelativePath: "one.png"},
		{Ref: models.LinkReference{Kind: models.KindEmbeddedFile, RawText: "two.png"}, SourcePath: "Inbox/two.png", RelativePath: "two.png"},
	}

	result := CopyAll(store, resolved, "NotesKB/2025-07", discard())

	if result.TotalCopied != 1 {
		t.Errorf("total_copied = %d, want 1", result.TotalCopied)
	}
	if len(result.CopiedFiles) != 1 || result.CopiedFiles[0].RelativePath != "one.png" {
		t.Errorf("copied_files = %+v", result.CopiedFiles)
	}
	if len(result.FailedFiles) != 1 || result.FailedFiles[0].RelativePath != "two.png" {
		t.Errorf("failed_files = %+v", result.FailedFiles)
	}
	if result.FailedFiles[0].Error == "" {
		t.Error("failed outcome should carry an error reason")
	}

	// The collision must not have clobbered the existing file.
	data, _ := store.Download("NotesKB/2025-07/two.png")
	if string(data) != "already here" {
		t.Errorf("destination overwritten: %q", data)
	}
}

func TestCopyAll_EmptyInput(t *testing.T) {
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	result := CopyAll(store, nil, "NotesKB/2025-07", discard())
	if result.TotalCopied != 0 || len(result.CopiedFiles) != 0 || len(result.FailedFiles) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}
