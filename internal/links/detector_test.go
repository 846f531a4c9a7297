package links

import (
	"testing"

	"github.com/starford/othala/internal/models"
)

func TestDetect_EmbeddedFileNotCountedAsWikiLink(t *testing.T) {
	d := Detect("![[a.png]]")
	if n := len(d[models.KindEmbeddedFile]); n != 1 {
		t.Fatalf("embedded = %d, want 1", n)
	}
	if d[models.KindEmbeddedFile][0].RawText != "a.png" {
		t.Errorf("raw_text = %q", d[models.KindEmbeddedFile][0].RawText)
	}
	if n := len(d[models.KindWikiLink]); n != 0 {
		t.Errorf("wiki = %d, want 0", n)
	}
}

func TestDetect_WikiLink(t *testing.T) {
	d := Detect("see [[Some Note.md]] and ![[pic.png]]")
	if n := len(d[models.KindWikiLink]); n != 1 {
		t.Fatalf("wiki = %d, want 1", n)
	}
	if d[models.KindWikiLink][0].RawText != "Some Note.md" {
		t.Errorf("raw_text = %q", d[models.KindWikiLink][0].RawText)
	}
}

func TestDetect_MarkdownImageLocalityFilter(t *testing.T) {
	d := Detect("![chart](https://example.com/x.png)")
	if n := len(d[models.KindMarkdownImage]); n != 0 {
		t.Errorf("remote image detected: %v", d[models.KindMarkdownImage])
	}

	d = Detect("![chart](./assets/x.png)")
	if n := len(d[models.KindMarkdownImage]); n != 1 {
		t.Fatalf("local image = %d, want 1", n)
	}
	ref := d[models.KindMarkdownImage][0]
	if ref.RawText != "./assets/x.png" || ref.Label != "chart" {
		t.Errorf("ref = %+v", ref)
	}
}

func TestDetect_MarkdownLinkNotDoubleCountedAsImage(t *testing.T) {
	d := Detect("![alt](./a.png) and [doc](./b.pdf)")
	if n := len(d[models.KindMarkdownImage]); n != 1 {
		t.Errorf("image = %d, want 1", n)
	}
	if n := len(d[models.KindMarkdownLink]); n != 1 {
		t.Fatalf("link = %d, want 1", n)
	}
	if d[models.KindMarkdownLink][0].RawText != "./b.pdf" {
		t.Errorf("link raw_text = %q", d[models.KindMarkdownLink][0].RawText)
	}
}

func TestDetect_MailtoAndBareWordExcluded(t *testing.T) {
	d := Detect("[mail me](mailto:a@b.com) and [word](something)")
	if d.Total() != 0 {
		t.Errorf("total = %d, want 0", d.Total())
	}
}

func TestDetect_FilenameWithoutPrefixIsLocal(t *testing.T) {
	d := Detect("[spec](design.pdf)")
	if n := len(d[models.KindMarkdownLink]); n != 1 {
		t.Errorf("link = %d, want 1", n)
	}
}

func TestDetect_NoMatchesYieldsEmptyLists(t *testing.T) {
	d := Detect("plain text, nothing linked")
	for _, kind := range []models.LinkKind{
		models.KindEmbeddedFile, models.KindWikiLink,
		models.KindMarkdownLink, models.KindMarkdownImage,
	} {
		refs, ok := d[kind]
		if !ok {
			t.Errorf("kind %q missing from result", kind)
		}
		if len(refs) != 0 {
			t.Errorf("kind %q = %v, want empty", kind, refs)
		}
	}
}

func TestDetectWith_CustomPredicate(t *testing.T) {
	never := func(string) bool { return false }
	d := DetectWith("![x](./assets/x.png)", never)
	if d.Total() != 0 {
		t.Errorf("total = %d, want 0 with rejecting predicate", d.Total())
	}
}

func TestIsLocalPath(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"./pic.png", true},
		{"../notes/a.md", true},
		{"attachments/diagram.pdf", true},
		{"assets/logo.svg", true},
		{"report.pdf", true},
		{"https://example.com/a.png", false},
		{"http://example.com", false},
		{"mailto:user@example.com", false},
		{"someword", false},
	}
	for _, tc := range cases {
		if got := IsLocalPath(tc.in); got != tc.want {
			t.Errorf("IsLocalPath(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
