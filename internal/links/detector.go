// Package links implements Obsidian-style link detection in Markdown,
// resolution of detected references against a source folder tree, and
// copying of the matched files into a destination tree.
package links

import (
	"regexp"
	"strings"

	"github.com/starford/othala/internal/models"
)

var (
	embeddedRe = regexp.MustCompile(`!\[\[([^\[\]]+)\]\]`)
	wikiRe     = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)
	mdImageRe  = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	mdLinkRe   = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)
)

// localPrefixes mark a Markdown target as local regardless of the
// extension heuristic below.
var localPrefixes = []string{"./", "../", "attachments/", "assets/"}

// IsLocalPath reports whether a Markdown link target looks like a local
// file rather than a URL or bare identifier. This is a heuristic, not a
// URL parser: relative and attachment-style prefixes qualify outright;
// otherwise anything that is not http/mailto and contains a dot is
// treated as a filename.
func IsLocalPath(p string) bool {
	for _, prefix := range localPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	if strings.HasPrefix(p, "http") || strings.HasPrefix(p, "mailto:") {
		return false
	}
	return strings.Contains(p, ".")
}

// Detect scans note content for the four link shapes and returns the
// references grouped by kind. Content without matches yields empty
// lists; nothing here does I/O or fails.
func Detect(content string) models.DetectedLinks {
	return DetectWith(content, IsLocalPath)
}

// DetectWith is Detect with a caller-supplied locality predicate for
// Markdown targets, so the heuristic can be tightened without touching
// the pipeline.
func DetectWith(content string, isLocal func(string) bool) models.DetectedLinks {
	detected := models.DetectedLinks{
		models.KindEmbeddedFile:  {},
		models.KindWikiLink:      {},
		models.KindMarkdownLink:  {},
		models.KindMarkdownImage: {},
	}

	for _, m := range embeddedRe.FindAllStringSubmatch(content, -1) {
		detected[models.KindEmbeddedFile] = append(detected[models.KindEmbeddedFile], models.LinkReference{
			Kind:    models.KindEmbeddedFile,
			RawText: m[1],
		})
	}

	// Wiki-link syntax is a sub-string of embedded-file syntax, and RE2
	// has no lookbehind, so matches preceded by '!' are skipped by
	// inspecting the byte before the match instead.
	for _, idx := range wikiRe.FindAllStringSubmatchIndex(content, -1) {
		if idx[0] > 0 && content[idx[0]-1] == '!' {
			continue
		}
		detected[models.KindWikiLink] = append(detected[models.KindWikiLink], models.LinkReference{
			Kind:    models.KindWikiLink,
			RawText: content[idx[2]:idx[3]],
		})
	}

	for _, m := range mdImageRe.FindAllStringSubmatch(content, -1) {
		if !isLocal(m[2]) {
			continue
		}
		detected[models.KindMarkdownImage] = append(detected[models.KindMarkdownImage], models.LinkReference{
			Kind:    models.KindMarkdownImage,
			RawText: m[2],
			Label:   m[1],
		})
	}

	// Same trick as wiki links: plain Markdown links preceded by '!'
	// are images and already handled above.
	for _, idx := range mdLinkRe.FindAllStringSubmatchIndex(content, -1) {
		if idx[0] > 0 && content[idx[0]-1] == '!' {
			continue
		}
		target := content[idx[4]:idx[5]]
		if !isLocal(target) {
			continue
		}
		detected[models.KindMarkdownLink] = append(detected[models.KindMarkdownLink], models.LinkReference{
			Kind:    models.KindMarkdownLink,
			RawText: target,
			Label:   content[idx[2]:idx[3]],
		})
	}

	return detected
}
