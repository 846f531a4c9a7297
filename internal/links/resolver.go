package links

import (
	"log/slog"
	"path"
	"strings"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// kindOrder fixes the order in which references are resolved so output
// is deterministic across runs.
var kindOrder = []models.LinkKind{
	models.KindEmbeddedFile,
	models.KindWikiLink,
	models.KindMarkdownLink,
	models.KindMarkdownImage,
}

type fileEntry struct {
	name     string
	fullPath string
	relPath  string
}

// Resolve matches detected references to files physically present under
// sourceRoot. Wiki and embedded references match by exact filename;
// Markdown references match by relative path after stripping leading
// ./ and ../ segments. Unmatched references are dropped silently.
//
// Filename matches can be ambiguous when two files share a basename in
// different sub-folders; the shortest relative path wins, ties broken
// lexicographically, so resolution never depends on listing order.
func Resolve(store storage.Provider, detected models.DetectedLinks, sourceRoot string, logger *slog.Logger) ([]models.ResolvedLink, error) {
	files, err := listRecursive(store, sourceRoot, "", logger)
	if err != nil {
		return nil, err
	}

	var resolved []models.ResolvedLink
	for _, kind := range kindOrder {
		for _, ref := range detected[kind] {
			entry, ok := match(ref, files)
			if !ok {
				continue
			}
			resolved = append(resolved, models.ResolvedLink{
				Ref:          ref,
				SourcePath:   entry.fullPath,
				RelativePath: entry.relPath,
			})
		}
	}
	return resolved, nil
}

func match(ref models.LinkReference, files []fileEntry) (fileEntry, bool) {
	switch ref.Kind {
	case models.KindEmbeddedFile, models.KindWikiLink:
		var best fileEntry
		found := false
		for _, fe := range files {
			if fe.name != ref.RawText {
				continue
			}
			if !found || betterMatch(fe, best) {
				best = fe
				found = true
			}
		}
		return best, found

	case models.KindMarkdownLink, models.KindMarkdownImage:
		target := stripRelativePrefix(ref.RawText)
		for _, fe := range files {
			if fe.relPath == target {
				return fe, true
			}
		}
	}
	return fileEntry{}, false
}

// betterMatch prefers the shorter relative path, then the
// lexicographically smaller one.
func betterMatch(a, b fileEntry) bool {
	if len(a.relPath) != len(b.relPath) {
		return len(a.relPath) < len(b.relPath)
	}
	return a.relPath < b.relPath
}

func stripRelativePrefix(p string) string {
	for {
		switch {
		case strings.HasPrefix(p, "./"):
			p = p[2:]
		case strings.HasPrefix(p, "../"):
			p = p[3:]
		default:
			return p
		}
	}
}

// listRecursive enumerates every file under root, depth-first, carrying
// the path relative to root. A root listing failure aborts resolution;
// a sub-folder that cannot be listed just contributes zero files.
func listRecursive(store storage.Provider, root, rel string, logger *slog.Logger) ([]fileEntry, error) {
	folder := root
	if rel != "" {
		folder = path.Join(root, rel)
	}
	entries, err := store.List(folder)
	if err != nil {
		return nil, err
	}

	var out []fileEntry
	for _, e := range entries {
		childRel := e.Name
		if rel != "" {
			childRel = path.Join(rel, e.Name)
		}
		switch e.Kind {
		case storage.KindFolder:
			sub, subErr := listRecursive(store, root, childRel, logger)
			if subErr != nil {
				logger.Warn("links: skipping unreadable sub-folder",
					slog.String("folder", path.Join(folder, e.Name)),
					slog.String("error", subErr.Error()))
				continue
			}
			out = append(out, sub...)
		case storage.KindFile:
			out = append(out, fileEntry{
				name:     e.Name,
				fullPath: path.Join(root, childRel),
				relPath:  childRel,
			})
		}
	}
	return out, nil
}
