// Package pipeline turns a raw inbox note plus metadata into an
// archived Knowledge Base document.
package pipeline

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/othala/internal/models"
)

// unsafeChars maps path-hostile characters to a safe substitute.
var unsafeChars = strings.NewReplacer(
	":", "-", "/", "-", `\`, "-", "*", "-",
	"?", "-", `"`, "-", "<", "-", ">", "-", "|", "-",
)

// SanitizeTitle converts a note title to a filename-safe slug:
// lower-cased, trimmed, whitespace collapsed to underscores,
// path-unsafe characters substituted.
func SanitizeTitle(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = unsafeChars.Replace(s)
	return strings.Join(strings.Fields(s), "_")
}

// UID derives the stable note identifier from its title and date.
func UID(title, date string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")
	return slug + "-" + date
}

// ArchivePath maps (title, date) to the destination folder and filename
// for an archived note: a YYYY-MM partition under kbRoot and a
// date-prefixed sanitized filename. The same inputs always yield the
// same pair. Date must be a valid ISO YYYY-MM-DD date.
func ArchivePath(kbRoot, title, date string) (folder, filename string, err error) {
	parsed, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return "", "", fmt.Errorf("pipeline: invalid date %q (want YYYY-MM-DD): %w", date, err)
	}
	folder = path.Join(kbRoot, parsed.Format("2006-01"))
	filename = fmt.Sprintf("%s_%s.md", date, SanitizeTitle(title))
	return folder, filename, nil
}
