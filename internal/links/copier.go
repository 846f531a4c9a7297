package links

import (
	"log/slog"
	"path"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// CopyAll copies each resolved link into destRoot, preserving the
// relative path from the source tree. Copies run with overwrite
// disabled: a naming collision fails that file loudly instead of
// renaming it, which would desynchronize the note's link references
// from the archived attachment. One failed copy never blocks the rest.
func CopyAll(store storage.Provider, resolved []models.ResolvedLink, destRoot string, logger *slog.Logger) models.CopyResult {
	result := models.EmptyCopyResult()
	for _, rl := range resolved {
		outcome := models.CopyOutcome{
			RelativePath: rl.RelativePath,
			SourcePath:   rl.SourcePath,
			TargetPath:   path.Join(destRoot, rl.RelativePath),
		}
		if err := store.Copy(rl.SourcePath, outcome.TargetPath); err != nil {
			outcome.Error = err.Error()
			result.FailedFiles = append(result.FailedFiles, outcome)
			logger.Warn("links: copy failed",
				slog.String("source", rl.SourcePath),
				slog.String("target", outcome.TargetPath),
				slog.String("error", err.Error()))
			continue
		}
		result.CopiedFiles = append(result.CopiedFiles, outcome)
		result.TotalCopied++
	}
	return result
}
