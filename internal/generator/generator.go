// Package generator produces note metadata from note content using an
// external language model.
package generator

import (
	"context"

	"github.com/starford/othala/internal/models"
)

// Generator turns raw note content into archival metadata.
type Generator interface {
	// Generate derives metadata for content. customInstructions, when
	// non-empty, is passed through to steer the generation. The
	// returned metadata always carries a valid title and date.
	Generate(ctx context.Context, content, customInstructions string) (models.Metadata, error)
}
