package interfaces

import (
	"context"

	"github.com/libtrackai/libtrack/internal/models"
)

// SearchService gathers raw release evidence for a tracked component.
// This interface abstracts the evidence source, allowing different
// backends (web search, repository APIs, composites) to be swapped
// without affecting the engine or other consumers.
type SearchService interface {
	// Search collects release evidence for a component at or beyond
	// its currently installed version
	Search(ctx context.Context, component *models.TrackedComponent) (*models.SearchEvidence, error)

	// Name identifies the evidence source for logging
	Name() string
}
