package interfaces

import (
	"context"

	"github.com/libtrackai/libtrack/internal/models"
)

// ClassifierService turns raw search evidence into a structured
// classification signal via an LLM provider
type ClassifierService interface {
	// Classify analyzes evidence for a component and returns a
	// normalized, validated signal
	Classify(ctx context.Context, component *models.TrackedComponent, evidence *models.SearchEvidence) (*models.ClassificationSignal, error)

	// Provider returns the provider name (e.g., "claude", "gemini")
	Provider() string
}
