package models

import (
	"github.com/go-playground/validator/v10"
)

// UpdateCategory represents the classified nature of an update
type UpdateCategory string

// UpdateCategory constants
const (
	CategoryMajor  UpdateCategory = "major"
	CategoryMinor  UpdateCategory = "minor"
	CategoryFuture UpdateCategory = "future"
)

// IsValidUpdateCategory checks if a given UpdateCategory is one of the valid constants
func IsValidUpdateCategory(category UpdateCategory) bool {
	switch category {
	case CategoryMajor, CategoryMinor, CategoryFuture:
		return true
	default:
		return false
	}
}

// ClassificationSignal is the normalized output of an LLM classification
// pass over search evidence. All fields are validated using
// go-playground/validator tags before the signal reaches the engine.
type ClassificationSignal struct {
	// Component identification
	Library string `json:"library" validate:"required"`
	Version string `json:"latest_version" validate:"required"`

	// Classification
	Category   UpdateCategory `json:"update_type" validate:"required,oneof=major minor future"`
	IsReleased bool           `json:"is_released"`

	// Confidence score (0-100); signals below the engine's gate
	// threshold are discarded
	Confidence int `json:"confidence" validate:"min=0,max=100"`

	// Dates as reported by the provider ("YYYY-MM-DD" or free text)
	ReleaseDate  string `json:"release_date,omitempty"`
	ExpectedDate string `json:"expected_release_date,omitempty"`

	// Supporting detail
	Features  []string `json:"key_features,omitempty"`
	SourceURL string   `json:"source_url,omitempty"`
	Summary   string   `json:"summary,omitempty"`
}

// Validate validates the signal using go-playground/validator.
// Returns an error if any required fields are missing or invalid.
func (s *ClassificationSignal) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}
