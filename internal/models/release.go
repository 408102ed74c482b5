package models

import "time"

// ReleaseRecord represents a confirmed, shipped version of a component.
// Release records are immutable once written; later sightings of the
// same component/version never modify the stored record.
type ReleaseRecord struct {
	ID string `json:"id" badgerhold:"unique"`

	Component string        `json:"component" badgerhold:"index"`
	Library   string        `json:"library"`
	Kind      ComponentKind `json:"kind,omitempty"`
	Version   string        `json:"version"`

	Category    UpdateCategory `json:"category"`
	Confidence  int            `json:"confidence"`
	ReleaseDate string         `json:"release_date,omitempty"`
	Features    []string       `json:"features,omitempty"`
	SourceURL   string         `json:"source_url,omitempty"`
	Summary     string         `json:"summary,omitempty"`

	// PromotedFrom is the future record this release was promoted
	// from, empty when the release was detected directly
	PromotedFrom string `json:"promoted_from,omitempty"`

	DetectedAt time.Time `json:"detected_at"`
}

// RecordKey returns the component|version key under which the record is stored
func (r *ReleaseRecord) RecordKey() string {
	return r.Component + "|" + r.Version
}
