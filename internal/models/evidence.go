package models

import "time"

// EvidenceSnippet is a single piece of release evidence from a search backend
type EvidenceSnippet struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url,omitempty"`
	Source  string `json:"source"` // backend that produced the snippet (e.g., "serper", "github")
}

// SearchEvidence is the merged raw evidence gathered for a component
// during a sweep, fed to the classifier
type SearchEvidence struct {
	Component      string            `json:"component"`
	CurrentVersion string            `json:"current_version"`
	Queries        []string          `json:"queries,omitempty"`
	Snippets       []EvidenceSnippet `json:"snippets"`

	// LatestVersionCandidate is the highest version mentioned in the
	// snippets that exceeds the current version, if any
	LatestVersionCandidate string `json:"latest_version_candidate,omitempty"`

	RetrievedAt time.Time `json:"retrieved_at"`
}

// IsEmpty returns true if no usable snippets were gathered
func (e *SearchEvidence) IsEmpty() bool {
	return e == nil || len(e.Snippets) == 0
}
