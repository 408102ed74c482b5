package models

import "time"

// IntentKind represents the kind of notification to deliver
type IntentKind string

// IntentKind constants
const (
	IntentFutureAlert     IntentKind = "future_alert"     // new future update detected
	IntentReleaseAlert    IntentKind = "release_alert"    // new release detected or promoted
	IntentConfidenceAlert IntentKind = "confidence_alert" // confidence rose materially on a known prediction
)

// NotificationIntent is a fully resolved instruction to notify
// recipients about a lifecycle event. The engine produces intents;
// the dispatcher renders and delivers them.
type NotificationIntent struct {
	ID   string     `json:"id"`
	Kind IntentKind `json:"kind"`

	Component     string         `json:"component"`
	Library       string         `json:"library"`
	ComponentKind ComponentKind  `json:"component_kind,omitempty"`
	Version       string         `json:"version"`
	Category      UpdateCategory `json:"category"`

	Confidence         int `json:"confidence"`
	PreviousConfidence int `json:"previous_confidence,omitempty"`

	ExpectedDate string   `json:"expected_date,omitempty"`
	ReleaseDate  string   `json:"release_date,omitempty"`
	Features     []string `json:"features,omitempty"`
	SourceURL    string   `json:"source_url,omitempty"`
	Summary      string   `json:"summary,omitempty"`

	// ChangeReason carries the merge audit string behind a confidence alert
	ChangeReason string `json:"change_reason,omitempty"`

	// Promoted is true on release alerts that settle an earlier prediction
	Promoted bool `json:"promoted,omitempty"`

	Recipients []string  `json:"recipients"`
	CreatedAt  time.Time `json:"created_at"`
}
