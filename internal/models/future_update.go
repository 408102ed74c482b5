package models

import "time"

// FutureStatus represents the lifecycle status of a future update record
type FutureStatus string

// FutureStatus constants
const (
	FutureStatusDetected  FutureStatus = "detected"  // predicted from pre-release evidence
	FutureStatusConfirmed FutureStatus = "confirmed" // manually confirmed by an operator
	FutureStatusReleased  FutureStatus = "released"  // promoted to a release record (terminal)
	FutureStatusCancelled FutureStatus = "cancelled" // prediction withdrawn (terminal)
)

// IsValidFutureStatus checks if a given FutureStatus is one of the valid constants
func IsValidFutureStatus(status FutureStatus) bool {
	switch status {
	case FutureStatusDetected, FutureStatusConfirmed, FutureStatusReleased, FutureStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status permits no further transitions
func (s FutureStatus) IsTerminal() bool {
	return s == FutureStatusReleased || s == FutureStatusCancelled
}

// CanTransitionTo reports whether a transition from s to target is legal.
// Terminal statuses permit nothing; detected may move anywhere; confirmed
// may only move to a terminal status.
func (s FutureStatus) CanTransitionTo(target FutureStatus) bool {
	if s.IsTerminal() || !IsValidFutureStatus(target) || s == target {
		return false
	}
	if s == FutureStatusConfirmed && target == FutureStatusDetected {
		return false
	}
	return true
}

// ChangeEntry records a single merge-time change to a future update record
type ChangeEntry struct {
	At     time.Time `json:"at"`
	Reason string    `json:"reason"`
}

// FutureUpdateRecord tracks a predicted, not-yet-released version of a
// component from first detection through promotion or cancellation
type FutureUpdateRecord struct {
	ID string `json:"id" badgerhold:"unique"`

	// Identity; Component is the normalized key, Library the display name
	Component string        `json:"component" badgerhold:"index"`
	Library   string        `json:"library"`
	Kind      ComponentKind `json:"kind,omitempty"`
	Version   string        `json:"version"`

	// Lifecycle
	Status FutureStatus `json:"status" badgerhold:"index"`

	// Classification detail
	Category           UpdateCategory `json:"category"`
	Confidence         int            `json:"confidence"`
	PreviousConfidence int            `json:"previous_confidence,omitempty"`
	ExpectedDate       string         `json:"expected_date,omitempty"`
	Features           []string       `json:"features,omitempty"`
	SourceURL          string         `json:"source_url,omitempty"`
	Summary            string         `json:"summary,omitempty"`

	// Merge audit trail
	History []ChangeEntry `json:"history,omitempty"`

	// Notification state; at most one future alert is ever sent per
	// component/version pair
	NotificationSent   bool       `json:"notification_sent"`
	NotificationSentAt *time.Time `json:"notification_sent_at,omitempty"`

	// Promotion linkage, set when the prediction materializes
	PromotedToRelease string     `json:"promoted_to_release,omitempty"`
	PromotedAt        *time.Time `json:"promoted_at,omitempty"`

	FirstDetected time.Time `json:"first_detected"`
	LastUpdated   time.Time `json:"last_updated"`
}

// RecordKey returns the component|version key under which the record is stored
func (r *FutureUpdateRecord) RecordKey() string {
	return r.Component + "|" + r.Version
}

// AddChange appends a merge change reason to the record's history
func (r *FutureUpdateRecord) AddChange(reason string) {
	r.History = append(r.History, ChangeEntry{At: time.Now(), Reason: reason})
}
