package models

import (
	"strings"
	"time"
)

// ComponentKind represents the kind of tracked component
type ComponentKind string

// ComponentKind constants
const (
	ComponentKindLibrary   ComponentKind = "library"
	ComponentKindFramework ComponentKind = "framework"
	ComponentKindLanguage  ComponentKind = "language"
	ComponentKindTool      ComponentKind = "tool"
)

// IsValidComponentKind checks if a given ComponentKind is one of the valid constants
func IsValidComponentKind(kind ComponentKind) bool {
	switch kind {
	case ComponentKindLibrary, ComponentKindFramework, ComponentKindLanguage, ComponentKindTool:
		return true
	default:
		return false
	}
}

// Notification preference values. Category preferences reuse the
// UpdateCategory constants; PrefFuture opts a component into
// pre-release alerts.
const (
	PrefFuture = "future"
	PrefMajor  = "major"
	PrefMinor  = "minor"
)

// NotificationPreferences is the set of alert kinds a component opts into
type NotificationPreferences []string

// Has returns true if the preference set contains the given value
func (p NotificationPreferences) Has(pref string) bool {
	for _, v := range p {
		if strings.EqualFold(strings.TrimSpace(v), pref) {
			return true
		}
	}
	return false
}

// TrackedComponent represents a single library, framework, language or
// tool whose release lifecycle is monitored
type TrackedComponent struct {
	Name           string                  `json:"name" validate:"required"`
	Kind           ComponentKind           `json:"kind,omitempty" validate:"omitempty,oneof=library framework language tool"`
	CurrentVersion string                  `json:"current_version" validate:"required"`
	RepoSlug       string                  `json:"repo_slug,omitempty"` // optional "owner/repo" hint for release lookups
	Notify         NotificationPreferences `json:"notify"`
}

// Key returns the normalized identity of the component (lowercased,
// trimmed name) used for record keying and deduplication
func (c *TrackedComponent) Key() string {
	return strings.ToLower(strings.TrimSpace(c.Name))
}

// Project represents a set of tracked components sharing recipients
type Project struct {
	ID         string             `json:"id"`
	Name       string             `json:"name" validate:"required"`
	Components []TrackedComponent `json:"components" validate:"dive"`
	Recipients []string           `json:"recipients" validate:"dive,email"`
	Enabled    bool               `json:"enabled"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}
