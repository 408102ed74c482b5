package common

import (
	"github.com/google/uuid"
)

// NewProjectID generates a unique project ID with the "prj_" prefix
func NewProjectID() string {
	return "prj_" + uuid.New().String()
}

// NewFutureID generates a unique future update record ID with the "fut_" prefix
func NewFutureID() string {
	return "fut_" + uuid.New().String()
}

// NewReleaseID generates a unique release record ID with the "rel_" prefix
func NewReleaseID() string {
	return "rel_" + uuid.New().String()
}

// NewIntentID generates a unique notification intent ID with the "ntf_" prefix
func NewIntentID() string {
	return "ntf_" + uuid.New().String()
}
