package common

import (
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// versionPattern matches dotted version mentions like "3.0" or "2.14.1"
var versionPattern = regexp.MustCompile(`\b\d+(\.\d+){1,2}\b`)

// canonicalVersion normalizes a dotted version string to the "vN.N.N"
// form the semver package expects
func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "v")
	if v == "" {
		return ""
	}
	return "v" + v
}

// IsValidVersion returns true if v parses as a dotted semantic version
func IsValidVersion(v string) bool {
	return semver.IsValid(canonicalVersion(v))
}

// CompareVersions compares two dotted version strings.
// Returns -1 if a < b, 0 if equal, +1 if a > b.
// Invalid versions compare lower than valid ones.
func CompareVersions(a, b string) int {
	return semver.Compare(canonicalVersion(a), canonicalVersion(b))
}

// IsNewerVersion returns true if candidate is a valid version strictly
// newer than current. Invalid input on either side returns false.
func IsNewerVersion(candidate, current string) bool {
	cv := canonicalVersion(candidate)
	cu := canonicalVersion(current)
	if !semver.IsValid(cv) || !semver.IsValid(cu) {
		return false
	}
	return semver.Compare(cv, cu) > 0
}

// ExtractVersions returns all dotted version mentions found in text,
// in order of appearance
func ExtractVersions(text string) []string {
	return versionPattern.FindAllString(text, -1)
}

// HighestVersion returns the highest valid version in candidates that is
// strictly newer than current, or empty string when none qualifies
func HighestVersion(candidates []string, current string) string {
	best := ""
	for _, c := range candidates {
		if !IsNewerVersion(c, current) {
			continue
		}
		if best == "" || CompareVersions(c, best) > 0 {
			best = c
		}
	}
	return best
}
