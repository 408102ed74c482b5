package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/libtrackai/libtrack/internal/common"
	"github.com/libtrackai/libtrack/internal/models"
)

const (
	// defaultConfidence is assumed when the provider omits or mangles
	// the confidence field
	defaultConfidence = 50

	// candidatePenalty is subtracted when the provider's version is
	// overridden by a higher version seen in the raw evidence
	candidatePenalty = 10

	// minAdjustedConfidence floors confidence after penalties
	minAdjustedConfidence = 30
)

// ErrNoVersion is returned when the provider response carries no usable
// version; callers treat this as a skip rather than a failure
var ErrNoVersion = errors.New("classification carried no usable version")

// majorSignals are keywords that mark an update as major when the
// provider returns an unusable update_type
var majorSignals = []string{
	"breaking", "incompatible", "security", "cve", "vulnerability",
	"major", "deprecat", "removal", "rewrite",
}

var versionCharPattern = regexp.MustCompile(`[^0-9.\-]`)

// rawSignal mirrors the provider's JSON response before normalization.
// Confidence is decoded loosely since providers sometimes return it as
// a float or a quoted string.
type rawSignal struct {
	Library      string          `json:"library"`
	Version      string          `json:"latest_version"`
	IsReleased   *bool           `json:"is_released"`
	ReleaseDate  string          `json:"release_date"`
	ExpectedDate string          `json:"expected_release_date"`
	UpdateType   string          `json:"update_type"`
	Confidence   json.RawMessage `json:"confidence"`
	KeyFeatures  []string        `json:"key_features"`
	SourceURL    string          `json:"source_url"`
	Summary      string          `json:"summary"`
}

// extractJSON returns the first top-level JSON object in text.
// Providers occasionally wrap the object in prose or markdown fences.
func extractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return text[start : end+1], nil
}

// cleanVersion normalizes a version string: strips v/version prefixes,
// drops characters outside digits, dots and hyphens, and keeps at most
// three dotted parts
func cleanVersion(version string) string {
	v := strings.TrimSpace(strings.ToLower(version))
	v = strings.TrimPrefix(v, "version")
	v = strings.TrimPrefix(v, "v")
	v = strings.TrimSpace(v)
	v = versionCharPattern.ReplaceAllString(v, "")
	v = strings.Trim(v, ".-")

	parts := strings.Split(v, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, ".")
}

// coerceCategory maps a provider update_type onto a valid category.
// Invalid values fall back to keyword inspection of the summary and
// features: major signals win, everything else is minor.
func coerceCategory(updateType string, summary string, features []string) models.UpdateCategory {
	category := models.UpdateCategory(strings.ToLower(strings.TrimSpace(updateType)))
	if models.IsValidUpdateCategory(category) {
		return category
	}

	text := strings.ToLower(summary + " " + strings.Join(features, " "))
	for _, signal := range majorSignals {
		if strings.Contains(text, signal) {
			return models.CategoryMajor
		}
	}
	return models.CategoryMinor
}

// parseConfidence decodes a loosely typed confidence value and clamps
// it to 0-100. Unparseable input yields the default.
func parseConfidence(raw json.RawMessage) int {
	if len(raw) == 0 {
		return defaultConfidence
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return defaultConfidence
		}
		if _, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f); err != nil {
			return defaultConfidence
		}
	}

	confidence := int(f)
	if confidence < 0 {
		return 0
	}
	if confidence > 100 {
		return 100
	}
	return confidence
}

// normalizeDate converts recognizable date formats to YYYY-MM-DD.
// Free-text periods ("Q1 2026", "early 2026") pass through unchanged.
func normalizeDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return ""
	}

	layouts := []string{"2006-01-02", "January 2, 2006", "Jan 2, 2006", "2 January 2006", "2006/01/02"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return date
}

// normalizeSignal converts a raw provider response into a validated
// ClassificationSignal, applying version cleanup, category coercion,
// confidence clamping and the evidence cross-check
func normalizeSignal(responseText string, component *models.TrackedComponent, evidence *models.SearchEvidence) (*models.ClassificationSignal, error) {
	jsonText, err := extractJSON(responseText)
	if err != nil {
		return nil, err
	}

	var raw rawSignal
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode classification response: %w", err)
	}

	signal := &models.ClassificationSignal{
		Library:      raw.Library,
		Version:      cleanVersion(raw.Version),
		IsReleased:   true,
		Confidence:   parseConfidence(raw.Confidence),
		ReleaseDate:  normalizeDate(raw.ReleaseDate),
		ExpectedDate: normalizeDate(raw.ExpectedDate),
		Features:     raw.KeyFeatures,
		SourceURL:    raw.SourceURL,
		Summary:      raw.Summary,
	}
	if raw.IsReleased != nil {
		signal.IsReleased = *raw.IsReleased
	}
	if signal.Library == "" {
		signal.Library = component.Name
	}
	if signal.Version == "" {
		return nil, ErrNoVersion
	}

	signal.Category = coerceCategory(raw.UpdateType, raw.Summary, raw.KeyFeatures)
	// Pre-release signals are always categorized as future
	if !signal.IsReleased {
		signal.Category = models.CategoryFuture
	}

	// Cross-check against version mentions in the raw evidence: if the
	// snippets carry a higher version than the provider reported, adopt
	// it with reduced confidence
	if candidate := evidence.LatestVersionCandidate; candidate != "" {
		if common.IsNewerVersion(candidate, signal.Version) {
			signal.Version = candidate
			signal.Confidence -= candidatePenalty
			if signal.Confidence < minAdjustedConfidence {
				signal.Confidence = minAdjustedConfidence
			}
		}
	}

	if err := signal.Validate(); err != nil {
		return nil, fmt.Errorf("classification signal failed validation: %w", err)
	}

	return signal, nil
}
