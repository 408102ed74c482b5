package engine

import (
	"github.com/libtrackai/libtrack/internal/models"
)

// Gate applies the confidence threshold and notification preferences to
// classification signals before they reach the lifecycle engine. Signals
// that fail the gate are silently discarded.
type Gate struct {
	minConfidence int
}

// NewGate creates a gate with the given minimum confidence threshold
func NewGate(minConfidence int) *Gate {
	return &Gate{minConfidence: minConfidence}
}

// Accept reports whether a future-update signal should be acted on for a
// component with the given notification preferences. The confidence bound
// is inclusive: a signal exactly at the threshold passes.
func (g *Gate) Accept(signal *models.ClassificationSignal, prefs models.NotificationPreferences) bool {
	if !prefs.Has(models.PrefFuture) {
		return false
	}
	return signal.Confidence >= g.minConfidence
}
