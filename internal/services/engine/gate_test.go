package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/libtrackai/libtrack/internal/models"
)

func TestGateAccept(t *testing.T) {
	gate := NewGate(70)
	futurePrefs := models.NotificationPreferences{"future", "major"}

	tests := []struct {
		name       string
		confidence int
		prefs      models.NotificationPreferences
		want       bool
	}{
		{"above threshold", 85, futurePrefs, true},
		{"exactly at threshold", 70, futurePrefs, true},
		{"one below threshold", 69, futurePrefs, false},
		{"zero confidence", 0, futurePrefs, false},
		{"full confidence", 100, futurePrefs, true},
		{"future not opted in", 95, models.NotificationPreferences{"major", "minor"}, false},
		{"empty preferences", 95, nil, false},
		{"case insensitive preference", 80, models.NotificationPreferences{"Future"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal := &models.ClassificationSignal{Confidence: tt.confidence}
			assert.Equal(t, tt.want, gate.Accept(signal, tt.prefs))
		})
	}
}

func TestGateCustomThreshold(t *testing.T) {
	gate := NewGate(90)
	prefs := models.NotificationPreferences{"future"}

	assert.False(t, gate.Accept(&models.ClassificationSignal{Confidence: 85}, prefs))
	assert.True(t, gate.Accept(&models.ClassificationSignal{Confidence: 90}, prefs))
}
