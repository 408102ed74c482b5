package interfaces

import (
	"context"

	"github.com/libtrackai/libtrack/internal/models"
)

// DispatcherService delivers notification intents produced by the
// lifecycle engine
type DispatcherService interface {
	// Dispatch renders and sends a single notification intent
	Dispatch(ctx context.Context, intent *models.NotificationIntent) error

	// IsConfigured returns true if the underlying transport can send
	IsConfigured() bool
}
