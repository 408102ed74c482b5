package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/libtrackai/libtrack/internal/interfaces"
	"github.com/libtrackai/libtrack/internal/models"
)

// ApplyManualTransition moves a future-update record to a manually
// chosen status. Only confirm and cancel are operator actions; released
// is reachable through promotion alone. Terminal records reject every
// transition with ErrConflict.
func (e *Engine) ApplyManualTransition(ctx context.Context, component, version string, target models.FutureStatus) (*models.FutureUpdateRecord, error) {
	if target != models.FutureStatusConfirmed && target != models.FutureStatusCancelled {
		return nil, fmt.Errorf("invalid manual target status '%s': only %s and %s are permitted",
			target, models.FutureStatusConfirmed, models.FutureStatusCancelled)
	}

	record, err := e.store.GetFuture(ctx, component, version)
	if err != nil {
		return nil, fmt.Errorf("failed to load future record for %s %s: %w", component, version, err)
	}

	if !record.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("cannot transition %s %s from %s to %s: %w",
			component, version, record.Status, target, interfaces.ErrConflict)
	}

	record.AddChange(fmt.Sprintf("manually %s (was %s)", target, record.Status))
	record.Status = target
	record.LastUpdated = time.Now()
	if err := e.store.SaveFuture(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save status change for %s %s: %w", component, version, err)
	}

	e.logger.Info().
		Str("component", component).
		Str("version", version).
		Str("status", string(target)).
		Msg("Manual status transition applied")

	return record, nil
}
