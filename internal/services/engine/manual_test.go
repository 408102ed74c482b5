package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libtrackai/libtrack/internal/interfaces"
	"github.com/libtrackai/libtrack/internal/models"
)

func TestManualConfirm(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	seedFuture(t, eng, models.FutureStatusDetected)

	record, err := eng.ApplyManualTransition(ctx, "pandas", "3.0.0", models.FutureStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.FutureStatusConfirmed, record.Status)
	require.NotEmpty(t, record.History)
	assert.Contains(t, record.History[len(record.History)-1].Reason, "manually confirmed")

	stored, err := store.GetFuture(ctx, "pandas", "3.0.0")
	require.NoError(t, err)
	assert.Equal(t, models.FutureStatusConfirmed, stored.Status)
}

func TestManualCancel(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	seedFuture(t, eng, models.FutureStatusConfirmed)

	record, err := eng.ApplyManualTransition(ctx, "pandas", "3.0.0", models.FutureStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.FutureStatusCancelled, record.Status)
}

func TestManualReleaseRejected(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	seedFuture(t, eng, models.FutureStatusDetected)

	_, err := eng.ApplyManualTransition(ctx, "pandas", "3.0.0", models.FutureStatusReleased)
	assert.Error(t, err)

	_, err = eng.ApplyManualTransition(ctx, "pandas", "3.0.0", models.FutureStatusDetected)
	assert.Error(t, err)
}

func TestManualOnTerminalRecord(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	seedFuture(t, eng, models.FutureStatusCancelled)

	_, err := eng.ApplyManualTransition(ctx, "pandas", "3.0.0", models.FutureStatusConfirmed)
	assert.ErrorIs(t, err, interfaces.ErrConflict)
}

func TestManualOnMissingRecord(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.ApplyManualTransition(ctx, "pandas", "9.9.9", models.FutureStatusConfirmed)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}
