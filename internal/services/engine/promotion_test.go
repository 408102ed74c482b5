package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/libtrackai/libtrack/internal/common"
	"github.com/libtrackai/libtrack/internal/models"
)

func seedFuture(t *testing.T, eng *Engine, status models.FutureStatus) *models.FutureUpdateRecord {
	t.Helper()

	now := time.Now()
	record := &models.FutureUpdateRecord{
		ID:            common.NewFutureID(),
		Component:     "pandas",
		Library:       "pandas",
		Version:       "3.0.0",
		Status:        status,
		Category:      models.CategoryFuture,
		Confidence:    85,
		FirstDetected: now,
		LastUpdated:   now,
	}
	stored, created, err := eng.store.GetOrCreateFuture(context.Background(), record)
	require.NoError(t, err)
	require.True(t, created)
	return stored
}

func TestResolveNoOpenPrediction(t *testing.T) {
	eng, _ := newTestEngine(t)
	resolver := NewPromotionResolver(eng.store, arbor.NewLogger())

	futureID, err := resolver.Resolve(context.Background(), "pandas", "3.0.0", "rel_x")
	require.NoError(t, err)
	assert.Empty(t, futureID)
}

func TestResolveLinksOpenPrediction(t *testing.T) {
	eng, store := newTestEngine(t)
	resolver := NewPromotionResolver(eng.store, arbor.NewLogger())
	ctx := context.Background()

	seeded := seedFuture(t, eng, models.FutureStatusDetected)

	futureID, err := resolver.Resolve(ctx, "pandas", "3.0.0", "rel_x")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, futureID)

	record, err := store.GetFuture(ctx, "pandas", "3.0.0")
	require.NoError(t, err)
	assert.Equal(t, models.FutureStatusReleased, record.Status)
	assert.Equal(t, "rel_x", record.PromotedToRelease)
}

func TestResolveIsIdempotent(t *testing.T) {
	eng, _ := newTestEngine(t)
	resolver := NewPromotionResolver(eng.store, arbor.NewLogger())
	ctx := context.Background()

	seedFuture(t, eng, models.FutureStatusConfirmed)

	first, err := resolver.Resolve(ctx, "pandas", "3.0.0", "rel_x")
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	// Already promoted: nothing open to settle
	second, err := resolver.Resolve(ctx, "pandas", "3.0.0", "rel_x")
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestResolveSkipsCancelledPrediction(t *testing.T) {
	eng, store := newTestEngine(t)
	resolver := NewPromotionResolver(eng.store, arbor.NewLogger())
	ctx := context.Background()

	seedFuture(t, eng, models.FutureStatusCancelled)

	futureID, err := resolver.Resolve(ctx, "pandas", "3.0.0", "rel_x")
	require.NoError(t, err)
	assert.Empty(t, futureID)

	record, err := store.GetFuture(ctx, "pandas", "3.0.0")
	require.NoError(t, err)
	assert.Equal(t, models.FutureStatusCancelled, record.Status)
}
