package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/libtrackai/libtrack/internal/interfaces"
)

// PromotionResolver settles open future-update predictions when the
// predicted version ships. Resolution is idempotent: once a record is
// promoted its status is terminal and later resolves find nothing open.
type PromotionResolver struct {
	store  interfaces.VersionStore
	logger arbor.ILogger
}

// NewPromotionResolver creates a new promotion resolver
func NewPromotionResolver(store interfaces.VersionStore, logger arbor.ILogger) *PromotionResolver {
	return &PromotionResolver{
		store:  store,
		logger: logger,
	}
}

// Resolve links the open future-update record for component/version (if
// one exists) to the given release record. Returns the promoted record's
// ID, or empty when no open prediction matched.
func (r *PromotionResolver) Resolve(ctx context.Context, component, version, releaseID string) (string, error) {
	record, err := r.store.FindOpenFutureForRelease(ctx, component, version)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to find open future record for %s %s: %w", component, version, err)
	}

	if err := r.store.LinkPromotion(ctx, record.ID, releaseID); err != nil {
		return "", fmt.Errorf("failed to link promotion for %s %s: %w", component, version, err)
	}

	r.logger.Info().
		Str("component", component).
		Str("version", version).
		Str("future_id", record.ID).
		Str("release_id", releaseID).
		Msg("Promoted future update to release")

	return record.ID, nil
}
