package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/libtrackai/libtrack/internal/common"
	"github.com/libtrackai/libtrack/internal/interfaces"
	"github.com/libtrackai/libtrack/internal/models"
)

// VersionStore implements the VersionStore interface for Badger.
// Future and release records are keyed by "component|version" so repeat
// sightings of the same pair always land on the same record.
type VersionStore struct {
	db     *BadgerDB
	logger arbor.ILogger

	// Serializes get-or-create and promotion linkage so concurrent
	// sweeps cannot create duplicate records for the same pair
	mu sync.Mutex
}

// NewVersionStore creates a new VersionStore instance
func NewVersionStore(db *BadgerDB, logger arbor.ILogger) interfaces.VersionStore {
	return &VersionStore{
		db:     db,
		logger: logger,
	}
}

func futureKey(component, version string) string {
	return "future|" + component + "|" + version
}

func releaseKey(component, version string) string {
	return "release|" + component + "|" + version
}

// GetFuture retrieves a future update record by component and version
func (s *VersionStore) GetFuture(ctx context.Context, component, version string) (*models.FutureUpdateRecord, error) {
	var record models.FutureUpdateRecord
	err := s.db.Store().Get(futureKey(component, version), &record)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get future record: %w", err)
	}
	return &record, nil
}

// GetOrCreateFuture returns the existing record for the component/version
// pair, or inserts the given record if none exists. Returns the stored
// record and true when a new record was created.
func (s *VersionStore) GetOrCreateFuture(ctx context.Context, record *models.FutureUpdateRecord) (*models.FutureUpdateRecord, bool, error) {
	if record.Component == "" || record.Version == "" {
		return nil, false, fmt.Errorf("future record requires component and version")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing models.FutureUpdateRecord
	err := s.db.Store().Get(futureKey(record.Component, record.Version), &existing)
	if err == nil {
		return &existing, false, nil
	}
	if err != badgerhold.ErrNotFound {
		return nil, false, fmt.Errorf("failed to check future record: %w", err)
	}

	if record.ID == "" {
		record.ID = common.NewFutureID()
	}
	now := time.Now()
	if record.FirstDetected.IsZero() {
		record.FirstDetected = now
	}
	record.LastUpdated = now

	if err := s.db.Store().Insert(futureKey(record.Component, record.Version), record); err != nil {
		return nil, false, fmt.Errorf("failed to insert future record: %w", err)
	}

	s.logger.Debug().
		Str("component", record.Component).
		Str("version", record.Version).
		Str("id", record.ID).
		Msg("Created future update record")

	return record, true, nil
}

// SaveFuture persists changes to an existing future update record.
// Records whose stored status is terminal are never overwritten.
func (s *VersionStore) SaveFuture(ctx context.Context, record *models.FutureUpdateRecord) error {
	if record.Component == "" || record.Version == "" {
		return fmt.Errorf("future record requires component and version")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing models.FutureUpdateRecord
	err := s.db.Store().Get(futureKey(record.Component, record.Version), &existing)
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to check future record: %w", err)
	}
	if err == nil && existing.Status.IsTerminal() && !sameGatedFields(&existing, record) {
		return interfaces.ErrConflict
	}

	record.LastUpdated = time.Now()
	if err := s.db.Store().Upsert(futureKey(record.Component, record.Version), record); err != nil {
		return fmt.Errorf("failed to save future record: %w", err)
	}
	return nil
}

// sameGatedFields reports whether a write leaves every classification
// field of a terminal record untouched. Notification bookkeeping may
// still differ; the guarded fields are frozen once a record is terminal.
func sameGatedFields(existing, record *models.FutureUpdateRecord) bool {
	if existing.Status != record.Status ||
		existing.Category != record.Category ||
		existing.Confidence != record.Confidence ||
		existing.ExpectedDate != record.ExpectedDate ||
		existing.SourceURL != record.SourceURL ||
		existing.Summary != record.Summary {
		return false
	}
	if len(existing.Features) != len(record.Features) {
		return false
	}
	for i := range existing.Features {
		if existing.Features[i] != record.Features[i] {
			return false
		}
	}
	return true
}

// GetFuturesByStatus returns future records with the given status,
// newest first
func (s *VersionStore) GetFuturesByStatus(ctx context.Context, status models.FutureStatus) ([]*models.FutureUpdateRecord, error) {
	var records []models.FutureUpdateRecord
	err := s.db.Store().Find(&records, badgerhold.Where("Status").Eq(status).SortBy("LastUpdated").Reverse())
	if err != nil {
		return nil, fmt.Errorf("failed to list future records by status: %w", err)
	}

	result := make([]*models.FutureUpdateRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

// GetAllFutures returns all future records, newest first
func (s *VersionStore) GetAllFutures(ctx context.Context) ([]*models.FutureUpdateRecord, error) {
	var records []models.FutureUpdateRecord
	err := s.db.Store().Find(&records, badgerhold.Where("ID").Ne("").SortBy("LastUpdated").Reverse())
	if err != nil {
		return nil, fmt.Errorf("failed to list future records: %w", err)
	}

	result := make([]*models.FutureUpdateRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

// CountFutures returns the total number of future records
func (s *VersionStore) CountFutures(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.FutureUpdateRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count future records: %w", err)
	}
	return int(count), nil
}

// GetRelease retrieves a release record by component and version
func (s *VersionStore) GetRelease(ctx context.Context, component, version string) (*models.ReleaseRecord, error) {
	var record models.ReleaseRecord
	err := s.db.Store().Get(releaseKey(component, version), &record)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get release record: %w", err)
	}
	return &record, nil
}

// GetOrCreateRelease returns the existing release for the
// component/version pair, or inserts the given record if none exists.
// First write wins; later sightings never modify the stored record.
// Returns the stored record and true when a new record was created.
func (s *VersionStore) GetOrCreateRelease(ctx context.Context, record *models.ReleaseRecord) (*models.ReleaseRecord, bool, error) {
	if record.Component == "" || record.Version == "" {
		return nil, false, fmt.Errorf("release record requires component and version")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing models.ReleaseRecord
	err := s.db.Store().Get(releaseKey(record.Component, record.Version), &existing)
	if err == nil {
		return &existing, false, nil
	}
	if err != badgerhold.ErrNotFound {
		return nil, false, fmt.Errorf("failed to check release record: %w", err)
	}

	if record.ID == "" {
		record.ID = common.NewReleaseID()
	}
	if record.DetectedAt.IsZero() {
		record.DetectedAt = time.Now()
	}

	if err := s.db.Store().Insert(releaseKey(record.Component, record.Version), record); err != nil {
		return nil, false, fmt.Errorf("failed to insert release record: %w", err)
	}

	s.logger.Debug().
		Str("component", record.Component).
		Str("version", record.Version).
		Str("id", record.ID).
		Msg("Created release record")

	return record, true, nil
}

// GetAllReleases returns all release records, newest first
func (s *VersionStore) GetAllReleases(ctx context.Context) ([]*models.ReleaseRecord, error) {
	var records []models.ReleaseRecord
	err := s.db.Store().Find(&records, badgerhold.Where("ID").Ne("").SortBy("DetectedAt").Reverse())
	if err != nil {
		return nil, fmt.Errorf("failed to list release records: %w", err)
	}

	result := make([]*models.ReleaseRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

// CountReleases returns the total number of release records
func (s *VersionStore) CountReleases(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.ReleaseRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count release records: %w", err)
	}
	return int(count), nil
}

// FindOpenFutureForRelease returns the non-terminal future record for the
// component/version pair, or ErrNotFound when there is none to promote
func (s *VersionStore) FindOpenFutureForRelease(ctx context.Context, component, version string) (*models.FutureUpdateRecord, error) {
	record, err := s.GetFuture(ctx, component, version)
	if err != nil {
		return nil, err
	}
	if record.Status.IsTerminal() {
		return nil, interfaces.ErrNotFound
	}
	return record, nil
}

// LinkPromotion marks the future record as released and links it to the
// release record. Linking is idempotent for the same release; linking a
// future already promoted to a different release returns ErrConflict.
func (s *VersionStore) LinkPromotion(ctx context.Context, futureID, releaseID string) error {
	if futureID == "" || releaseID == "" {
		return fmt.Errorf("promotion requires future and release IDs")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var future models.FutureUpdateRecord
	err := s.db.Store().FindOne(&future, badgerhold.Where("ID").Eq(futureID))
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to find future record for promotion: %w", err)
	}

	if future.PromotedToRelease != "" {
		if future.PromotedToRelease == releaseID {
			return nil
		}
		return interfaces.ErrConflict
	}
	if future.Status == models.FutureStatusCancelled {
		return interfaces.ErrConflict
	}

	now := time.Now()
	future.Status = models.FutureStatusReleased
	future.PromotedToRelease = releaseID
	future.PromotedAt = &now
	future.LastUpdated = now

	if err := s.db.Store().Upsert(futureKey(future.Component, future.Version), &future); err != nil {
		return fmt.Errorf("failed to link promotion: %w", err)
	}

	s.logger.Info().
		Str("component", future.Component).
		Str("version", future.Version).
		Str("release_id", releaseID).
		Msg("Promoted future update to release")

	return nil
}

// ClearFutures removes all future update records
func (s *VersionStore) ClearFutures(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.FutureUpdateRecord{}, nil); err != nil {
		return fmt.Errorf("failed to clear future records: %w", err)
	}
	s.logger.Info().Msg("Cleared all future update records")
	return nil
}

// ClearReleases removes all release records
func (s *VersionStore) ClearReleases(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.ReleaseRecord{}, nil); err != nil {
		return fmt.Errorf("failed to clear release records: %w", err)
	}
	s.logger.Info().Msg("Cleared all release records")
	return nil
}

// ClearAll removes all future and release records
func (s *VersionStore) ClearAll(ctx context.Context) error {
	if err := s.ClearFutures(ctx); err != nil {
		return err
	}
	return s.ClearReleases(ctx)
}
