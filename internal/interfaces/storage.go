package interfaces

import (
	"context"

	"github.com/libtrackai/libtrack/internal/models"
)

// VersionStore - interface for future-update and release persistence
type VersionStore interface {
	// Future update operations
	GetFuture(ctx context.Context, component, version string) (*models.FutureUpdateRecord, error)
	GetOrCreateFuture(ctx context.Context, record *models.FutureUpdateRecord) (*models.FutureUpdateRecord, bool, error)
	SaveFuture(ctx context.Context, record *models.FutureUpdateRecord) error
	GetFuturesByStatus(ctx context.Context, status models.FutureStatus) ([]*models.FutureUpdateRecord, error)
	GetAllFutures(ctx context.Context) ([]*models.FutureUpdateRecord, error)
	CountFutures(ctx context.Context) (int, error)

	// Release operations
	GetRelease(ctx context.Context, component, version string) (*models.ReleaseRecord, error)
	GetOrCreateRelease(ctx context.Context, record *models.ReleaseRecord) (*models.ReleaseRecord, bool, error)
	GetAllReleases(ctx context.Context) ([]*models.ReleaseRecord, error)
	CountReleases(ctx context.Context) (int, error)

	// Promotion operations
	FindOpenFutureForRelease(ctx context.Context, component, version string) (*models.FutureUpdateRecord, error)
	LinkPromotion(ctx context.Context, futureID, releaseID string) error

	// Bulk operations
	ClearFutures(ctx context.Context) error
	ClearReleases(ctx context.Context) error
	ClearAll(ctx context.Context) error
}

// ProjectStorage - interface for tracked-project persistence
type ProjectStorage interface {
	StoreProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	GetAllProjects(ctx context.Context) ([]*models.Project, error)
	DeleteProject(ctx context.Context, id string) error
	CountProjects(ctx context.Context) (int, error)
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	VersionStore() VersionStore
	ProjectStorage() ProjectStorage
	KeyValueStorage() KeyValueStorage
	DB() interface{}
	Close() error
}
