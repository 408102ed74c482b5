package badger

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/libtrackai/libtrack/internal/common"
	"github.com/libtrackai/libtrack/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	version interfaces.VersionStore
	project interfaces.ProjectStorage
	kv      interfaces.KeyValueStorage
	logger  arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		version: NewVersionStore(db, logger),
		project: NewProjectStorage(db, logger),
		kv:      NewKVStorage(db, logger),
		logger:  logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// VersionStore returns the version record storage interface
func (m *Manager) VersionStore() interfaces.VersionStore {
	return m.version
}

// ProjectStorage returns the Project storage interface
func (m *Manager) ProjectStorage() interfaces.ProjectStorage {
	return m.project
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// DB returns the underlying database connection
func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.Store()
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// SeedDefaultValues inserts the default KV values that are missing
func (m *Manager) SeedDefaultValues(ctx context.Context) error {
	for _, kv := range common.GetDefaultKVValues() {
		if _, err := m.kv.Get(ctx, kv.Key); err == nil {
			continue
		}
		if err := m.kv.Set(ctx, kv.Key, kv.Value, kv.Description); err != nil {
			m.logger.Warn().Err(err).Str("key", kv.Key).Msg("Failed to seed default value")
		}
	}
	return nil
}

// LoadProjectsFromFiles loads project definitions from TOML files
func (m *Manager) LoadProjectsFromFiles(ctx context.Context, dirPath string) error {
	return LoadProjectsFromFiles(ctx, m.project, dirPath, m.logger)
}
