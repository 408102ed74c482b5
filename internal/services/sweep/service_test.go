package sweep

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/libtrackai/libtrack/internal/common"
	"github.com/libtrackai/libtrack/internal/interfaces"
	"github.com/libtrackai/libtrack/internal/models"
	"github.com/libtrackai/libtrack/internal/services/classifier"
	"github.com/libtrackai/libtrack/internal/services/engine"
	"github.com/libtrackai/libtrack/internal/storage/badger"
)

type stubSearch struct {
	err error
}

func (s *stubSearch) Name() string { return "stub" }

func (s *stubSearch) Search(ctx context.Context, component *models.TrackedComponent) (*models.SearchEvidence, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.SearchEvidence{
		Component: component.Key(),
		Snippets: []models.EvidenceSnippet{
			{Title: component.Name + " update news", URL: "https://example.com", Source: "stub"},
		},
	}, nil
}

type stubClassifier struct {
	err     error
	signals map[string]*models.ClassificationSignal
}

func (s *stubClassifier) Provider() string { return "stub" }

func (s *stubClassifier) Classify(ctx context.Context, component *models.TrackedComponent, evidence *models.SearchEvidence) (*models.ClassificationSignal, error) {
	if s.err != nil {
		return nil, s.err
	}
	if signal, ok := s.signals[component.Key()]; ok {
		return signal, nil
	}
	return &models.ClassificationSignal{
		Library:    component.Name,
		Version:    "9.0.0",
		Category:   models.CategoryFuture,
		Confidence: 85,
	}, nil
}

type stubDispatcher struct {
	mu      sync.Mutex
	intents []*models.NotificationIntent
	err     error
}

func (s *stubDispatcher) IsConfigured() bool { return true }

func (s *stubDispatcher) Dispatch(ctx context.Context, intent *models.NotificationIntent) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents = append(s.intents, intent)
	return nil
}

func (s *stubDispatcher) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.intents)
}

type testHarness struct {
	service    *Service
	manager    interfaces.StorageManager
	dispatcher *stubDispatcher
}

func newTestService(t *testing.T, search interfaces.SearchService, cls interfaces.ClassifierService) *testHarness {
	t.Helper()

	logger := arbor.NewLogger()
	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	engineConfig := common.NewDefaultConfig().Engine
	lifecycleEngine := engine.NewEngine(&engineConfig, manager.VersionStore(), logger)
	dispatcher := &stubDispatcher{}

	sweepConfig := &common.SweepConfig{
		Enabled:          true,
		Time:             "09:00",
		Concurrency:      3,
		ComponentTimeout: "30s",
	}
	service, err := NewService(sweepConfig, manager.ProjectStorage(), search, cls, lifecycleEngine, dispatcher, logger)
	require.NoError(t, err)

	return &testHarness{service: service, manager: manager, dispatcher: dispatcher}
}

func storeProject(t *testing.T, manager interfaces.StorageManager, enabled bool, components ...string) {
	t.Helper()

	project := &models.Project{
		Name:       "backend-stack",
		Recipients: []string{"team@example.com"},
		Enabled:    enabled,
	}
	for _, name := range components {
		project.Components = append(project.Components, models.TrackedComponent{
			Name:           name,
			Kind:           models.ComponentKindLibrary,
			CurrentVersion: "1.0.0",
			Notify:         models.NotificationPreferences{"future", "major", "minor"},
		})
	}
	require.NoError(t, manager.ProjectStorage().StoreProject(context.Background(), project))
}

func TestRunNotifiesNewDetections(t *testing.T) {
	h := newTestService(t, &stubSearch{}, &stubClassifier{})
	storeProject(t, h.manager, true, "pandas", "numpy")

	result, err := h.service.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Projects)
	assert.Equal(t, 2, result.Evaluated)
	assert.Equal(t, 2, result.Notified)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 2, h.dispatcher.count())
}

func TestRunSecondSweepIsSilent(t *testing.T) {
	h := newTestService(t, &stubSearch{}, &stubClassifier{})
	storeProject(t, h.manager, true, "pandas")

	_, err := h.service.Run(context.Background())
	require.NoError(t, err)

	result, err := h.service.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Evaluated)
	assert.Equal(t, 0, result.Notified)
	assert.Equal(t, 1, h.dispatcher.count())
}

func TestRunSkipsDisabledProjects(t *testing.T) {
	h := newTestService(t, &stubSearch{}, &stubClassifier{})
	storeProject(t, h.manager, false, "pandas")

	result, err := h.service.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Projects)
	assert.Equal(t, 0, result.Evaluated)
	assert.Equal(t, 0, h.dispatcher.count())
}

func TestRunSkipsComponentsWithoutVersion(t *testing.T) {
	h := newTestService(t, &stubSearch{}, &stubClassifier{err: classifier.ErrNoVersion})
	storeProject(t, h.manager, true, "pandas")

	result, err := h.service.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)
}

func TestRunIsolatesSearchFailures(t *testing.T) {
	h := newTestService(t, &stubSearch{err: fmt.Errorf("quota exceeded")}, &stubClassifier{})
	storeProject(t, h.manager, true, "pandas", "numpy")

	result, err := h.service.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 0, result.Notified)
}

func TestNewServiceRejectsBadTimeout(t *testing.T) {
	logger := arbor.NewLogger()
	sweepConfig := &common.SweepConfig{ComponentTimeout: "not-a-duration"}

	_, err := NewService(sweepConfig, nil, nil, nil, nil, nil, logger)
	assert.Error(t, err)
}
