package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/libtrackai/libtrack/internal/interfaces"
	"github.com/libtrackai/libtrack/internal/models"
)

func TestProjectStorageCRUD(t *testing.T) {
	storage := NewProjectStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	project := &models.Project{
		Name:       "backend",
		Recipients: []string{"dev@example.com"},
		Enabled:    true,
		Components: []models.TrackedComponent{
			{
				Name:           "pandas",
				Kind:           models.ComponentKindLibrary,
				CurrentVersion: "2.3.2",
				Notify:         models.NotificationPreferences{"future", "major"},
			},
		},
	}

	require.NoError(t, storage.StoreProject(ctx, project))
	assert.NotEmpty(t, project.ID)
	assert.False(t, project.CreatedAt.IsZero())

	loaded, err := storage.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "backend", loaded.Name)
	require.Len(t, loaded.Components, 1)
	assert.Equal(t, "pandas", loaded.Components[0].Name)
	assert.True(t, loaded.Components[0].Notify.Has("future"))
	assert.False(t, loaded.Components[0].Notify.Has("minor"))

	count, err := storage.CountProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, storage.DeleteProject(ctx, project.ID))

	_, err = storage.GetProject(ctx, project.ID)
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))

	err = storage.DeleteProject(ctx, project.ID)
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))
}

func TestProjectFileToProject(t *testing.T) {
	enabled := false
	file := &ProjectFile{
		Name:       "Data Platform",
		Enabled:    &enabled,
		Recipients: []string{"team@example.com"},
		Components: []ProjectFileComponent{
			{Name: "pandas", Kind: "library", CurrentVersion: "2.3.2", Notify: []string{"future"}},
			{Name: "python", Kind: "language", CurrentVersion: "3.12.0"},
			{Name: "mystery", Kind: "gadget", CurrentVersion: "1.0.0"},
		},
	}

	project := file.ToProject()
	assert.Equal(t, "prj_data_platform", project.ID)
	assert.False(t, project.Enabled)
	require.Len(t, project.Components, 3)
	assert.Equal(t, models.ComponentKindLibrary, project.Components[0].Kind)
	assert.Equal(t, models.ComponentKindLanguage, project.Components[1].Kind)
	// Unknown kinds fall back to library
	assert.Equal(t, models.ComponentKindLibrary, project.Components[2].Kind)
}
