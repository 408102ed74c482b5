package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"

	"github.com/libtrackai/libtrack/internal/interfaces"
	"github.com/libtrackai/libtrack/internal/models"
)

// ProjectFile represents the structure of a project definition TOML file
// Format:
//
//	id = "prj_backend"          # optional, derived from name when omitted
//	name = "backend"
//	enabled = true
//	recipients = ["dev@example.com"]
//
//	[[components]]
//	name = "pandas"
//	kind = "library"
//	current_version = "2.3.2"
//	repo_slug = "pandas-dev/pandas"
//	notify = ["future", "major", "minor"]
type ProjectFile struct {
	ID         string                 `toml:"id"`
	Name       string                 `toml:"name"`
	Enabled    *bool                  `toml:"enabled"`
	Recipients []string               `toml:"recipients"`
	Components []ProjectFileComponent `toml:"components"`
}

// ProjectFileComponent is a single tracked component entry in a project file
type ProjectFileComponent struct {
	Name           string   `toml:"name"`
	Kind           string   `toml:"kind"`
	CurrentVersion string   `toml:"current_version"`
	RepoSlug       string   `toml:"repo_slug"`
	Notify         []string `toml:"notify"`
}

// ToProject converts the file representation to a Project model
func (f *ProjectFile) ToProject() *models.Project {
	project := &models.Project{
		ID:         f.ID,
		Name:       f.Name,
		Recipients: f.Recipients,
		Enabled:    true,
	}
	if f.Enabled != nil {
		project.Enabled = *f.Enabled
	}
	if project.ID == "" {
		// Deterministic ID so file reloads update the same record
		project.ID = "prj_" + strings.ToLower(strings.ReplaceAll(strings.TrimSpace(f.Name), " ", "_"))
	}

	for _, c := range f.Components {
		kind := models.ComponentKind(strings.ToLower(strings.TrimSpace(c.Kind)))
		if !models.IsValidComponentKind(kind) {
			kind = models.ComponentKindLibrary
		}
		project.Components = append(project.Components, models.TrackedComponent{
			Name:           c.Name,
			Kind:           kind,
			CurrentVersion: c.CurrentVersion,
			RepoSlug:       c.RepoSlug,
			Notify:         models.NotificationPreferences(c.Notify),
		})
	}

	return project
}

// LoadProjectsFromFiles loads project definitions from TOML files in the
// specified directory. Similar to LoadVariablesFromFiles, this scans the
// directory and loads all .toml files as projects.
func LoadProjectsFromFiles(ctx context.Context, projectStorage interfaces.ProjectStorage, projectsDir string, logger arbor.ILogger) error {
	// Check if directory exists
	if _, err := os.Stat(projectsDir); os.IsNotExist(err) {
		logger.Debug().Str("dir", projectsDir).Msg("Projects directory does not exist, skipping")
		return nil
	}

	logger.Info().Str("dir", projectsDir).Msg("Loading projects from files")

	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		return fmt.Errorf("failed to read projects directory: %w", err)
	}

	loadedCount := 0
	for _, entry := range entries {
		// Skip directories and non-TOML files
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}

		filePath := filepath.Join(projectsDir, entry.Name())

		tomlBytes, err := os.ReadFile(filePath)
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read project file")
			continue
		}

		var projectFile ProjectFile
		if err := toml.Unmarshal(tomlBytes, &projectFile); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to parse project TOML")
			continue
		}

		if projectFile.Name == "" {
			logger.Warn().Str("file", entry.Name()).Msg("Skipping project file without a name")
			continue
		}

		project := projectFile.ToProject()

		// Preserve CreatedAt on reload
		if existing, err := projectStorage.GetProject(ctx, project.ID); err == nil {
			project.CreatedAt = existing.CreatedAt
		}

		if err := projectStorage.StoreProject(ctx, project); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Str("project_id", project.ID).Msg("Failed to store project")
			continue
		}

		logger.Info().
			Str("file", entry.Name()).
			Str("project_id", project.ID).
			Str("name", project.Name).
			Int("components", len(project.Components)).
			Msg("Project loaded from file")
		loadedCount++
	}

	logger.Info().Int("count", loadedCount).Msg("Finished loading projects from files")
	return nil
}
