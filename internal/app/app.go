package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/libtrackai/libtrack/internal/common"
	"github.com/libtrackai/libtrack/internal/interfaces"
	"github.com/libtrackai/libtrack/internal/services/classifier"
	"github.com/libtrackai/libtrack/internal/services/engine"
	"github.com/libtrackai/libtrack/internal/services/mailer"
	"github.com/libtrackai/libtrack/internal/services/scheduler"
	"github.com/libtrackai/libtrack/internal/services/search"
	"github.com/libtrackai/libtrack/internal/services/sweep"
	"github.com/libtrackai/libtrack/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	SearchService     interfaces.SearchService
	ClassifierService interfaces.ClassifierService
	Dispatcher        interfaces.DispatcherService
	Engine            *engine.Engine
	SweepService      *sweep.Service
	SchedulerService  interfaces.SchedulerService
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info().
		Str("classifier", app.ClassifierService.Provider()).
		Bool("sweep_enabled", cfg.Sweep.Enabled).
		Bool("mail_test_mode", cfg.Mail.TestMode).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger) and loads seed
// data, variables, email credentials and project definitions
func (a *App) initDatabase() error {
	ctx := context.Background()

	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.StorageManager = storageManager

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	manager, ok := storageManager.(*badger.Manager)
	if !ok {
		return fmt.Errorf("unexpected storage manager type %T", storageManager)
	}

	if err := a.deleteStartupData(ctx, manager); err != nil {
		return err
	}

	if err := manager.SeedDefaultValues(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to seed default values")
	}

	// Load variables from files (API keys, secrets) before config
	// replacement so the loaded variables can be referenced
	if err := manager.LoadVariablesFromFiles(ctx, a.Config.Variables.Dir); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load variables from files")
	}

	// Variables from .env take precedence over TOML variables
	if err := manager.LoadEnvFile(ctx, ".env"); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load .env file")
	}

	// SMTP credentials from email.toml, with {key} substitution
	if err := badger.LoadEmailFromFile(ctx, manager.KeyValueStorage(), a.Config.Variables.Dir, a.Logger); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load email configuration")
	}

	// Project definitions describing what to track
	if err := manager.LoadProjectsFromFiles(ctx, a.Config.Projects.Dir); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to load project definitions")
	}

	// Replace {key-name} references in config values with KV store values
	kvMap, err := manager.KeyValueStorage().GetAll(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to fetch KV map for config replacement, skipping replacement")
	} else if len(kvMap) > 0 {
		if err := common.ReplaceInStruct(a.Config, kvMap, a.Logger); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to replace key references in config")
		} else {
			a.Logger.Debug().Int("keys", len(kvMap)).Msg("Applied key/value replacements to config")
		}
	}

	return nil
}

// deleteStartupData removes the configured data categories before seeding.
// Valid categories: settings, futures, releases, projects.
func (a *App) deleteStartupData(ctx context.Context, manager *badger.Manager) error {
	for _, category := range a.Config.DeleteOnStartup {
		switch strings.ToLower(strings.TrimSpace(category)) {
		case "":
			continue
		case "settings":
			if err := manager.KeyValueStorage().DeleteAll(ctx); err != nil {
				return fmt.Errorf("failed to delete settings on startup: %w", err)
			}
		case "futures":
			if err := manager.VersionStore().ClearFutures(ctx); err != nil {
				return fmt.Errorf("failed to delete future records on startup: %w", err)
			}
		case "releases":
			if err := manager.VersionStore().ClearReleases(ctx); err != nil {
				return fmt.Errorf("failed to delete release records on startup: %w", err)
			}
		case "projects":
			projects, err := manager.ProjectStorage().GetAllProjects(ctx)
			if err != nil {
				return fmt.Errorf("failed to list projects for startup delete: %w", err)
			}
			for _, project := range projects {
				if err := manager.ProjectStorage().DeleteProject(ctx, project.ID); err != nil {
					return fmt.Errorf("failed to delete project %s on startup: %w", project.ID, err)
				}
			}
		default:
			a.Logger.Warn().Str("category", category).Msg("Unknown delete_on_startup category ignored")
			continue
		}
		a.Logger.Info().Str("category", category).Msg("Deleted data category on startup")
	}
	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	kvStorage := a.StorageManager.KeyValueStorage()

	// Evidence sources; Serper is the primary, GitHub releases optional
	var sources []interfaces.SearchService
	serper, err := search.NewSerperService(&a.Config.Search, kvStorage, a.Logger)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Serper search unavailable - set SERPER_API_KEY to enable web evidence")
	} else {
		sources = append(sources, serper)
	}

	if a.Config.GitHub.Enabled {
		sources = append(sources, search.NewGitHubService(&a.Config.GitHub, kvStorage, a.Logger))
	}

	if len(sources) == 0 {
		return fmt.Errorf("no evidence sources configured: provide a Serper API key or enable the GitHub source")
	}
	a.SearchService = search.NewCompositeService(a.Logger, sources...)

	a.ClassifierService, err = classifier.NewClassifierService(a.Config, kvStorage, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize classifier: %w", err)
	}

	mailerService := mailer.NewService(&a.Config.Mail, kvStorage, a.Logger)
	a.Dispatcher = mailer.NewDispatcher(&a.Config.Mail, mailerService, a.Logger)
	if !a.Dispatcher.IsConfigured() {
		a.Logger.Warn().Msg("SMTP not configured - notifications will fail until email.toml or smtp_* variables are provided")
	}

	a.Engine = engine.NewEngine(&a.Config.Engine, a.StorageManager.VersionStore(), a.Logger)

	a.SweepService, err = sweep.NewService(
		&a.Config.Sweep,
		a.StorageManager.ProjectStorage(),
		a.SearchService,
		a.ClassifierService,
		a.Engine,
		a.Dispatcher,
		a.Logger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize sweep service: %w", err)
	}

	a.SchedulerService = scheduler.NewService(a.Logger)
	if a.Config.Sweep.Enabled {
		if err := a.SchedulerService.RegisterDaily("daily-sweep", a.Config.Sweep.Time, func() error {
			_, err := a.SweepService.Run(context.Background())
			return err
		}); err != nil {
			return fmt.Errorf("failed to register daily sweep: %w", err)
		}
	}

	return nil
}

// StartScheduler begins scheduled sweep execution
func (a *App) StartScheduler() error {
	if !a.Config.Sweep.Enabled {
		a.Logger.Info().Msg("Scheduled sweeps disabled in config")
		return nil
	}
	return a.SchedulerService.Start()
}

// RunSweep executes a single sweep pass immediately
func (a *App) RunSweep(ctx context.Context) (*sweep.Result, error) {
	return a.SweepService.Run(ctx)
}

// Close gracefully shuts down all application components
func (a *App) Close() {
	if a.SchedulerService != nil && a.SchedulerService.IsRunning() {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage manager")
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
}
