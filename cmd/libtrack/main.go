package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/libtrackai/libtrack/internal/app"
	"github.com/libtrackai/libtrack/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	autoMode     = flag.Bool("auto", false, "Run the daily scheduler instead of a single sweep")
	sweepTime    = flag.String("time", "", "Daily sweep time HH:MM (overrides config)")
	testMode     = flag.Bool("test-mode", false, "Log notifications instead of sending email")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	// Parse command-line flags
	flag.Parse()

	// Handle version flag
	if *showVersion || *showVersionV {
		fmt.Printf("LibTrack %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	var err error

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("libtrack.toml"); err == nil {
			configFiles = append(configFiles, "libtrack.toml")
		} else if _, err := os.Stat("deployments/local/libtrack.toml"); err == nil {
			// Fallback for users running from the project root
			configFiles = append(configFiles, "deployments/local/libtrack.toml")
		}
	}

	// 1. Load configuration; later config files override earlier ones.
	// KV {key} replacement happens in app.New() after storage is up.
	config, err = common.LoadFromFiles(nil, configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		if len(configFiles) == 0 {
			tempLogger.Error().Err(err).Msg("Failed to load configuration: no config file found")
		} else {
			tempLogger.Error().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		}
		os.Exit(1)
	}

	// 2. Apply command-line flag overrides (highest priority)
	common.ApplyFlagOverrides(config, *sweepTime, *testMode)

	// 3. Initialize logger with final configuration
	logger = common.InitLogger(config)

	// 4. Print banner
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Str("sweep_time", config.Sweep.Time).
		Bool("test_mode", config.Mail.TestMode).
		Msg("Application configuration loaded")

	// Initialize application
	application, err := app.New(config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	// Default mode: run a single sweep and exit.
	// Exit code 2 signals a failed or partially failed sweep.
	if !*autoMode {
		result, err := application.RunSweep(context.Background())
		if err != nil {
			logger.Error().Err(err).Msg("Sweep failed")
			application.Close()
			os.Exit(2)
		}
		logger.Info().
			Int("evaluated", result.Evaluated).
			Int("notified", result.Notified).
			Int("skipped", result.Skipped).
			Int("failed", result.Failed).
			Msg("Sweep finished")
		if result.Failed > 0 {
			application.Close()
			os.Exit(2)
		}
		return
	}

	// Auto mode: run the daily sweep on schedule until interrupted
	if err := application.StartScheduler(); err != nil {
		logger.Error().Err(err).Msg("Failed to start scheduler")
		os.Exit(1)
	}

	logger.Info().
		Str("sweep_time", config.Sweep.Time).
		Msg("Scheduler ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received, shutting down")
}
