package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"

	"github.com/libtrackai/libtrack/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment     string         `toml:"environment"`       // "development" or "production" - controls test-mode behavior
	DeleteOnStartup []string       `toml:"delete_on_startup"` // Delete data categories on startup. Valid values: settings, futures, releases, projects (default: empty = delete nothing)
	Storage         StorageConfig  `toml:"storage"`
	Logging         LoggingConfig  `toml:"logging"`
	Projects        ProjectsConfig `toml:"projects"`
	Variables       KeysDirConfig  `toml:"variables"` // Variables directory configuration (./keys/*.toml) for key/value pairs
	Search          SearchConfig   `toml:"search"`
	GitHub          GitHubConfig   `toml:"github"`
	Gemini          GeminiConfig   `toml:"gemini"`
	Claude          ClaudeConfig   `toml:"claude"`
	LLM             LLMConfig      `toml:"llm"`
	Engine          EngineConfig   `toml:"engine"`
	Mail            MailConfig     `toml:"mail"`
	Sweep           SweepConfig    `toml:"sweep"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// ProjectsConfig contains configuration for project definition files
type ProjectsConfig struct {
	Dir        string   `toml:"dir"`        // Directory containing project definition files (TOML)
	Extensions []string `toml:"extensions"` // File extensions to scan (default: [".toml"])
}

// SearchConfig contains web search (Serper) configuration
type SearchConfig struct {
	APIKey         string        `toml:"api_key"`         // Serper API key (or serper_api_key in KV store)
	BaseURL        string        `toml:"base_url"`        // Serper endpoint (default: "https://google.serper.dev")
	MaxResults     int           `toml:"max_results"`     // Results requested per query (default: 10)
	Country        string        `toml:"country"`         // Geo bias for queries (default: "us")
	RateLimit      string        `toml:"rate_limit"`      // Minimum interval between requests as duration string (default: "1s")
	RequestTimeout time.Duration `toml:"request_timeout"` // HTTP request timeout
}

// GitHubConfig contains configuration for the GitHub releases evidence source
type GitHubConfig struct {
	Enabled        bool          `toml:"enabled"`         // Query GitHub releases for components with a repo slug
	Token          string        `toml:"token"`           // Personal access token (or github_token in KV store)
	MaxReleases    int           `toml:"max_releases"`    // Releases fetched per repository (default: 10)
	RequestTimeout time.Duration `toml:"request_timeout"` // HTTP request timeout
}

// GeminiConfig contains Google Gemini API configuration for classification
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for classification (default: "gemini-3-flash-preview")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "4s" for 15 RPM)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// ClaudeConfig contains Anthropic Claude API configuration for classification
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model for classification (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 4096)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // Default provider: "claude" or "gemini" (default: "claude")
}

// MergePolicyConfig controls how repeat detections merge into an existing
// future update record
type MergePolicyConfig struct {
	ConfidenceOnlyIfHigher bool `toml:"confidence_only_if_higher"` // Only adopt confidence when strictly higher (default: true)
	DateOnlyIfPresent      bool `toml:"date_only_if_present"`      // Only adopt expected date when the new signal carries one (default: true)
}

// EngineConfig contains lifecycle engine thresholds
type EngineConfig struct {
	MinConfidence int               `toml:"min_confidence" validate:"min=0,max=100"` // Signals below this are discarded (default: 70)
	ReAlertDelta  int               `toml:"re_alert_delta" validate:"min=0"`         // Confidence rise that triggers a re-alert (default: 15)
	Merge         MergePolicyConfig `toml:"merge"`
}

// MailConfig contains notification delivery behavior. SMTP credentials
// live in KeyValue storage under smtp_* keys, not in this file.
type MailConfig struct {
	TestMode bool   `toml:"test_mode"` // Log rendered notifications instead of sending
	FromName string `toml:"from_name"` // Display name on outbound mail (default: "LibTrack")
}

// SweepConfig contains scheduled sweep behavior
type SweepConfig struct {
	Enabled          bool   `toml:"enabled"`                                // Run the daily sweep on a schedule
	Time             string `toml:"time"`                                   // Daily sweep time "HH:MM" local (default: "09:00")
	Concurrency      int    `toml:"concurrency" validate:"min=1"`           // Components evaluated in parallel (default: 3)
	ComponentTimeout string `toml:"component_timeout"`                      // Per-component timeout as duration string (default: "3m")
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in libtrack.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development", // Default to development mode
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",                     // Info level for production (debug|info|warn|error)
			Format:     "text",                     // Human-readable text format (text|json)
			Output:     []string{"stdout", "file"}, // Log to both console and file
			TimeFormat: "15:04:05.000",
		},
		Projects: ProjectsConfig{
			Dir:        "./projects",      // Default directory for project definition files
			Extensions: []string{".toml"}, // Default: only TOML files
		},
		Variables: KeysDirConfig{
			Dir: "./", // Default directory for variables.toml file
		},
		Search: SearchConfig{
			APIKey:         "", // User must provide API key (serper_api_key or config)
			BaseURL:        "https://google.serper.dev",
			MaxResults:     10,
			Country:        "us",
			RateLimit:      "1s",
			RequestTimeout: 30 * time.Second,
		},
		GitHub: GitHubConfig{
			Enabled:        true,
			Token:          "", // Optional; unauthenticated requests are heavily rate limited
			MaxReleases:    10,
			RequestTimeout: 30 * time.Second,
		},
		Gemini: GeminiConfig{
			APIKey:      "",                       // User must provide API key (no fallback)
			Model:       "gemini-3-flash-preview", // Model for classification
			Timeout:     "2m",
			RateLimit:   "4s", // Default to 4s (15 RPM) for free tier
			Temperature: 0.2,  // Low temperature for deterministic classification
		},
		Claude: ClaudeConfig{
			APIKey:      "",                          // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:       "claude-haiku-3-5-20241022", // Model for classification
			MaxTokens:   4096,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.2,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
		},
		Engine: EngineConfig{
			MinConfidence: 70, // Signals under 70 never create or merge records
			ReAlertDelta:  15, // Confidence must rise 15+ points to re-alert
			Merge: MergePolicyConfig{
				ConfidenceOnlyIfHigher: true,
				DateOnlyIfPresent:      true,
			},
		},
		Mail: MailConfig{
			TestMode: false,
			FromName: "LibTrack",
		},
		Sweep: SweepConfig{
			Enabled:          true,
			Time:             "09:00",
			Concurrency:      3,
			ComponentTimeout: "3m",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
// Priority system: CLI flags > Environment variables > Config file > Defaults
// kvStorage can be nil for backward compatibility (replacement will be skipped)
func LoadFromFile(kvStorage interfaces.KeyValueStorage, path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles(kvStorage)
	}
	return LoadFromFiles(kvStorage, path)
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env -> CLI
// Later files override earlier files. Priority system: CLI flags > Environment variables > Last config file > ... > First config file > Defaults
// Example: LoadFromFiles(kvStorage, "base.toml", "override.toml") - override.toml settings take precedence over base.toml
// kvStorage can be nil for backward compatibility (replacement will be skipped)
func LoadFromFiles(kvStorage interfaces.KeyValueStorage, paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Perform {key-name} replacement if KV storage is available
	if kvStorage != nil {
		ctx := context.Background()
		kvMap, err := kvStorage.GetAll(ctx)
		if err != nil {
			// Log warning and skip replacement (graceful degradation)
			logger := arbor.NewLogger()
			logger.Warn().Err(err).Msg("Failed to fetch KV map for config replacement, skipping replacement")
		} else {
			logger := arbor.NewLogger()
			if err := ReplaceInStruct(config, kvMap, logger); err != nil {
				logger.Warn().Err(err).Msg("Failed to replace key references in config")
			} else {
				logger.Info().Int("keys", len(kvMap)).Msg("Applied key/value replacements to config")
			}
		}
	}

	// Apply environment variables (overrides all file configs and replacements)
	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks threshold and schedule fields using go-playground/validator
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Sweep.Time != "" {
		if err := ValidateSweepTime(c.Sweep.Time); err != nil {
			return err
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: LIBTRACK_ENV, fallback: GO_ENV)
	if env := os.Getenv("LIBTRACK_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Storage configuration
	if badgerPath := os.Getenv("LIBTRACK_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("LIBTRACK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("LIBTRACK_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("LIBTRACK_LOG_OUTPUT"); output != "" {
		// Split comma-separated output types
		outputs := []string{}
		for _, o := range splitString(output, ",") {
			trimmed := trimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Projects configuration
	if projectsDir := os.Getenv("LIBTRACK_PROJECTS_DIR"); projectsDir != "" {
		config.Projects.Dir = projectsDir
	}

	// Variables configuration
	if variablesDir := os.Getenv("LIBTRACK_VARIABLES_DIR"); variablesDir != "" {
		config.Variables.Dir = variablesDir
	}

	// Search configuration
	if apiKey := os.Getenv("LIBTRACK_SERPER_API_KEY"); apiKey != "" {
		config.Search.APIKey = apiKey
	} else if apiKey := os.Getenv("SERPER_API_KEY"); apiKey != "" {
		config.Search.APIKey = apiKey
	}
	if baseURL := os.Getenv("LIBTRACK_SERPER_BASE_URL"); baseURL != "" {
		config.Search.BaseURL = baseURL
	}
	if maxResults := os.Getenv("LIBTRACK_SEARCH_MAX_RESULTS"); maxResults != "" {
		if mr, err := strconv.Atoi(maxResults); err == nil {
			config.Search.MaxResults = mr
		}
	}
	if country := os.Getenv("LIBTRACK_SEARCH_COUNTRY"); country != "" {
		config.Search.Country = country
	}
	if rateLimit := os.Getenv("LIBTRACK_SEARCH_RATE_LIMIT"); rateLimit != "" {
		config.Search.RateLimit = rateLimit
	}
	if requestTimeout := os.Getenv("LIBTRACK_SEARCH_REQUEST_TIMEOUT"); requestTimeout != "" {
		if rt, err := time.ParseDuration(requestTimeout); err == nil {
			config.Search.RequestTimeout = rt
		}
	}

	// GitHub configuration
	if enabled := os.Getenv("LIBTRACK_GITHUB_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.GitHub.Enabled = e
		}
	}
	if token := os.Getenv("LIBTRACK_GITHUB_TOKEN"); token != "" {
		config.GitHub.Token = token
	} else if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		config.GitHub.Token = token
	}
	if maxReleases := os.Getenv("LIBTRACK_GITHUB_MAX_RELEASES"); maxReleases != "" {
		if mr, err := strconv.Atoi(maxReleases); err == nil {
			config.GitHub.MaxReleases = mr
		}
	}

	// Gemini configuration
	if apiKey := os.Getenv("LIBTRACK_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("LIBTRACK_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if timeout := os.Getenv("LIBTRACK_GEMINI_TIMEOUT"); timeout != "" {
		config.Gemini.Timeout = timeout
	}
	if rateLimit := os.Getenv("LIBTRACK_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}
	if temperature := os.Getenv("LIBTRACK_GEMINI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Gemini.Temperature = float32(t)
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("LIBTRACK_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // LIBTRACK_ prefix takes priority
	}
	if model := os.Getenv("LIBTRACK_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("LIBTRACK_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("LIBTRACK_CLAUDE_TIMEOUT"); timeout != "" {
		config.Claude.Timeout = timeout
	}
	if rateLimit := os.Getenv("LIBTRACK_CLAUDE_RATE_LIMIT"); rateLimit != "" {
		config.Claude.RateLimit = rateLimit
	}
	if temperature := os.Getenv("LIBTRACK_CLAUDE_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Claude.Temperature = float32(t)
		}
	}

	// LLM provider configuration
	if provider := os.Getenv("LIBTRACK_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}

	// Engine configuration
	if minConfidence := os.Getenv("LIBTRACK_ENGINE_MIN_CONFIDENCE"); minConfidence != "" {
		if mc, err := strconv.Atoi(minConfidence); err == nil {
			config.Engine.MinConfidence = mc
		}
	}
	if reAlertDelta := os.Getenv("LIBTRACK_ENGINE_RE_ALERT_DELTA"); reAlertDelta != "" {
		if rad, err := strconv.Atoi(reAlertDelta); err == nil {
			config.Engine.ReAlertDelta = rad
		}
	}

	// Mail configuration
	if testMode := os.Getenv("LIBTRACK_MAIL_TEST_MODE"); testMode != "" {
		if tm, err := strconv.ParseBool(testMode); err == nil {
			config.Mail.TestMode = tm
		}
	}
	if fromName := os.Getenv("LIBTRACK_MAIL_FROM_NAME"); fromName != "" {
		config.Mail.FromName = fromName
	}

	// Sweep configuration
	if enabled := os.Getenv("LIBTRACK_SWEEP_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Sweep.Enabled = e
		}
	}
	if sweepTime := os.Getenv("LIBTRACK_SWEEP_TIME"); sweepTime != "" {
		config.Sweep.Time = sweepTime
	}
	if concurrency := os.Getenv("LIBTRACK_SWEEP_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Sweep.Concurrency = c
		}
	}
	if componentTimeout := os.Getenv("LIBTRACK_SWEEP_COMPONENT_TIMEOUT"); componentTimeout != "" {
		if _, err := time.ParseDuration(componentTimeout); err == nil {
			config.Sweep.ComponentTimeout = componentTimeout
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, sweepTime string, testMode bool) {
	// Command-line flags have highest priority
	if sweepTime != "" {
		config.Sweep.Time = sweepTime
	}
	if testMode {
		config.Mail.TestMode = true
	}
}

// ResolveAPIKey resolves an API key by name with environment variable priority
// Resolution order: environment variables → KV store → config fallback → error
// This ensures LIBTRACK_* environment variables always take precedence
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	// Map of KV store key names to environment variable names
	// Environment variables have highest priority
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"LIBTRACK_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"anthropic_api_key": {"LIBTRACK_CLAUDE_API_KEY"},
		"claude_api_key":    {"LIBTRACK_CLAUDE_API_KEY"},
		"serper_api_key":    {"LIBTRACK_SERPER_API_KEY", "SERPER_API_KEY"},
		"github_token":      {"LIBTRACK_GITHUB_TOKEN", "GITHUB_TOKEN"},
	}

	// For Claude, also check the standard ANTHROPIC_API_KEY env var
	if name == "anthropic_api_key" || name == "claude_api_key" {
		if envValue := os.Getenv("ANTHROPIC_API_KEY"); envValue != "" {
			return envValue, nil
		}
	}

	// Check environment variables (highest priority)
	if envVarNames, hasMappedEnv := keyToEnvMapping[name]; hasMappedEnv {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	// Try to resolve from KV store (medium priority - file-based variables)
	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	// Fallback to config value (lowest priority)
	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// Helper functions for string manipulation
func splitString(s, sep string) []string {
	result := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if i+len(sep) <= len(s) && s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	result = append(result, s[start:])
	return result
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}

// ValidateSweepTime validates a "HH:MM" 24-hour time-of-day string
func ValidateSweepTime(timeOfDay string) error {
	parts := strings.Split(timeOfDay, ":")
	if len(parts) != 2 {
		return fmt.Errorf("invalid time format %q: expected HH:MM", timeOfDay)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return fmt.Errorf("invalid hour in %q: expected 00-23", timeOfDay)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid minute in %q: expected 00-59", timeOfDay)
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
