package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/libtrackai/libtrack/internal/common"
	"github.com/libtrackai/libtrack/internal/interfaces"
	"github.com/libtrackai/libtrack/internal/models"
)

// ClaudeClassifier implements the ClassifierService interface using the
// Anthropic Claude API
type ClaudeClassifier struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    anthropic.Client
	limiter   *rate.Limiter
	timeout   time.Duration
	maxTokens int
}

// NewClaudeClassifier creates a new Claude-backed classifier.
// The API key is resolved with environment priority, then the KV store,
// then the config value.
func NewClaudeClassifier(claudeConfig *common.ClaudeConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*ClaudeClassifier, error) {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "anthropic_api_key", claudeConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Anthropic API key is required for Claude classifier (set via ANTHROPIC_API_KEY, LIBTRACK_CLAUDE_API_KEY, or claude.api_key in config): %w", err)
	}

	if claudeConfig.Model == "" {
		claudeConfig.Model = "claude-haiku-3-5-20241022"
	}

	timeout, err := time.ParseDuration(claudeConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", claudeConfig.Timeout, err)
	}

	rateInterval, err := time.ParseDuration(claudeConfig.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit duration '%s': %w", claudeConfig.RateLimit, err)
	}

	maxTokens := claudeConfig.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	service := &ClaudeClassifier{
		config:    claudeConfig,
		logger:    logger,
		client:    client,
		limiter:   rate.NewLimiter(rate.Every(rateInterval), 1),
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", claudeConfig.Model).
		Dur("timeout", timeout).
		Int("max_tokens", maxTokens).
		Msg("Claude classifier initialized successfully")

	return service, nil
}

// Provider returns the provider name
func (s *ClaudeClassifier) Provider() string {
	return "claude"
}

// Classify analyzes evidence for a component and returns a normalized signal
func (s *ClaudeClassifier) Classify(ctx context.Context, component *models.TrackedComponent, evidence *models.SearchEvidence) (*models.ClassificationSignal, error) {
	if evidence.IsEmpty() {
		return nil, fmt.Errorf("no evidence to classify for %s", component.Name)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(component, evidence))),
		},
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
	}
	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}

	resp, err := s.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return nil, fmt.Errorf("no response generated from Claude API")
	}

	signal, err := normalizeSignal(response.String(), component, evidence)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("component", component.Name).
		Str("version", signal.Version).
		Str("category", string(signal.Category)).
		Int("confidence", signal.Confidence).
		Bool("is_released", signal.IsReleased).
		Dur("duration", time.Since(startTime)).
		Msg("Claude classification completed")

	return signal, nil
}
