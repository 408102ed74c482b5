package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/libtrackai/libtrack/internal/common"
	"github.com/libtrackai/libtrack/internal/interfaces"
	"github.com/libtrackai/libtrack/internal/models"
)

// GeminiClassifier implements the ClassifierService interface using the
// Google Gemini API
type GeminiClassifier struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewGeminiClassifier creates a new Gemini-backed classifier.
// The API key is resolved with environment priority, then the KV store,
// then the config value.
func NewGeminiClassifier(geminiConfig *common.GeminiConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*GeminiClassifier, error) {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "gemini_api_key", geminiConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Gemini API key is required for Gemini classifier (set via GEMINI_API_KEY, LIBTRACK_GEMINI_API_KEY, or gemini.api_key in config): %w", err)
	}

	if geminiConfig.Model == "" {
		geminiConfig.Model = "gemini-3-flash-preview"
	}

	timeout, err := time.ParseDuration(geminiConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", geminiConfig.Timeout, err)
	}

	rateInterval, err := time.ParseDuration(geminiConfig.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit duration '%s': %w", geminiConfig.RateLimit, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiClassifier{
		config:  geminiConfig,
		logger:  logger,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(rateInterval), 1),
		timeout: timeout,
	}

	logger.Debug().
		Str("model", geminiConfig.Model).
		Dur("timeout", timeout).
		Msg("Gemini classifier initialized successfully")

	return service, nil
}

// Provider returns the provider name
func (s *GeminiClassifier) Provider() string {
	return "gemini"
}

// Classify analyzes evidence for a component and returns a normalized signal
func (s *GeminiClassifier) Classify(ctx context.Context, component *models.TrackedComponent, evidence *models.SearchEvidence) (*models.ClassificationSignal, error) {
	if evidence.IsEmpty() {
		return nil, fmt.Errorf("no evidence to classify for %s", component.Name)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(buildPrompt(component, evidence))},
		},
	}
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(s.config.Temperature),
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}

	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.config.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}

	// Extract text from response - iterate candidates until non-empty text is found
	var response strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}
	if response.Len() == 0 {
		return nil, fmt.Errorf("no response generated from Gemini API")
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
		Msg("Gemini classification completed")

	return signal, nil
}
