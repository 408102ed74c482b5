package classifier

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/libtrackai/libtrack/internal/common"
	"github.com/libtrackai/libtrack/internal/interfaces"
)

// NewClassifierService creates the classifier implementation selected by
// llm.default_provider
func NewClassifierService(cfg *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (interfaces.ClassifierService, error) {
	provider := cfg.LLM.DefaultProvider
	if provider == "" {
		provider = common.LLMProviderClaude
	}

	logger.Info().Str("provider", string(provider)).Msg("Initializing classifier service")

	switch provider {
	case common.LLMProviderClaude:
		return NewClaudeClassifier(&cfg.Claude, kvStorage, logger)
	case common.LLMProviderGemini:
		return NewGeminiClassifier(&cfg.Gemini, kvStorage, logger)
	default:
		return nil, fmt.Errorf("unsupported classifier provider '%s': must be 'claude' or 'gemini'", provider)
	}
}
