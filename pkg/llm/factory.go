package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/config"
)

// NewFromConfig creates the text-generation client selected by configuration.
func NewFromConfig(cfg *config.LLMConfig, logger *zap.Logger) (TextGenerator, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicClient(&AnthropicConfig{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		}, logger)
	case "openai":
		return NewOpenAIClient(&OpenAIConfig{
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
			Endpoint: cfg.Endpoint,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
