package llm

import (
	"context"
	"fmt"

	"github.com/socialchef/recipebot/internal/config"
	"github.com/socialchef/recipebot/internal/utils"
)

// NewModel creates the language model selected by the configuration.
func NewModel(ctx context.Context, cfg config.LLMConfig, googleKey, groqKey string) (Model, error) {
	switch ProviderType(cfg.Provider) {
	case ProviderGroq:
		return NewGroqModel(groqKey, cfg.Model, cfg.RequestTimeout), nil
	case ProviderGemini, "":
		poll := utils.PollConfig{
			Interval:    cfg.PollInterval,
			MaxAttempts: cfg.PollMaxAttempts,
			Timeout:     cfg.PollTimeout,
		}
		return NewGeminiModel(ctx, googleKey, cfg.Model, cfg.RequestTimeout, poll)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
