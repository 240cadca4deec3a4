package ai

import (
	"fmt"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driven"
)

// Ensure Factory implements AIServiceFactory
var _ driven.AIServiceFactory = (*Factory)(nil)

// Factory creates chat models from settings
type Factory struct{}

// NewFactory creates a new AI service factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateChatModel returns nil, nil when settings carry no credential, so the
// chat endpoint can report "not configured" instead of failing at startup.
func (f *Factory) CreateChatModel(settings *domain.LLMSettings) (driven.ChatModel, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return NewOpenAIChat(settings.APIKey, settings.Model, settings.BaseURL)
	case domain.AIProviderAnthropic:
		return NewAnthropicChat(settings.APIKey, settings.Model, settings.BaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}
