package runtime

import (
	"sync"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driven"
)

// Services holds references to dynamically configurable services.
// The chat model may be absent when no provider credential is configured.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config *domain.RuntimeConfig

	chatModel driven.ChatModel
	settings  *domain.LLMSettings
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{
		config: config,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// ChatModel returns the current chat model (may be nil)
func (s *Services) ChatModel() driven.ChatModel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatModel
}

// Settings returns the settings the current chat model was built from (may be nil)
func (s *Services) Settings() *domain.LLMSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetChatModel updates the chat model and the availability flag.
func (s *Services) SetChatModel(model driven.ChatModel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chatModel = model
	s.config.SetChatAvailable(model != nil)
}

// Configure builds a chat model from settings and installs it.
// Unconfigured settings clear the current model.
func (s *Services) Configure(factory driven.AIServiceFactory, settings *domain.LLMSettings) error {
	model, err := factory.CreateChatModel(settings)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatModel = model
	s.settings = settings
	s.config.SetChatAvailable(model != nil)
	return nil
}

// Close drops all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chatModel = nil
	s.settings = nil
	s.config.SetChatAvailable(false)
	return nil
}
