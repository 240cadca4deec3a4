package services

import (
	"context"
	"log/slog"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driven"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driving"
	"github.com/baumi-labs/baumi-core/internal/runtime"
)

// Verify interface compliance
var _ driving.ChatService = (*ChatService)(nil)

// DefaultChatTemperature is used when no temperature is configured.
const DefaultChatTemperature float32 = 0.7

// ChatService answers visitor questions from the stored knowledge.
type ChatService struct {
	services    *runtime.Services
	prompts     *PromptAssembler
	temperature float32
	logger      *slog.Logger
}

// ChatServiceConfig holds dependencies for ChatService.
type ChatServiceConfig struct {
	Services    *runtime.Services
	Prompts     *PromptAssembler
	Temperature *float32 // nil means DefaultChatTemperature; 0 is honoured
	Logger      *slog.Logger
}

// NewChatService creates a new chat service.
func NewChatService(cfg ChatServiceConfig) *ChatService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	temperature := DefaultChatTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}

	return &ChatService{
		services:    cfg.Services,
		prompts:     cfg.Prompts,
		temperature: temperature,
		logger:      logger,
	}
}

// Stream starts a streamed answer to the conversation so far.
func (s *ChatService) Stream(ctx context.Context, ownerID string, messages []domain.ChatMessage) (driven.ChatStream, error) {
	if len(messages) == 0 {
		return nil, domain.ValidationError("messages array is required")
	}

	model := s.services.ChatModel()
	if model == nil {
		return nil, domain.ErrNotConfigured
	}

	valid := make([]domain.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.IsValid() {
			valid = append(valid, msg)
		}
	}
	if len(valid) == 0 {
		return nil, domain.ValidationError("no valid messages found")
	}

	system, err := s.prompts.Assemble(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to load knowledge base for prompt", "error", err)
	}

	s.logger.Debug("starting chat stream",
		"model", model.Model(),
		"messages", len(valid),
		"system_chars", len([]rune(system)),
	)

	stream, err := model.Stream(ctx, domain.ChatRequest{
		System:      system,
		Messages:    valid,
		Temperature: s.temperature,
	})
	if err != nil {
		s.logger.Error("chat stream failed to start", "model", model.Model(), "error", err)
		return nil, domain.UpstreamError(err)
	}
	return stream, nil
}
