package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/sashabaranov/go-openai"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driven"
)

// Ensure OpenAIChat implements ChatModel
var _ driven.ChatModel = (*OpenAIChat)(nil)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIChat streams chat completions from the OpenAI API or a compatible endpoint.
type OpenAIChat struct {
	client *openai.Client
	model  string
}

// NewOpenAIChat creates an OpenAI chat model. baseURL may be empty.
func NewOpenAIChat(apiKey, model, baseURL string) (*OpenAIChat, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIChat{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (c *OpenAIChat) Model() string {
	return c.model
}

// Stream starts a completion; the system prompt goes first as a system message.
func (c *OpenAIChat) Stream(ctx context.Context, req domain.ChatRequest) (driven.ChatStream, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: openAITemperature(req.Temperature),
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}
	return &openAIStream{stream: stream}, nil
}

// openAITemperature maps 0 to the smallest positive float32: the request
// field is omitempty, and an omitted temperature means 1 to the API.
func openAITemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

// Recv skips chunks without text, such as the role-only opener.
func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("openai recv: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if text := resp.Choices[0].Delta.Content; text != "" {
			return text, nil
		}
	}
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}
