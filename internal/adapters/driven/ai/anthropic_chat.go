package ai

import (
	"context"
	"fmt"
	"io"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driven"
)

// Ensure AnthropicChat implements ChatModel
var _ driven.ChatModel = (*AnthropicChat)(nil)

const (
	// DefaultAnthropicModel is used when no model is configured.
	DefaultAnthropicModel = "claude-3-5-haiku-latest"

	// AnthropicMaxTokens caps a single answer.
	AnthropicMaxTokens = 1024
)

// AnthropicChat streams messages from the Anthropic API.
type AnthropicChat struct {
	client anthropic.Client
	model  string
}

// NewAnthropicChat creates an Anthropic chat model. baseURL may be empty.
func NewAnthropicChat(apiKey, model, baseURL string) (*AnthropicChat, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	if model == "" {
		model = DefaultAnthropicModel
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &AnthropicChat{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

func (c *AnthropicChat) Model() string {
	return c.model
}

func (c *AnthropicChat) Stream(ctx context.Context, req domain.ChatRequest) (driven.ChatStream, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == domain.ChatRoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   AnthropicMaxTokens,
		Messages:    messages,
		Temperature: anthropic.Float(float64(req.Temperature)),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	stream := c.client.Messages.NewStreaming(ctx, params)

	// Request errors only show up on the first Next; read ahead so they
	// surface from Stream.
	s := &anthropicStream{stream: stream}
	if err := s.prime(); err != nil {
		stream.Close()
		return nil, err
	}
	return s, nil
}

type anthropicStream struct {
	stream  *ssestream.Stream[anthropic.MessageStreamEventUnion]
	pending string
	done    bool
}

// prime reads up to the first text delta.
func (s *anthropicStream) prime() error {
	text, err := s.next()
	if err == io.EOF {
		s.done = true
		return nil
	}
	if err != nil {
		return err
	}
	s.pending = text
	return nil
}

func (s *anthropicStream) next() (string, error) {
	for s.stream.Next() {
		event := s.stream.Current()
		if event.Type != "content_block_delta" || event.Delta.Type != "text_delta" {
			continue
		}
		if event.Delta.Text != "" {
			return event.Delta.Text, nil
		}
	}
	if err := s.stream.Err(); err != nil {
		return "", fmt.Errorf("anthropic stream: %w", err)
	}
	return "", io.EOF
}

func (s *anthropicStream) Recv() (string, error) {
	if s.pending != "" {
		text := s.pending
		s.pending = ""
		return text, nil
	}
	if s.done {
		return "", io.EOF
	}
	return s.next()
}

func (s *anthropicStream) Close() error {
	return s.stream.Close()
}
