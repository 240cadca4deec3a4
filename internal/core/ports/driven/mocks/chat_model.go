package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driven"
)

var _ driven.ChatModel = (*MockChatModel)(nil)

// MockChatModel replays a fixed list of fragments and records every request.
type MockChatModel struct {
	mu       sync.Mutex
	Chunks   []string
	StreamFn func(ctx context.Context, req domain.ChatRequest) (driven.ChatStream, error)
	Requests []domain.ChatRequest
}

// NewMockChatModel creates a chat model that streams the given fragments.
func NewMockChatModel(chunks ...string) *MockChatModel {
	return &MockChatModel{Chunks: chunks}
}

func (m *MockChatModel) Stream(ctx context.Context, req domain.ChatRequest) (driven.ChatStream, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.StreamFn != nil {
		return m.StreamFn(ctx, req)
	}
	return NewMockChatStream(m.Chunks...), nil
}

func (m *MockChatModel) Model() string {
	return "mock-model"
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockChatModel) LastRequest() domain.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return domain.ChatRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}

// MockChatStream yields Chunks and then Err (io.EOF when nil).
type MockChatStream struct {
	Chunks []string
	Err    error
	Closed bool
	pos    int
}

// NewMockChatStream creates a stream over fixed fragments.
func NewMockChatStream(chunks ...string) *MockChatStream {
	return &MockChatStream{Chunks: chunks}
}

func (s *MockChatStream) Recv() (string, error) {
	if s.pos < len(s.Chunks) {
		chunk := s.Chunks[s.pos]
		s.pos++
		return chunk, nil
	}
	if s.Err != nil {
		return "", s.Err
	}
	return "", io.EOF
}

func (s *MockChatStream) Close() error {
	s.Closed = true
	return nil
}
