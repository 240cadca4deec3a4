package driven

import (
	"context"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
)

// ChatModel streams completions from a large language model provider.
type ChatModel interface {
	// Stream starts a completion. Cancelling ctx aborts the provider call.
	Stream(ctx context.Context, req domain.ChatRequest) (ChatStream, error)

	// Model returns the model name being used
	Model() string
}

// ChatStream yields text fragments of a completion.
type ChatStream interface {
	// Recv returns the next fragment, or io.EOF once the completion is done.
	Recv() (string, error)

	// Close releases the underlying connection
	Close() error
}
