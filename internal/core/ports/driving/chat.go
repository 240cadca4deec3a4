package driving

import (
	"context"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driven"
)

// ChatService answers visitor conversations
type ChatService interface {
	// Stream starts a streamed answer to the conversation so far
	Stream(ctx context.Context, ownerID string, messages []domain.ChatMessage) (driven.ChatStream, error)
}
