package driving

import (
	"context"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
)

// KnowledgeBaseService ingests and curates knowledge bases
type KnowledgeBaseService interface {
	// Sync reconciles an upload against the stored knowledge base of the same
	// name. Requests with Mode replace are routed to Replace.
	Sync(ctx context.Context, req domain.SyncRequest) (*domain.SyncResult, error)

	// Replace overwrites the payload snapshot without touching items
	Replace(ctx context.Context, req domain.SyncRequest) (*domain.SyncResult, error)

	// List returns all knowledge bases, most recently updated first
	List(ctx context.Context, ownerID string) ([]*domain.KnowledgeBase, error)

	// Get retrieves a knowledge base by ID
	Get(ctx context.Context, ownerID, id string) (*domain.KnowledgeBase, error)

	// Items returns the items of a knowledge base
	Items(ctx context.Context, ownerID, id string) ([]*domain.KnowledgeBaseItem, error)

	// Delete removes a knowledge base and its items
	Delete(ctx context.Context, ownerID, id string) error
}
