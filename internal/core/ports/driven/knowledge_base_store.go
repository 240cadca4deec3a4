package driven

import (
	"context"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
)

// KnowledgeBaseStore handles knowledge base and item persistence.
// Lookups that find nothing return domain.ErrNotFound.
type KnowledgeBaseStore interface {
	// Transact runs fn against a store bound to one transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	Transact(ctx context.Context, fn func(tx KnowledgeBaseStore) error) error

	// LockName serialises writers of one (owner, name) pair until the
	// surrounding transaction ends. A no-op outside a transaction.
	LockName(ctx context.Context, ownerID, name string) error

	// GetByName retrieves a knowledge base by its unique name
	GetByName(ctx context.Context, ownerID, name string) (*domain.KnowledgeBase, error)

	// Get retrieves a knowledge base by ID
	Get(ctx context.Context, ownerID, id string) (*domain.KnowledgeBase, error)

	// List returns all knowledge bases of an owner in the given order
	List(ctx context.Context, ownerID string, order domain.ListOrder) ([]*domain.KnowledgeBase, error)

	// Insert creates a knowledge base row
	Insert(ctx context.Context, kb *domain.KnowledgeBase) error

	// Update overwrites the mutable columns of a knowledge base row
	Update(ctx context.Context, kb *domain.KnowledgeBase) error

	// Delete removes a knowledge base and all of its items
	Delete(ctx context.Context, ownerID, id string) error

	// GetItems returns the items of a knowledge base by creation time, then position
	GetItems(ctx context.Context, knowledgeBaseID string) ([]*domain.KnowledgeBaseItem, error)

	// CountItems returns the number of items of a knowledge base
	CountItems(ctx context.Context, knowledgeBaseID string) (int, error)

	// InsertItem creates an item row
	InsertItem(ctx context.Context, item *domain.KnowledgeBaseItem) error

	// UpdateItem overwrites content, metadata, hash and updatedAt of an item.
	// The identity key is never changed.
	UpdateItem(ctx context.Context, item *domain.KnowledgeBaseItem) error

	// Ping checks the backing database
	Ping(ctx context.Context) error
}
