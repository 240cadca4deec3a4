package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.KnowledgeBaseStore = (*KnowledgeBaseStore)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// KnowledgeBaseStore implements driven.KnowledgeBaseStore using PostgreSQL
type KnowledgeBaseStore struct {
	db   *DB
	q    querier
	inTx bool
}

// NewKnowledgeBaseStore creates a new KnowledgeBaseStore
func NewKnowledgeBaseStore(db *DB) *KnowledgeBaseStore {
	return &KnowledgeBaseStore{db: db, q: db}
}

const kbColumns = `id, owner_id, name, data, dataset_version, content_hash, item_count, created_at, updated_at`

const itemColumns = `id, knowledge_base_id, position, page_content, metadata, content_hash, identity_key, created_at, updated_at`

// hashLockName converts a lock name to the 64-bit key of a PostgreSQL advisory lock.
func hashLockName(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("baumi:kb:" + name))
	return int64(h.Sum64())
}

// Transact runs fn inside one transaction. Nested calls join the outer one.
func (s *KnowledgeBaseStore) Transact(ctx context.Context, fn func(tx driven.KnowledgeBaseStore) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		return fn(&KnowledgeBaseStore{db: s.db, q: tx, inTx: true})
	})
}

// LockName takes a transaction-scoped advisory lock for (owner, name).
// It is released automatically on commit or rollback.
func (s *KnowledgeBaseStore) LockName(ctx context.Context, ownerID, name string) error {
	if !s.inTx {
		return nil
	}
	_, err := s.q.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", hashLockName(ownerID+"/"+name))
	return err
}

// GetByName retrieves a knowledge base by its unique name
func (s *KnowledgeBaseStore) GetByName(ctx context.Context, ownerID, name string) (*domain.KnowledgeBase, error) {
	query := `SELECT ` + kbColumns + ` FROM knowledge_bases WHERE owner_id = $1 AND name = $2`
	return scanKnowledgeBase(s.q.QueryRowContext(ctx, query, ownerID, name))
}

// Get retrieves a knowledge base by ID
func (s *KnowledgeBaseStore) Get(ctx context.Context, ownerID, id string) (*domain.KnowledgeBase, error) {
	query := `SELECT ` + kbColumns + ` FROM knowledge_bases WHERE owner_id = $1 AND id = $2`
	return scanKnowledgeBase(s.q.QueryRowContext(ctx, query, ownerID, id))
}

// List returns all knowledge bases of an owner
func (s *KnowledgeBaseStore) List(ctx context.Context, ownerID string, order domain.ListOrder) ([]*domain.KnowledgeBase, error) {
	orderBy := "updated_at DESC, id"
	if order == domain.ListByCreatedAsc {
		orderBy = "created_at ASC, id"
	}
	query := `SELECT ` + kbColumns + ` FROM knowledge_bases WHERE owner_id = $1 ORDER BY ` + orderBy

	rows, err := s.q.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	kbs := make([]*domain.KnowledgeBase, 0)
	for rows.Next() {
		kb, err := scanKnowledgeBase(rows)
		if err != nil {
			return nil, err
		}
		kbs = append(kbs, kb)
	}
	return kbs, rows.Err()
}

// Insert creates a knowledge base row
func (s *KnowledgeBaseStore) Insert(ctx context.Context, kb *domain.KnowledgeBase) error {
	query := `
		INSERT INTO knowledge_bases (` + kbColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.q.ExecContext(ctx, query,
		kb.ID,
		kb.OwnerID,
		kb.Name,
		string(kb.Data),
		kb.DatasetVersion,
		kb.ContentHash,
		kb.ItemCount,
		kb.CreatedAt,
		kb.UpdatedAt,
	)
	return err
}

// Update overwrites the mutable columns of a knowledge base row
func (s *KnowledgeBaseStore) Update(ctx context.Context, kb *domain.KnowledgeBase) error {
	query := `
		UPDATE knowledge_bases
		SET data = $3, dataset_version = $4, content_hash = $5, item_count = $6, updated_at = $7
		WHERE id = $1 AND owner_id = $2
	`
	result, err := s.q.ExecContext(ctx, query,
		kb.ID,
		kb.OwnerID,
		string(kb.Data),
		kb.DatasetVersion,
		kb.ContentHash,
		kb.ItemCount,
		kb.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// Delete removes a knowledge base; items go with it via ON DELETE CASCADE
func (s *KnowledgeBaseStore) Delete(ctx context.Context, ownerID, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM knowledge_bases WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// GetItems returns the items of a knowledge base by creation time, then position
func (s *KnowledgeBaseStore) GetItems(ctx context.Context, knowledgeBaseID string) ([]*domain.KnowledgeBaseItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM knowledge_base_items
		WHERE knowledge_base_id = $1
		ORDER BY created_at, position, id
	`

	rows, err := s.q.QueryContext(ctx, query, knowledgeBaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*domain.KnowledgeBaseItem, 0)
	for rows.Next() {
		var item domain.KnowledgeBaseItem
		var metadataJSON []byte
		var identity sql.NullString

		err := rows.Scan(
			&item.ID,
			&item.KnowledgeBaseID,
			&item.Position,
			&item.PageContent,
			&metadataJSON,
			&item.ContentHash,
			&identity,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := item.Metadata.UnmarshalJSON(metadataJSON); err != nil {
			return nil, fmt.Errorf("item %s metadata: %w", item.ID, err)
		}
		item.IdentityKey = identity.String
		items = append(items, &item)
	}
	return items, rows.Err()
}

// CountItems returns the number of items of a knowledge base
func (s *KnowledgeBaseStore) CountItems(ctx context.Context, knowledgeBaseID string) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM knowledge_base_items WHERE knowledge_base_id = $1`,
		knowledgeBaseID,
	).Scan(&count)
	return count, err
}

// InsertItem creates an item row
func (s *KnowledgeBaseStore) InsertItem(ctx context.Context, item *domain.KnowledgeBaseItem) error {
	query := `
		INSERT INTO knowledge_base_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.q.ExecContext(ctx, query,
		item.ID,
		item.KnowledgeBaseID,
		item.Position,
		item.PageContent,
		string(item.Metadata.Raw()),
		item.ContentHash,
		NullString(item.IdentityKey),
		item.CreatedAt,
		item.UpdatedAt,
	)
	return err
}

// UpdateItem overwrites content, metadata, hash and updatedAt; identity_key is left alone
func (s *KnowledgeBaseStore) UpdateItem(ctx context.Context, item *domain.KnowledgeBaseItem) error {
	query := `
		UPDATE knowledge_base_items
		SET page_content = $2, metadata = $3, content_hash = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := s.q.ExecContext(ctx, query,
		item.ID,
		item.PageContent,
		string(item.Metadata.Raw()),
		item.ContentHash,
		item.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// Ping checks if the database is reachable
func (s *KnowledgeBaseStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKnowledgeBase(row rowScanner) (*domain.KnowledgeBase, error) {
	var kb domain.KnowledgeBase
	var data []byte

	err := row.Scan(
		&kb.ID,
		&kb.OwnerID,
		&kb.Name,
		&data,
		&kb.DatasetVersion,
		&kb.ContentHash,
		&kb.ItemCount,
		&kb.CreatedAt,
		&kb.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	kb.Data = append([]byte(nil), data...)
	return &kb, nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
