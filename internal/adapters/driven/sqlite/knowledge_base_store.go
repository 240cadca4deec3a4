package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.KnowledgeBaseStore = (*KnowledgeBaseStore)(nil)

// KnowledgeBaseStore implements driven.KnowledgeBaseStore on SQLite via gorm.
type KnowledgeBaseStore struct {
	db   *gorm.DB
	inTx bool
}

// NewKnowledgeBaseStore creates a store over an opened database.
func NewKnowledgeBaseStore(db *gorm.DB) *KnowledgeBaseStore {
	return &KnowledgeBaseStore{db: db}
}

// Transact runs fn inside one transaction. Nested calls join the outer one.
func (s *KnowledgeBaseStore) Transact(ctx context.Context, fn func(tx driven.KnowledgeBaseStore) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&KnowledgeBaseStore{db: tx, inTx: true})
	})
}

// LockName is a no-op: the single connection already serialises writers.
func (s *KnowledgeBaseStore) LockName(ctx context.Context, ownerID, name string) error {
	return nil
}

func (s *KnowledgeBaseStore) GetByName(ctx context.Context, ownerID, name string) (*domain.KnowledgeBase, error) {
	var row knowledgeBaseRow
	err := s.db.WithContext(ctx).Where("owner_id = ? AND name = ?", ownerID, name).First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	return row.toDomain(), nil
}

func (s *KnowledgeBaseStore) Get(ctx context.Context, ownerID, id string) (*domain.KnowledgeBase, error) {
	var row knowledgeBaseRow
	err := s.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, id).First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	return row.toDomain(), nil
}

func (s *KnowledgeBaseStore) List(ctx context.Context, ownerID string, order domain.ListOrder) ([]*domain.KnowledgeBase, error) {
	orderBy := "updated_at desc, rowid asc"
	if order == domain.ListByCreatedAsc {
		orderBy = "created_at asc, rowid asc"
	}

	var rows []knowledgeBaseRow
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order(orderBy).Find(&rows).Error; err != nil {
		return nil, err
	}

	kbs := make([]*domain.KnowledgeBase, 0, len(rows))
	for i := range rows {
		kbs = append(kbs, rows[i].toDomain())
	}
	return kbs, nil
}

func (s *KnowledgeBaseStore) Insert(ctx context.Context, kb *domain.KnowledgeBase) error {
	return s.db.WithContext(ctx).Create(fromKnowledgeBase(kb)).Error
}

func (s *KnowledgeBaseStore) Update(ctx context.Context, kb *domain.KnowledgeBase) error {
	result := s.db.WithContext(ctx).Model(&knowledgeBaseRow{}).
		Where("id = ? AND owner_id = ?", kb.ID, kb.OwnerID).
		Updates(map[string]any{
			"data":            string(kb.Data),
			"dataset_version": kb.DatasetVersion,
			"content_hash":    kb.ContentHash,
			"item_count":      kb.ItemCount,
			"updated_at":      kb.UpdatedAt.UTC(),
		})
	return affected(result)
}

// Delete removes a knowledge base and its items in one transaction.
func (s *KnowledgeBaseStore) Delete(ctx context.Context, ownerID, id string) error {
	return s.Transact(ctx, func(tx driven.KnowledgeBaseStore) error {
		db := tx.(*KnowledgeBaseStore).db.WithContext(ctx)

		result := db.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&knowledgeBaseRow{})
		if err := affected(result); err != nil {
			return err
		}
		return db.Where("knowledge_base_id = ?", id).Delete(&itemRow{}).Error
	})
}

func (s *KnowledgeBaseStore) GetItems(ctx context.Context, knowledgeBaseID string) ([]*domain.KnowledgeBaseItem, error) {
	var rows []itemRow
	err := s.db.WithContext(ctx).
		Where("knowledge_base_id = ?", knowledgeBaseID).
		Order("created_at asc, position asc, rowid asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]*domain.KnowledgeBaseItem, 0, len(rows))
	for i := range rows {
		item, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *KnowledgeBaseStore) CountItems(ctx context.Context, knowledgeBaseID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&itemRow{}).Where("knowledge_base_id = ?", knowledgeBaseID).Count(&count).Error
	return int(count), err
}

func (s *KnowledgeBaseStore) InsertItem(ctx context.Context, item *domain.KnowledgeBaseItem) error {
	return s.db.WithContext(ctx).Create(fromItem(item)).Error
}

// UpdateItem overwrites content, metadata, hash and updatedAt; identity_key is left alone
func (s *KnowledgeBaseStore) UpdateItem(ctx context.Context, item *domain.KnowledgeBaseItem) error {
	result := s.db.WithContext(ctx).Model(&itemRow{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"page_content": item.PageContent,
			"metadata":     string(item.Metadata.Raw()),
			"content_hash": item.ContentHash,
			"updated_at":   item.UpdatedAt.UTC(),
		})
	return affected(result)
}

func (s *KnowledgeBaseStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func affected(result *gorm.DB) error {
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func fromKnowledgeBase(kb *domain.KnowledgeBase) *knowledgeBaseRow {
	return &knowledgeBaseRow{
		ID:             kb.ID,
		OwnerID:        kb.OwnerID,
		Name:           kb.Name,
		Data:           string(kb.Data),
		DatasetVersion: kb.DatasetVersion,
		ContentHash:    kb.ContentHash,
		ItemCount:      kb.ItemCount,
		CreatedAt:      kb.CreatedAt.UTC(),
		UpdatedAt:      kb.UpdatedAt.UTC(),
	}
}

func (r *knowledgeBaseRow) toDomain() *domain.KnowledgeBase {
	return &domain.KnowledgeBase{
		ID:             r.ID,
		OwnerID:        r.OwnerID,
		Name:           r.Name,
		Data:           []byte(r.Data),
		DatasetVersion: r.DatasetVersion,
		ContentHash:    r.ContentHash,
		ItemCount:      r.ItemCount,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func fromItem(item *domain.KnowledgeBaseItem) *itemRow {
	row := &itemRow{
		ID:              item.ID,
		KnowledgeBaseID: item.KnowledgeBaseID,
		Position:        item.Position,
		PageContent:     item.PageContent,
		Metadata:        string(item.Metadata.Raw()),
		ContentHash:     item.ContentHash,
		CreatedAt:       item.CreatedAt.UTC(),
		UpdatedAt:       item.UpdatedAt.UTC(),
	}
	if item.IdentityKey != "" {
		identity := item.IdentityKey
		row.IdentityKey = &identity
	}
	return row
}

func (r *itemRow) toDomain() (*domain.KnowledgeBaseItem, error) {
	item := &domain.KnowledgeBaseItem{
		ID:              r.ID,
		KnowledgeBaseID: r.KnowledgeBaseID,
		Position:        r.Position,
		PageContent:     r.PageContent,
		ContentHash:     r.ContentHash,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if err := item.Metadata.UnmarshalJSON([]byte(r.Metadata)); err != nil {
		return nil, fmt.Errorf("item %s metadata: %w", r.ID, err)
	}
	if r.IdentityKey != nil {
		item.IdentityKey = *r.IdentityKey
	}
	return item, nil
}
