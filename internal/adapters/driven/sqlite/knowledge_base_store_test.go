package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driven"
)

const testOwner = "owner-1"

func newTestStore(t *testing.T) *KnowledgeBaseStore {
	t.Helper()

	db, err := Open(DSN("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	return NewKnowledgeBaseStore(db)
}

func newKB(name string, at time.Time) *domain.KnowledgeBase {
	return &domain.KnowledgeBase{
		ID:          uuid.NewString(),
		OwnerID:     testOwner,
		Name:        name,
		Data:        json.RawMessage(`[{"pageContent":"x","metadata":{"z":1,"a":2}}]`),
		ContentHash: "h-" + name,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func newItem(kbID, identity string, position int, at time.Time) *domain.KnowledgeBaseItem {
	return &domain.KnowledgeBaseItem{
		ID:              uuid.NewString(),
		KnowledgeBaseID: kbID,
		Position:        position,
		PageContent:     "content " + identity,
		Metadata:        domain.MustMetadata(`{"z":1,"origin_ref":"` + identity + `"}`),
		ContentHash:     "hash-" + identity,
		IdentityKey:     identity,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "kb.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", DSN("kb.db"))
	assert.Contains(t, DSN("file:x?mode=memory"), "file:x?mode=memory&_pragma=")
}

func TestKnowledgeBaseStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	kb := newKB("catalog", now)
	require.NoError(t, store.Insert(ctx, kb))

	got, err := store.GetByName(ctx, testOwner, "catalog")
	require.NoError(t, err)
	assert.Equal(t, kb.ID, got.ID)
	assert.Equal(t, string(kb.Data), string(got.Data), "snapshot keeps bytes and key order")

	byID, err := store.Get(ctx, testOwner, kb.ID)
	require.NoError(t, err)
	assert.Equal(t, "catalog", byID.Name)

	_, err = store.Get(ctx, "someone-else", kb.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.GetByName(ctx, testOwner, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Error(t, store.Insert(ctx, newKB("catalog", now)), "names are unique per owner")
}

func TestKnowledgeBaseStore_Items(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	kb := newKB("catalog", now)
	require.NoError(t, store.Insert(ctx, kb))

	require.NoError(t, store.InsertItem(ctx, newItem(kb.ID, "B", 1, now)))
	require.NoError(t, store.InsertItem(ctx, newItem(kb.ID, "A", 0, now)))
	require.NoError(t, store.InsertItem(ctx, newItem(kb.ID, "", 2, now)))
	require.NoError(t, store.InsertItem(ctx, newItem(kb.ID, "", 3, now)), "items without identity never collide")

	assert.Error(t, store.InsertItem(ctx, newItem(kb.ID, "A", 4, now)), "identity is unique within a knowledge base")

	items, err := store.GetItems(ctx, kb.ID)
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "A", items[0].IdentityKey)
	assert.Equal(t, "B", items[1].IdentityKey)
	assert.Empty(t, items[2].IdentityKey)
	assert.Equal(t, `{"z":1,"origin_ref":"A"}`, string(items[0].Metadata.Raw()))

	count, err := store.CountItems(ctx, kb.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	updated := *items[0]
	updated.PageContent = "new"
	updated.Metadata = domain.MustMetadata(`{"origin_ref":"A","price":"1 €"}`)
	updated.ContentHash = "hash-new"
	updated.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, store.UpdateItem(ctx, &updated))

	items, err = store.GetItems(ctx, kb.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.ID, items[0].ID)
	assert.Equal(t, "new", items[0].PageContent)
	assert.Equal(t, "hash-new", items[0].ContentHash)
	assert.Equal(t, "A", items[0].IdentityKey)

	missing := newItem(kb.ID, "Z", 9, now)
	assert.ErrorIs(t, store.UpdateItem(ctx, missing), domain.ErrNotFound)
}

func TestKnowledgeBaseStore_UpdateAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	first := newKB("first", base)
	second := newKB("second", base.Add(time.Second))
	require.NoError(t, store.Insert(ctx, first))
	require.NoError(t, store.Insert(ctx, second))

	first.ContentHash = "changed"
	first.ItemCount = 7
	first.DatasetVersion = "2024-05-01"
	first.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, store.Update(ctx, first))

	byUpdate, err := store.List(ctx, testOwner, domain.ListByUpdatedDesc)
	require.NoError(t, err)
	require.Len(t, byUpdate, 2)
	assert.Equal(t, "first", byUpdate[0].Name)
	assert.Equal(t, 7, byUpdate[0].ItemCount)
	assert.Equal(t, "2024-05-01", byUpdate[0].DatasetVersion)

	byCreate, err := store.List(ctx, testOwner, domain.ListByCreatedAsc)
	require.NoError(t, err)
	assert.Equal(t, "first", byCreate[0].Name)
	assert.Equal(t, "second", byCreate[1].Name)

	other, err := store.List(ctx, "nobody", domain.ListByUpdatedDesc)
	require.NoError(t, err)
	assert.Empty(t, other)

	ghost := newKB("ghost", base)
	assert.ErrorIs(t, store.Update(ctx, ghost), domain.ErrNotFound)
}

func TestKnowledgeBaseStore_TransactRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	kb := newKB("catalog", now)
	err := store.Transact(ctx, func(tx driven.KnowledgeBaseStore) error {
		require.NoError(t, tx.LockName(ctx, testOwner, "catalog"))
		require.NoError(t, tx.Insert(ctx, kb))
		require.NoError(t, tx.InsertItem(ctx, newItem(kb.ID, "A", 0, now)))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = store.GetByName(ctx, testOwner, "catalog")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	count, err := store.CountItems(ctx, kb.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestKnowledgeBaseStore_DeleteCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	kb := newKB("catalog", now)
	keep := newKB("faq", now)
	require.NoError(t, store.Insert(ctx, kb))
	require.NoError(t, store.Insert(ctx, keep))
	require.NoError(t, store.InsertItem(ctx, newItem(kb.ID, "A", 0, now)))
	require.NoError(t, store.InsertItem(ctx, newItem(kb.ID, "", 1, now)))
	require.NoError(t, store.InsertItem(ctx, newItem(keep.ID, "A", 0, now)))

	require.NoError(t, store.Delete(ctx, testOwner, kb.ID))

	items, err := store.GetItems(ctx, kb.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	kept, err := store.GetItems(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	assert.ErrorIs(t, store.Delete(ctx, testOwner, kb.ID), domain.ErrNotFound)
}

func TestKnowledgeBaseStore_Ping(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
