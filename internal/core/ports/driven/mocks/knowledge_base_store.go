package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driven"
)

var _ driven.KnowledgeBaseStore = (*MockKnowledgeBaseStore)(nil)

// MockKnowledgeBaseStore is an in-memory KnowledgeBaseStore for testing.
// Transact snapshots the state and restores it when fn fails, so rollback
// behaviour can be asserted without a database.
type MockKnowledgeBaseStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   storeState

	// Failure hooks (optional). A non-nil return aborts the call.
	GetByNameFn  func(ownerID, name string) error
	ListFn       func(ownerID string) error
	InsertFn     func(kb *domain.KnowledgeBase) error
	UpdateFn     func(kb *domain.KnowledgeBase) error
	InsertItemFn func(item *domain.KnowledgeBaseItem) error
	UpdateItemFn func(item *domain.KnowledgeBaseItem) error
	PingFn       func() error

	// Call counters for assertions.
	GetItemsCalls   int
	ItemWriteCalls  int
	LockNameCalls   int
	TransactCalls   int
	RolledBackCalls int
}

type storeState struct {
	kbs   map[string]*domain.KnowledgeBase
	items map[string]*domain.KnowledgeBaseItem
	seq   map[string]int
	next  int
}

// NewMockKnowledgeBaseStore creates an empty store.
func NewMockKnowledgeBaseStore() *MockKnowledgeBaseStore {
	return &MockKnowledgeBaseStore{st: newStoreState()}
}

func newStoreState() storeState {
	return storeState{
		kbs:   make(map[string]*domain.KnowledgeBase),
		items: make(map[string]*domain.KnowledgeBaseItem),
		seq:   make(map[string]int),
	}
}

func (s storeState) clone() storeState {
	c := newStoreState()
	for id, kb := range s.kbs {
		cp := *kb
		c.kbs[id] = &cp
	}
	for id, item := range s.items {
		cp := *item
		c.items[id] = &cp
	}
	for id, n := range s.seq {
		c.seq[id] = n
	}
	c.next = s.next
	return c
}

func (m *MockKnowledgeBaseStore) Transact(ctx context.Context, fn func(tx driven.KnowledgeBaseStore) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	m.TransactCalls++
	snapshot := m.st.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.st = snapshot
		m.RolledBackCalls++
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MockKnowledgeBaseStore) LockName(ctx context.Context, ownerID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LockNameCalls++
	return nil
}

func (m *MockKnowledgeBaseStore) GetByName(ctx context.Context, ownerID, name string) (*domain.KnowledgeBase, error) {
	if m.GetByNameFn != nil {
		if err := m.GetByNameFn(ownerID, name); err != nil {
			return nil, err
		}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, kb := range m.st.kbs {
		if kb.OwnerID == ownerID && kb.Name == name {
			cp := *kb
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockKnowledgeBaseStore) Get(ctx context.Context, ownerID, id string) (*domain.KnowledgeBase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	kb, ok := m.st.kbs[id]
	if !ok || kb.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	cp := *kb
	return &cp, nil
}

func (m *MockKnowledgeBaseStore) List(ctx context.Context, ownerID string, order domain.ListOrder) ([]*domain.KnowledgeBase, error) {
	if m.ListFn != nil {
		if err := m.ListFn(ownerID); err != nil {
			return nil, err
		}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*domain.KnowledgeBase, 0, len(m.st.kbs))
	for _, kb := range m.st.kbs {
		if kb.OwnerID == ownerID {
			cp := *kb
			result = append(result, &cp)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if order == domain.ListByUpdatedDesc {
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
			return m.st.seq[a.ID] > m.st.seq[b.ID]
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return m.st.seq[a.ID] < m.st.seq[b.ID]
	})
	return result, nil
}

func (m *MockKnowledgeBaseStore) Insert(ctx context.Context, kb *domain.KnowledgeBase) error {
	if m.InsertFn != nil {
		if err := m.InsertFn(kb); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.kbs[kb.ID]; ok {
		return fmt.Errorf("knowledge base %s already exists", kb.ID)
	}
	for _, existing := range m.st.kbs {
		if existing.OwnerID == kb.OwnerID && existing.Name == kb.Name {
			return fmt.Errorf("duplicate knowledge base name %q", kb.Name)
		}
	}
	cp := *kb
	m.st.kbs[kb.ID] = &cp
	m.st.next++
	m.st.seq[kb.ID] = m.st.next
	return nil
}

func (m *MockKnowledgeBaseStore) Update(ctx context.Context, kb *domain.KnowledgeBase) error {
	if m.UpdateFn != nil {
		if err := m.UpdateFn(kb); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.st.kbs[kb.ID]
	if !ok {
		return domain.ErrNotFound
	}
	existing.Data = kb.Data
	existing.DatasetVersion = kb.DatasetVersion
	existing.ContentHash = kb.ContentHash
	existing.ItemCount = kb.ItemCount
	existing.UpdatedAt = kb.UpdatedAt
	return nil
}

func (m *MockKnowledgeBaseStore) Delete(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kb, ok := m.st.kbs[id]
	if !ok || kb.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	for itemID, item := range m.st.items {
		if item.KnowledgeBaseID == id {
			delete(m.st.items, itemID)
			delete(m.st.seq, itemID)
		}
	}
	delete(m.st.kbs, id)
	delete(m.st.seq, id)
	return nil
}

func (m *MockKnowledgeBaseStore) GetItems(ctx context.Context, knowledgeBaseID string) ([]*domain.KnowledgeBaseItem, error) {
	m.mu.Lock()
	m.GetItemsCalls++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.KnowledgeBaseItem, 0)
	for _, item := range m.st.items {
		if item.KnowledgeBaseID == knowledgeBaseID {
			cp := *item
			result = append(result, &cp)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return m.st.seq[a.ID] < m.st.seq[b.ID]
	})
	return result, nil
}

func (m *MockKnowledgeBaseStore) CountItems(ctx context.Context, knowledgeBaseID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, item := range m.st.items {
		if item.KnowledgeBaseID == knowledgeBaseID {
			n++
		}
	}
	return n, nil
}

func (m *MockKnowledgeBaseStore) InsertItem(ctx context.Context, item *domain.KnowledgeBaseItem) error {
	m.mu.Lock()
	m.ItemWriteCalls++
	m.mu.Unlock()
	if m.InsertItemFn != nil {
		if err := m.InsertItemFn(item); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.kbs[item.KnowledgeBaseID]; !ok {
		return fmt.Errorf("knowledge base %s does not exist", item.KnowledgeBaseID)
	}
	if item.IdentityKey != "" {
		for _, existing := range m.st.items {
			if existing.KnowledgeBaseID == item.KnowledgeBaseID && existing.IdentityKey == item.IdentityKey {
				return fmt.Errorf("duplicate identity key %q", item.IdentityKey)
			}
		}
	}
	cp := *item
	m.st.items[item.ID] = &cp
	m.st.next++
	m.st.seq[item.ID] = m.st.next
	return nil
}

func (m *MockKnowledgeBaseStore) UpdateItem(ctx context.Context, item *domain.KnowledgeBaseItem) error {
	m.mu.Lock()
	m.ItemWriteCalls++
	m.mu.Unlock()
	if m.UpdateItemFn != nil {
		if err := m.UpdateItemFn(item); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.st.items[item.ID]
	if !ok {
		return domain.ErrNotFound
	}
	existing.PageContent = item.PageContent
	existing.Metadata = item.Metadata
	existing.ContentHash = item.ContentHash
	existing.UpdatedAt = item.UpdatedAt
	return nil
}

func (m *MockKnowledgeBaseStore) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

// AllItems returns every stored item regardless of knowledge base (for test assertions).
func (m *MockKnowledgeBaseStore) AllItems() []*domain.KnowledgeBaseItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.KnowledgeBaseItem, 0, len(m.st.items))
	for _, item := range m.st.items {
		cp := *item
		result = append(result, &cp)
	}
	return result
}

// KnowledgeBaseCount returns the number of stored knowledge bases (for test assertions).
func (m *MockKnowledgeBaseStore) KnowledgeBaseCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.st.kbs)
}
