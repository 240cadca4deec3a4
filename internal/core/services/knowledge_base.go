package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driven"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driving"
	"github.com/baumi-labs/baumi-core/internal/fingerprint"
)

// Verify interface compliance
var _ driving.KnowledgeBaseService = (*KnowledgeBaseService)(nil)

// DefaultSyncLockTTL bounds how long a crashed instance can block syncs of a name.
const DefaultSyncLockTTL = 2 * time.Minute

// KnowledgeBaseService ingests uploads and reconciles them with stored items.
//
// Syncs of the same (owner, name) are serialised three ways: an in-process
// keyed mutex, an optional distributed lock, and the store's per-name lock
// inside the write transaction.
type KnowledgeBaseService struct {
	store   driven.KnowledgeBaseStore
	lock    driven.DistributedLock
	lockTTL time.Duration
	names   *keyedMutex
	now     func() time.Time
	logger  *slog.Logger
}

// KnowledgeBaseServiceConfig holds dependencies for KnowledgeBaseService.
type KnowledgeBaseServiceConfig struct {
	Store   driven.KnowledgeBaseStore
	Lock    driven.DistributedLock // optional
	LockTTL time.Duration
	Now     func() time.Time
	Logger  *slog.Logger
}

// NewKnowledgeBaseService creates a new knowledge base service.
func NewKnowledgeBaseService(cfg KnowledgeBaseServiceConfig) *KnowledgeBaseService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = DefaultSyncLockTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &KnowledgeBaseService{
		store:   cfg.Store,
		lock:    cfg.Lock,
		lockTTL: ttl,
		names:   newKeyedMutex(),
		now:     now,
		logger:  logger,
	}
}

// Sync reconciles an upload against the stored knowledge base of the same name.
func (s *KnowledgeBaseService) Sync(ctx context.Context, req domain.SyncRequest) (*domain.SyncResult, error) {
	if req.Mode == domain.UpdateModeReplace {
		return s.Replace(ctx, req)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload, err := fingerprint.Encode(req.Records)
	if err != nil {
		return nil, domain.ValidationError("data cannot be encoded: %v", err)
	}
	overallHash := fingerprint.Sum(payload)

	unlock, err := s.acquire(ctx, req.OwnerID, req.Name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	startTime := time.Now()
	var result *domain.SyncResult
	err = s.store.Transact(ctx, func(tx driven.KnowledgeBaseStore) error {
		if err := tx.LockName(ctx, req.OwnerID, req.Name); err != nil {
			return domain.PersistenceError("lock name", err)
		}

		existing, err := tx.GetByName(ctx, req.OwnerID, req.Name)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			result, err = s.create(ctx, tx, req, payload, overallHash)
			return err
		case err != nil:
			return domain.PersistenceError("get knowledge base", err)
		case existing.ContentHash == overallHash:
			total := len(req.Records)
			result = &domain.SyncResult{
				KnowledgeBase: existing,
				Stats:         domain.SyncStats{Skipped: total, Total: total},
			}
			return nil
		default:
			result, err = s.reconcile(ctx, tx, existing, req, payload, overallHash)
			return err
		}
	})
	if err != nil {
		s.logger.Error("knowledge base sync failed",
			"name", req.Name,
			"error", err,
		)
		if errors.Is(err, domain.ErrInvalidInput) {
			return nil, err
		}
		return nil, domain.PersistenceError("sync knowledge base", err)
	}

	s.logger.Info("knowledge base synced",
		"name", req.Name,
		"id", result.ID,
		"added", result.Stats.Added,
		"updated", result.Stats.Updated,
		"skipped", result.Stats.Skipped,
		"total", result.Stats.Total,
		"item_count", result.ItemCount,
		"duration", time.Since(startTime),
	)
	return result, nil
}

// Replace overwrites the payload snapshot of a knowledge base without
// deduplication. Items are never created or modified.
func (s *KnowledgeBaseService) Replace(ctx context.Context, req domain.SyncRequest) (*domain.SyncResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload, err := fingerprint.Encode(req.Records)
	if err != nil {
		return nil, domain.ValidationError("data cannot be encoded: %v", err)
	}
	overallHash := fingerprint.Sum(payload)

	unlock, err := s.acquire(ctx, req.OwnerID, req.Name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	total := len(req.Records)
	var kb *domain.KnowledgeBase
	err = s.store.Transact(ctx, func(tx driven.KnowledgeBaseStore) error {
		if err := tx.LockName(ctx, req.OwnerID, req.Name); err != nil {
			return domain.PersistenceError("lock name", err)
		}

		now := s.now()
		existing, err := tx.GetByName(ctx, req.OwnerID, req.Name)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			kb = &domain.KnowledgeBase{
				ID:             uuid.NewString(),
				OwnerID:        req.OwnerID,
				Name:           req.Name,
				Data:           payload,
				DatasetVersion: s.datasetVersion(req),
				ContentHash:    overallHash,
				ItemCount:      total,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			return domain.PersistenceError("insert knowledge base", tx.Insert(ctx, kb))
		case err != nil:
			return domain.PersistenceError("get knowledge base", err)
		}

		kb = existing
		kb.Data = payload
		kb.DatasetVersion = s.datasetVersion(req)
		kb.ContentHash = overallHash
		kb.ItemCount = total
		kb.UpdatedAt = now
		return domain.PersistenceError("update knowledge base", tx.Update(ctx, kb))
	})
	if err != nil {
		s.logger.Error("knowledge base replace failed", "name", req.Name, "error", err)
		return nil, domain.PersistenceError("replace knowledge base", err)
	}

	s.logger.Info("knowledge base replaced", "name", req.Name, "id", kb.ID, "total", total)
	return &domain.SyncResult{
		KnowledgeBase: kb,
		Stats:         domain.SyncStats{Total: total},
	}, nil
}

// List returns all knowledge bases, most recently updated first.
func (s *KnowledgeBaseService) List(ctx context.Context, ownerID string) ([]*domain.KnowledgeBase, error) {
	kbs, err := s.store.List(ctx, ownerID, domain.ListByUpdatedDesc)
	if err != nil {
		return nil, domain.PersistenceError("list knowledge bases", err)
	}
	return kbs, nil
}

// Get retrieves a knowledge base by ID.
func (s *KnowledgeBaseService) Get(ctx context.Context, ownerID, id string) (*domain.KnowledgeBase, error) {
	kb, err := s.store.Get(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, domain.PersistenceError("get knowledge base", err)
	}
	return kb, nil
}

// Items returns the items of a knowledge base.
func (s *KnowledgeBaseService) Items(ctx context.Context, ownerID, id string) ([]*domain.KnowledgeBaseItem, error) {
	kb, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	items, err := s.store.GetItems(ctx, kb.ID)
	if err != nil {
		return nil, domain.PersistenceError("get items", err)
	}
	return items, nil
}

// Delete removes a knowledge base and, by cascade, its items.
func (s *KnowledgeBaseService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return domain.PersistenceError("delete knowledge base", err)
	}
	s.logger.Info("knowledge base deleted", "id", id)
	return nil
}

func (s *KnowledgeBaseService) create(ctx context.Context, tx driven.KnowledgeBaseStore, req domain.SyncRequest, payload []byte, overallHash string) (*domain.SyncResult, error) {
	now := s.now()
	kb := &domain.KnowledgeBase{
		ID:             uuid.NewString(),
		OwnerID:        req.OwnerID,
		Name:           req.Name,
		Data:           payload,
		DatasetVersion: s.datasetVersion(req),
		ContentHash:    overallHash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	plan, err := planReconciliation(kb.ID, req.Records, nil, now)
	if err != nil {
		return nil, err
	}
	kb.ItemCount = len(plan.inserts)

	if err := tx.Insert(ctx, kb); err != nil {
		return nil, domain.PersistenceError("insert knowledge base", err)
	}
	if err := plan.apply(ctx, tx); err != nil {
		return nil, err
	}
	return &domain.SyncResult{KnowledgeBase: kb, Stats: plan.stats}, nil
}

func (s *KnowledgeBaseService) reconcile(ctx context.Context, tx driven.KnowledgeBaseStore, kb *domain.KnowledgeBase, req domain.SyncRequest, payload []byte, overallHash string) (*domain.SyncResult, error) {
	existing, err := tx.GetItems(ctx, kb.ID)
	if err != nil {
		return nil, domain.PersistenceError("get items", err)
	}

	now := s.now()
	plan, err := planReconciliation(kb.ID, req.Records, existing, now)
	if err != nil {
		return nil, err
	}
	if err := plan.apply(ctx, tx); err != nil {
		return nil, err
	}

	count, err := tx.CountItems(ctx, kb.ID)
	if err != nil {
		return nil, domain.PersistenceError("count items", err)
	}

	kb.Data = payload
	kb.ContentHash = overallHash
	kb.ItemCount = count
	kb.DatasetVersion = s.datasetVersion(req)
	kb.UpdatedAt = now
	if err := tx.Update(ctx, kb); err != nil {
		return nil, domain.PersistenceError("update knowledge base", err)
	}
	return &domain.SyncResult{KnowledgeBase: kb, Stats: plan.stats}, nil
}

// datasetVersion picks the caller's hint, else the first record's
// dataset_version, else today's date.
func (s *KnowledgeBaseService) datasetVersion(req domain.SyncRequest) string {
	if req.DatasetVersion != "" {
		return req.DatasetVersion
	}
	if len(req.Records) > 0 {
		if v := req.Records[0].Meta().DatasetVersion(); v != "" {
			return v
		}
	}
	return s.now().Format("2006-01-02")
}

// acquire serialises syncs of one (owner, name) pair.
func (s *KnowledgeBaseService) acquire(ctx context.Context, ownerID, name string) (func(), error) {
	key := ownerID + "/" + name
	s.names.Lock(key)

	if s.lock == nil {
		return func() { s.names.Unlock(key) }, nil
	}

	lockName := "kb-sync:" + key
	acquired, err := s.lock.Acquire(ctx, lockName, s.lockTTL)
	if err != nil {
		s.names.Unlock(key)
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !acquired {
		s.names.Unlock(key)
		return nil, fmt.Errorf("%w: %s", domain.ErrSyncInProgress, name)
	}

	stop := s.keepAlive(context.WithoutCancel(ctx), lockName)

	return func() {
		stop()
		if err := s.lock.Release(context.WithoutCancel(ctx), lockName); err != nil {
			s.logger.Warn("failed to release sync lock", "lock", lockName, "error", err)
		}
		s.names.Unlock(key)
	}, nil
}

// keepAlive extends the distributed lock every third of its TTL until the
// returned func is called. The returned func waits for the heartbeat to exit.
func (s *KnowledgeBaseService) keepAlive(ctx context.Context, lockName string) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.lockTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.lock.Extend(ctx, lockName, s.lockTTL); err != nil {
					if ctx.Err() != nil {
						return
					}
					s.logger.Warn("failed to extend sync lock", "lock", lockName, "error", err)
					return
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// reconciliation is the set of writes that brings stored items in line
// with an upload.
type reconciliation struct {
	inserts []*domain.KnowledgeBaseItem
	updates []*domain.KnowledgeBaseItem
	stats   domain.SyncStats
}

// planReconciliation classifies every incoming record against the stored
// items. A content hash hit is skipped; an identity hit updates the stored
// row in place and keeps its identity key; anything else is added. The
// lookups are updated as records are processed, so repeated identities
// within one upload resolve to a single row.
func planReconciliation(kbID string, records []domain.Record, existing []*domain.KnowledgeBaseItem, now time.Time) (*reconciliation, error) {
	byHash := make(map[string]*domain.KnowledgeBaseItem, len(existing))
	byIdentity := make(map[string]*domain.KnowledgeBaseItem, len(existing))
	nextPosition := 0
	for _, item := range existing {
		if _, ok := byHash[item.ContentHash]; !ok {
			byHash[item.ContentHash] = item
		}
		if item.IdentityKey != "" {
			if _, ok := byIdentity[item.IdentityKey]; !ok {
				byIdentity[item.IdentityKey] = item
			}
		}
		if item.Position >= nextPosition {
			nextPosition = item.Position + 1
		}
	}

	plan := &reconciliation{stats: domain.SyncStats{Total: len(records)}}
	pending := make(map[string]bool)
	updated := make(map[string]bool)

	for _, rec := range records {
		hash, err := fingerprint.RecordHash(rec)
		if err != nil {
			return nil, domain.ValidationError("record cannot be encoded: %v", err)
		}

		if _, ok := byHash[hash]; ok {
			plan.stats.Skipped++
			continue
		}

		identity := rec.Meta().IdentityKey()
		if item, ok := byIdentity[identity]; ok && identity != "" {
			if byHash[item.ContentHash] == item {
				delete(byHash, item.ContentHash)
			}
			item.PageContent = rec.PageContent
			item.Metadata = rec.Meta()
			item.ContentHash = hash
			item.UpdatedAt = now
			byHash[hash] = item

			if !pending[item.ID] && !updated[item.ID] {
				updated[item.ID] = true
				plan.updates = append(plan.updates, item)
			}
			plan.stats.Updated++
			continue
		}

		item := &domain.KnowledgeBaseItem{
			ID:              uuid.NewString(),
			KnowledgeBaseID: kbID,
			Position:        nextPosition,
			PageContent:     rec.PageContent,
			Metadata:        rec.Meta(),
			ContentHash:     hash,
			IdentityKey:     identity,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		nextPosition++
		byHash[hash] = item
		if identity != "" {
			byIdentity[identity] = item
		}
		pending[item.ID] = true
		plan.inserts = append(plan.inserts, item)
		plan.stats.Added++
	}

	return plan, nil
}

func (r *reconciliation) apply(ctx context.Context, tx driven.KnowledgeBaseStore) error {
	for _, item := range r.updates {
		if err := tx.UpdateItem(ctx, item); err != nil {
			return domain.PersistenceError("update item", err)
		}
	}
	for _, item := range r.inserts {
		if err := tx.InsertItem(ctx, item); err != nil {
			return domain.PersistenceError("insert item", err)
		}
	}
	return nil
}

// keyedMutex is a set of mutexes created on demand and dropped when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, ok := k.locks[key]
	if !ok {
		return
	}
	entry.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, key)
	}
}
