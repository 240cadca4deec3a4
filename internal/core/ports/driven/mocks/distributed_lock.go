package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/baumi-labs/baumi-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*MockDistributedLock)(nil)

// MockDistributedLock keeps sync locks in memory. Acquired and Released
// record lock names in call order so tests can assert the sync lifecycle.
type MockDistributedLock struct {
	mu      sync.Mutex
	expires map[string]time.Time

	AcquireFn func(name string, ttl time.Duration) (bool, error)
	ReleaseFn func(name string) error
	ExtendFn  func(name string, ttl time.Duration) error
	PingFn    func() error

	// Now defaults to time.Now.
	Now func() time.Time

	Acquired []string
	Released []string
}

// NewMockDistributedLock creates an empty lock table.
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{expires: make(map[string]time.Time)}
}

func (m *MockDistributedLock) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// held reports whether name is locked. Callers hold m.mu.
func (m *MockDistributedLock) held(name string) bool {
	exp, ok := m.expires[name]
	return ok && m.now().Before(exp)
}

func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if m.AcquireFn != nil {
		return m.AcquireFn(name, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.held(name) {
		return false, nil
	}
	m.expires[name] = m.now().Add(ttl)
	m.Acquired = append(m.Acquired, name)
	return true, nil
}

func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	if m.ReleaseFn != nil {
		return m.ReleaseFn(name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.expires, name)
	m.Released = append(m.Released, name)
	return nil
}

func (m *MockDistributedLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	if m.ExtendFn != nil {
		return m.ExtendFn(name, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.held(name) {
		return fmt.Errorf("sync lock %q not held", name)
	}
	m.expires[name] = m.now().Add(ttl)
	return nil
}

func (m *MockDistributedLock) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

// IsHeld reports whether name is currently locked.
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held(name)
}

// SetLockHeld simulates another instance holding name for ttl.
func (m *MockDistributedLock) SetLockHeld(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[name] = m.now().Add(ttl)
}
