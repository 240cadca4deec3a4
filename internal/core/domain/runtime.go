package domain

import "sync"

// RuntimeConfig tracks which backends were selected at startup and whether a
// chat model is currently available. Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	StoreBackend string // "postgres" or "sqlite"
	LockBackend  string // "redis" or "local"

	chatAvailable bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(storeBackend, lockBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		StoreBackend: storeBackend,
		LockBackend:  lockBackend,
	}
}

// ChatAvailable returns whether a chat model is configured
func (c *RuntimeConfig) ChatAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chatAvailable
}

// SetChatAvailable updates the chat availability flag
func (c *RuntimeConfig) SetChatAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatAvailable = available
}
