// Package renderers formats knowledge base records for the chat system prompt.
package renderers

import (
	"sort"
	"sync"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
	"github.com/baumi-labs/baumi-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RendererRegistry = (*Registry)(nil)

// Registry implements RendererRegistry with one renderer per record kind.
type Registry struct {
	mu        sync.RWMutex
	renderers map[domain.RecordKind]driven.RecordRenderer
}

// NewRegistry creates an empty renderer registry.
func NewRegistry() *Registry {
	return &Registry{
		renderers: make(map[domain.RecordKind]driven.RecordRenderer),
	}
}

// Register registers a renderer, replacing any previous one for its kind.
func (r *Registry) Register(renderer driven.RecordRenderer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.renderers[renderer.Kind()] = renderer
}

// Get returns the renderer for a kind, or nil.
func (r *Registry) Get(kind domain.RecordKind) driven.RecordRenderer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.renderers[kind]
}

// Render classifies a record and renders it with the matching renderer.
func (r *Registry) Render(pageContent string, metadata domain.Metadata) string {
	rec := domain.ClassifyRecord(pageContent, metadata)
	renderer := r.Get(rec.Kind())
	if renderer == nil {
		return ""
	}
	return renderer.Render(rec)
}

// List returns all registered kinds.
func (r *Registry) List() []domain.RecordKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]domain.RecordKind, 0, len(r.renderers))
	for k := range r.renderers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// DefaultRegistry creates a registry with the built-in renderers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ProductRenderer{})
	r.Register(&SectionRenderer{})
	r.Register(&GenericRenderer{})
	return r
}
