package driven

import (
	"github.com/baumi-labs/baumi-core/internal/core/domain"
)

// RecordRenderer turns a classified record into a prompt fragment.
type RecordRenderer interface {
	// Kind returns the record kind this renderer handles.
	Kind() domain.RecordKind

	// Render returns the fragment, including its trailing blank line.
	Render(rec domain.ContentRecord) string
}

// RendererRegistry selects a renderer per record kind.
type RendererRegistry interface {
	// Get returns the renderer for a kind, or nil if none is registered.
	Get(kind domain.RecordKind) RecordRenderer

	// Register registers a renderer, replacing any previous one for its kind.
	Register(renderer RecordRenderer)

	// Render classifies a record and renders it. Unknown kinds render as "".
	Render(pageContent string, metadata domain.Metadata) string

	// List returns the registered kinds in sorted order.
	List() []domain.RecordKind
}
