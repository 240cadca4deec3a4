package domain

import (
	"encoding/json"
	"time"
)

// KnowledgeBase is a named, versioned collection of content records.
// Data is the raw upload snapshot; the normalised rows live in
// KnowledgeBaseItem and are kept in step with Data only at write time.
type KnowledgeBase struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"ownerId"`
	Name           string          `json:"name"`
	Data           json.RawMessage `json:"data"`
	DatasetVersion string          `json:"datasetVersion"`
	ContentHash    string          `json:"contentHash"`
	ItemCount      int             `json:"itemCount,string"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Records decodes the payload snapshot.
func (kb *KnowledgeBase) Records() ([]Record, error) {
	if len(kb.Data) == 0 {
		return nil, nil
	}
	var records []Record
	if err := json.Unmarshal(kb.Data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// KnowledgeBaseItem is one content record owned by a knowledge base.
type KnowledgeBaseItem struct {
	ID              string    `json:"id"`
	KnowledgeBaseID string    `json:"knowledgeBaseId"`
	Position        int       `json:"position"`
	PageContent     string    `json:"pageContent"`
	Metadata        Metadata  `json:"metadata"`
	ContentHash     string    `json:"contentHash"`
	IdentityKey     string    `json:"identityKey,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// UpdateMode selects how an upload is applied.
type UpdateMode string

const (
	// UpdateModeSmart reconciles the upload against stored items.
	UpdateModeSmart UpdateMode = "smart"
	// UpdateModeReplace overwrites the payload snapshot without touching items.
	UpdateModeReplace UpdateMode = "replace"
)

// ParseUpdateMode maps the wire value; empty means smart.
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch UpdateMode(s) {
	case "", UpdateModeSmart:
		return UpdateModeSmart, nil
	case UpdateModeReplace:
		return UpdateModeReplace, nil
	default:
		return "", ValidationError("unknown updateMode %q", s)
	}
}

// ListOrder selects the ordering of knowledge base listings.
type ListOrder int

const (
	// ListByUpdatedDesc is the administrator view.
	ListByUpdatedDesc ListOrder = iota
	// ListByCreatedAsc is the legacy listing, also used for prompt assembly.
	ListByCreatedAsc
)

// SyncRequest is one upload.
type SyncRequest struct {
	OwnerID        string
	Name           string
	Records        []Record
	DatasetVersion string
	Mode           UpdateMode
}

// Validate checks the request before anything is persisted.
func (r SyncRequest) Validate() error {
	if r.OwnerID == "" {
		return ValidationError("owner is required")
	}
	if r.Name == "" {
		return ValidationError("name is required")
	}
	return ValidateRecords(r.Records)
}

// SyncStats counts how each incoming record was classified.
type SyncStats struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// SyncResult is the stored entry plus the stats of the write that produced it.
type SyncResult struct {
	*KnowledgeBase
	Stats SyncStats `json:"stats"`
}
