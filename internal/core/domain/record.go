package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Well-known metadata keys interpreted by the ingestion and prompt logic.
// Every other key is carried through untouched.
const (
	MetaProductName    = "product_name"
	MetaOriginRef      = "origin_ref"
	MetaDatasetVersion = "dataset_version"
	MetaSectionTitle   = "kb_section_title"
	MetaLink           = "link"
	MetaLinkText       = "link_text"
	MetaExamplePrompts = "example_prompts"
	MetaWeight         = "weight"
	MetaPrice          = "price"
	MetaDescription    = "description"
)

// Metadata is the open key/value mapping attached to a record.
// The raw bytes are kept exactly as received (compacted) so the key order of
// the upload survives into the content hash and into storage.
type Metadata struct {
	raw    json.RawMessage
	fields map[string]any
}

// NewMetadata builds Metadata from a map. Keys are serialised in sorted order.
func NewMetadata(fields map[string]any) (Metadata, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return Metadata{}, err
	}
	var m Metadata
	if err := m.UnmarshalJSON(raw); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

// MustMetadata parses a JSON object literal and panics on error.
// Intended for tests and static fixtures.
func MustMetadata(raw string) Metadata {
	var m Metadata
	if err := m.UnmarshalJSON([]byte(raw)); err != nil {
		panic(err)
	}
	return m
}

// UnmarshalJSON accepts only JSON objects.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("metadata must be a JSON object")
	}
	fields := map[string]any{}
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return err
	}
	m.raw = json.RawMessage(buf.Bytes())
	m.fields = fields
	return nil
}

// MarshalJSON returns the bytes exactly as they were received.
func (m Metadata) MarshalJSON() ([]byte, error) {
	if len(m.raw) == 0 {
		return []byte("{}"), nil
	}
	return m.raw, nil
}

// Raw returns the compacted JSON object.
func (m Metadata) Raw() json.RawMessage {
	if len(m.raw) == 0 {
		return json.RawMessage("{}")
	}
	return m.raw
}

// Fields returns the decoded view. Callers must not mutate it.
func (m Metadata) Fields() map[string]any {
	return m.fields
}

// String returns the value of key when it is a JSON string, else "".
func (m Metadata) String(key string) string {
	if v, ok := m.fields[key].(string); ok {
		return v
	}
	return ""
}

// Text renders a scalar value for display: strings as-is, numbers in their
// shortest decimal form, booleans as true/false. Absent, null, empty and
// non-scalar values yield "".
func (m Metadata) Text(key string) string {
	switch v := m.fields[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Strings returns the string elements of an array value.
func (m Metadata) Strings(key string) []string {
	arr, ok := m.fields[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (m Metadata) ProductName() string      { return m.String(MetaProductName) }
func (m Metadata) OriginRef() string        { return m.String(MetaOriginRef) }
func (m Metadata) DatasetVersion() string   { return m.String(MetaDatasetVersion) }
func (m Metadata) SectionTitle() string     { return m.String(MetaSectionTitle) }
func (m Metadata) Link() string             { return m.String(MetaLink) }
func (m Metadata) LinkText() string         { return m.String(MetaLinkText) }
func (m Metadata) ExamplePrompts() []string { return m.Strings(MetaExamplePrompts) }

// IdentityKey is the secondary natural key of a record: origin_ref if set,
// else product_name, else "" (no identity). Only string values count.
func (m Metadata) IdentityKey() string {
	if ref := m.OriginRef(); ref != "" {
		return ref
	}
	return m.ProductName()
}

// Record is one uploaded content record.
type Record struct {
	PageContent string    `json:"pageContent"`
	Metadata    *Metadata `json:"metadata"`

	raw json.RawMessage
}

// NewRecord builds a record without raw bytes; it serialises as
// {"pageContent":…,"metadata":…}.
func NewRecord(pageContent string, metadata Metadata) Record {
	return Record{PageContent: pageContent, Metadata: &metadata}
}

// UnmarshalJSON keeps the received bytes alongside the decoded fields.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain struct {
		PageContent any       `json:"pageContent"`
		Metadata    *Metadata `json:"metadata"`
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	content, _ := p.PageContent.(string)
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	r.PageContent = content
	r.Metadata = p.Metadata
	r.raw = json.RawMessage(buf.Bytes())
	return nil
}

// MarshalJSON returns the received bytes when present.
func (r Record) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	type plain struct {
		PageContent string   `json:"pageContent"`
		Metadata    Metadata `json:"metadata"`
	}
	p := plain{PageContent: r.PageContent}
	if r.Metadata != nil {
		p.Metadata = *r.Metadata
	}
	return json.Marshal(p)
}

// Meta returns the metadata, or an empty mapping when absent.
func (r Record) Meta() Metadata {
	if r.Metadata == nil {
		return Metadata{}
	}
	return *r.Metadata
}

// Validate checks a single record.
func (r Record) Validate() error {
	if r.PageContent == "" {
		return fmt.Errorf("pageContent is required")
	}
	if r.Metadata == nil {
		return fmt.Errorf("metadata is required")
	}
	return nil
}

// ParseRecords decodes and validates an uploaded batch. Validation is
// all-or-nothing: the first bad element fails the whole batch.
func ParseRecords(raw json.RawMessage) ([]Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ValidationError("data is required")
	}
	if trimmed[0] != '[' {
		return nil, ValidationError("data must be an array")
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, ValidationError("data must be an array: %v", err)
	}
	if len(elems) == 0 {
		return nil, ValidationError("data must not be empty")
	}

	records := make([]Record, len(elems))
	for i, elem := range elems {
		e := bytes.TrimSpace(elem)
		if len(e) == 0 || e[0] != '{' {
			return nil, ValidationError("record %d must be an object", i)
		}
		if err := json.Unmarshal(e, &records[i]); err != nil {
			return nil, ValidationError("record %d: %v", i, err)
		}
		if err := records[i].Validate(); err != nil {
			return nil, ValidationError("record %d: %v", i, err)
		}
	}
	return records, nil
}

// ValidateRecords checks records built in code rather than parsed from JSON.
func ValidateRecords(records []Record) error {
	if len(records) == 0 {
		return ValidationError("data must not be empty")
	}
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return ValidationError("record %d: %v", i, err)
		}
	}
	return nil
}
