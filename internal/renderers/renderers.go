package renderers

import (
	"strings"

	"github.com/baumi-labs/baumi-core/internal/core/domain"
)

// GenericPreviewRunes caps how much of an unclassified record reaches the prompt.
const GenericPreviewRunes = 200

// ProductRenderer renders product records.
type ProductRenderer struct{}

func (ProductRenderer) Kind() domain.RecordKind { return domain.RecordKindProduct }

func (ProductRenderer) Render(rec domain.ContentRecord) string {
	p, ok := rec.(domain.ProductRecord)
	if !ok {
		return ""
	}

	var b strings.Builder
	line(&b, "PRODUKT: ", p.Name)
	if p.Weight != "" {
		line(&b, "Gewicht: ", p.Weight)
	}
	if p.Price != "" {
		line(&b, "Preis: ", p.Price)
	}
	if p.Description != "" {
		line(&b, "Beschreibung: ", p.Description)
	}
	if p.Details != "" {
		line(&b, "Details: ", p.Details)
	}
	if p.Link != "" {
		line(&b, "Link: ", p.Link)
	}
	b.WriteString("\n")
	return b.String()
}

// SectionRenderer renders informational sections.
type SectionRenderer struct{}

func (SectionRenderer) Kind() domain.RecordKind { return domain.RecordKindSection }

func (SectionRenderer) Render(rec domain.ContentRecord) string {
	s, ok := rec.(domain.SectionRecord)
	if !ok {
		return ""
	}

	var b strings.Builder
	line(&b, "SECTION: ", s.Title)
	line(&b, "Content: ", s.Content)
	b.WriteString("\n")
	return b.String()
}

// GenericRenderer renders a preview of free text.
type GenericRenderer struct{}

func (GenericRenderer) Kind() domain.RecordKind { return domain.RecordKindGeneric }

func (GenericRenderer) Render(rec domain.ContentRecord) string {
	g, ok := rec.(domain.GenericRecord)
	if !ok {
		return ""
	}
	return "Info: " + Head(g.Content, GenericPreviewRunes) + "...\n\n"
}

// Head returns at most n runes of s.
func Head(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func line(b *strings.Builder, label, value string) {
	b.WriteString(label)
	b.WriteString(value)
	b.WriteString("\n")
}
