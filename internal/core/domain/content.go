package domain

// RecordKind discriminates the identity-bearing shapes a record can take.
type RecordKind string

const (
	RecordKindProduct RecordKind = "product"
	RecordKindSection RecordKind = "section"
	RecordKindGeneric RecordKind = "generic"
)

// ContentRecord is a classified record, ready for rendering.
type ContentRecord interface {
	Kind() RecordKind
}

// ProductRecord is a record describing a sellable product.
type ProductRecord struct {
	Name        string
	Weight      string
	Price       string
	Description string
	Details     string
	Link        string
	LinkText    string
	Extra       Metadata
}

func (ProductRecord) Kind() RecordKind { return RecordKindProduct }

// SectionRecord is an informational section (shipping, storage, history...).
type SectionRecord struct {
	Title   string
	Content string
	Extra   Metadata
}

func (SectionRecord) Kind() RecordKind { return RecordKindSection }

// GenericRecord is free text without a recognised identity.
type GenericRecord struct {
	Content string
	Extra   Metadata
}

func (GenericRecord) Kind() RecordKind { return RecordKindGeneric }

// Kind reports which shape the metadata describes.
func (m Metadata) Kind() RecordKind {
	switch {
	case m.ProductName() != "":
		return RecordKindProduct
	case m.SectionTitle() != "":
		return RecordKindSection
	default:
		return RecordKindGeneric
	}
}

// ClassifyRecord turns page content and metadata into a tagged record.
func ClassifyRecord(pageContent string, m Metadata) ContentRecord {
	switch m.Kind() {
	case RecordKindProduct:
		return ProductRecord{
			Name:        m.ProductName(),
			Weight:      m.Text(MetaWeight),
			Price:       m.Text(MetaPrice),
			Description: m.Text(MetaDescription),
			Details:     pageContent,
			Link:        m.Link(),
			LinkText:    m.LinkText(),
			Extra:       m,
		}
	case RecordKindSection:
		return SectionRecord{Title: m.SectionTitle(), Content: pageContent, Extra: m}
	default:
		return GenericRecord{Content: pageContent, Extra: m}
	}
}
