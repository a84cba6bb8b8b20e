package document

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/ideadex/internal/domain"
)

// MaxTextSize is the maximum combined size of a document's searchable text in bytes.
const MaxTextSize = 163840 // 160KB

// Field is one named searchable text field (title, summary, ...).
type Field struct {
	Name  string
	Value string
}

// Document is an indexed record (immutable value object).
// Text fields keep their declaration order so text extraction is deterministic.
type Document struct {
	id       string
	fields   []Field
	metadata map[string]string
}

// New validates and creates a Document.
// ID: non-empty, max 256 chars. At least one field must carry text.
func New(id string, fields []Field, metadata map[string]string) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required: %w", domain.ErrInvalidRequest)
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256): %w", domain.ErrInvalidRequest)
	}

	size := 0
	for _, f := range fields {
		size += len(f.Value)
	}
	if size == 0 {
		return Document{}, fmt.Errorf("document %q has no searchable text: %w", id, domain.ErrInvalidRequest)
	}
	if size > MaxTextSize {
		return Document{}, fmt.Errorf("document %q text too large (max %d bytes): %w", id, MaxTextSize, domain.ErrInvalidRequest)
	}

	return Document{
		id:       id,
		fields:   cloneFields(fields),
		metadata: cloneStringMap(metadata),
	}, nil
}

// FromText is a shorthand for a document with a single "text" field.
func FromText(id, text string, metadata map[string]string) (Document, error) {
	return New(id, []Field{{Name: "text", Value: text}}, metadata)
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id string, fields []Field, metadata map[string]string) Document {
	return Document{id: id, fields: fields, metadata: metadata}
}

// ID returns the document identifier.
func (d Document) ID() string { return d.id }

// Fields returns the searchable text fields in declaration order.
func (d Document) Fields() []Field { return d.fields }

// Field returns the value of the named field.
func (d Document) Field(name string) (string, bool) {
	for _, f := range d.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Metadata returns the non-searchable attributes (domain, category, timestamp, ...).
func (d Document) Metadata() map[string]string { return d.metadata }

// Text concatenates all non-empty text fields separated by a single space.
func (d Document) Text() string {
	parts := make([]string, 0, len(d.fields))
	for _, f := range d.fields {
		if v := strings.TrimSpace(f.Value); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// WithMetadata returns a copy with refreshed metadata; text stays untouched.
func (d Document) WithMetadata(metadata map[string]string) Document {
	return Document{id: d.id, fields: d.fields, metadata: cloneStringMap(metadata)}
}

// TextExtractor extracts the searchable text of a document.
type TextExtractor func(Document) string

// DefaultText is the TextExtractor used when the caller supplies none.
func DefaultText(d Document) string { return d.Text() }

func cloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	c := make([]Field, len(fields))
	copy(c, fields)
	return c
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
