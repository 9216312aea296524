package domain

import "strings"

// Category is the closed set of document categories the classification
// service is allowed to return.
type Category string

const (
	CategoryLabResult    Category = "lab result"
	CategoryImaging      Category = "imaging study"
	CategoryPrescription Category = "prescription"
	CategoryClinicalNote Category = "clinical note"
	CategoryOther        Category = "other"
)

// ParseCategory maps a service-returned category string onto the closed set,
// tolerating case and surrounding whitespace. Values outside the set are
// rejected rather than coerced; a malformed entry fails the whole batch.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryLabResult, CategoryImaging, CategoryPrescription, CategoryClinicalNote, CategoryOther:
		return c, true
	default:
		return "", false
	}
}

// Document is one ingested medical record file plus the metadata the
// classification service attached to it.
//
// Payload bytes are owned by the document store; the in-memory document list
// is a read-only cache of what the store holds. DisplayPath is an ephemeral
// handle (a scratch file materialized from the payload) that is never
// persisted and is regenerated on every load.
type Document struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Payload  []byte `json:"-"`

	// DisplayPath is valid only for the current process lifetime.
	DisplayPath string `json:"-"`

	Date        string   `json:"date,omitempty"` // ISO YYYY-MM-DD, empty when unknown
	Category    Category `json:"category"`
	Summary     string   `json:"summary"`
	Duplicate   bool     `json:"duplicate"`
	DuplicateOf *int     `json:"duplicate_of,omitempty"`
}

// Classification is one record of the ordered batch response from the
// classification service. Its order within the batch matches the request's
// payload order.
type Classification struct {
	Date        string   `json:"date,omitempty"`
	Category    Category `json:"category"`
	Summary     string   `json:"summary"`
	Duplicate   bool     `json:"duplicate"`
	DuplicateOf *int     `json:"duplicate_of,omitempty"`
}

// InputFile is a raw file handed to the ingestion pipeline before any
// normalization.
type InputFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// PayloadKind discriminates the two normalized representations a file can
// take on its way into a classification request.
type PayloadKind string

const (
	PayloadInline PayloadKind = "inline" // binary part with a mime type
	PayloadText   PayloadKind = "text"   // extracted plain text
)

// Payload is the service-consumable representation of one input file:
// exactly one of inline binary data or extracted text.
type Payload struct {
	Kind     PayloadKind
	MimeType string
	Data     []byte
	Text     string
}
