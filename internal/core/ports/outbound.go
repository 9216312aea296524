package ports

import (
	"context"

	"medvault/internal/core/domain"
)

// DocumentStore is the sole durable state of the system.
type DocumentStore interface {
	// PutAll replaces the entire persisted set as clear-then-insert inside
	// one transaction. On error the store's prior state is undefined and the
	// caller must reload to re-establish a known state.
	PutAll(ctx context.Context, docs []domain.Document) error
	// LoadAll returns every persisted document in insertion order, without
	// display handles. Handles from a prior process lifetime are never reused.
	LoadAll(ctx context.Context) ([]domain.Document, error)
	// Remove deletes one document. A missing id is a no-op, not an error.
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error

	SaveProfile(ctx context.Context, profile domain.PatientProfile) error
	// LoadProfile returns nil when no profile has been stored yet.
	LoadProfile(ctx context.Context) (*domain.PatientProfile, error)
}

// PayloadNormalizer converts one raw input file into its service-consumable
// representation.
type PayloadNormalizer interface {
	Normalize(ctx context.Context, file domain.InputFile) (domain.Payload, error)
}

// Classifier performs one combined classification call for an ordered batch
// of normalized payloads. The returned slice must be parallel to the input;
// a cardinality mismatch is the implementation's error to report.
type Classifier interface {
	ClassifyBatch(ctx context.Context, payloads []domain.Payload) ([]domain.Classification, error)
}

// Synthesizer turns the serialized timeline into the three-part narrative.
type Synthesizer interface {
	Synthesize(ctx context.Context, timeline string) (domain.Report, error)
}

// HandleCache materializes ephemeral display handles for payloads and owns
// their release. Handles never survive the process.
type HandleCache interface {
	Materialize(id string, payload []byte, mimeType string) (string, error)
	Release(id string)
	ReleaseAll()
}

// ProgressSink receives cumulative ingestion progress after each completed
// batch. Implementations must tolerate being called from the pipeline
// goroutine only; done is monotonically non-decreasing.
type ProgressSink interface {
	Progress(done, total int)
}

// ProgressFunc adapts a plain function to ProgressSink.
type ProgressFunc func(done, total int)

func (f ProgressFunc) Progress(done, total int) { f(done, total) }
