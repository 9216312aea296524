package ports

import (
	"context"

	"medvault/internal/core/domain"
)

// DocumentIngestor is the inbound contract for batched ingestion and
// classification of raw files.
type DocumentIngestor interface {
	ClassifyFiles(ctx context.Context, files []domain.InputFile, progress ProgressSink) ([]domain.Document, error)
}

// ReportSynthesizer is the inbound contract for generating the narrative
// report from the active timeline.
type ReportSynthesizer interface {
	SynthesizeReport(ctx context.Context, docs []domain.Document) (domain.Report, error)
}

// ExportRenderer renders the full report artifact in one encoding. A failure
// partway through yields no partial artifact.
type ExportRenderer interface {
	Render(ctx context.Context, profile domain.PatientProfile, report domain.Report, docs []domain.Document) ([]byte, error)
}
