package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"medvault/internal/core/domain"
	"medvault/internal/core/ports"
)

// Accepted input types. Anything else is silently excluded from the batch at
// the ingestion boundary. Legacy application/msword is deliberately absent:
// .doc files are OLE compound files with no extraction path here.
var acceptedMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/gif":       true,
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.oasis.opendocument.text":                                 true,
}

func IsAcceptedMimeType(mimeType string) bool {
	return acceptedMimeTypes[mimeType]
}

// IngestDocumentsUseCase batches raw files, normalizes each batch, issues one
// combined classification call per batch, and merges the results back with
// the originals. Batches run strictly sequentially so progress stays
// monotonic and a batch failure cannot race with later batches.
type IngestDocumentsUseCase struct {
	normalizer ports.PayloadNormalizer
	classifier ports.Classifier
	batchSize  int
}

func NewIngestDocumentsUseCase(
	normalizer ports.PayloadNormalizer,
	classifier ports.Classifier,
	batchSize int,
) *IngestDocumentsUseCase {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &IngestDocumentsUseCase{
		normalizer: normalizer,
		classifier: classifier,
		batchSize:  batchSize,
	}
}

func (uc *IngestDocumentsUseCase) ClassifyFiles(
	ctx context.Context,
	files []domain.InputFile,
	progress ports.ProgressSink,
) ([]domain.Document, error) {
	accepted := make([]domain.InputFile, 0, len(files))
	for _, f := range files {
		if IsAcceptedMimeType(f.MimeType) {
			accepted = append(accepted, f)
		}
	}

	total := len(accepted)
	docs := make([]domain.Document, 0, total)

	for start := 0; start < total; start += uc.batchSize {
		end := start + uc.batchSize
		if end > total {
			end = total
		}
		batch := accepted[start:end]

		payloads, err := uc.normalizeBatch(ctx, batch)
		if err != nil {
			return nil, err
		}

		records, err := uc.classifier.ClassifyBatch(ctx, payloads)
		if err != nil {
			return nil, domain.WrapError(domain.ErrClassification, "classify batch", err)
		}
		if len(records) != len(batch) {
			return nil, domain.WrapError(
				domain.ErrClassification,
				"classify batch",
				fmt.Errorf("response cardinality %d does not match batch size %d", len(records), len(batch)),
			)
		}

		for i, rec := range records {
			doc := domain.Document{
				ID:        uuid.NewString(),
				Filename:  batch[i].Name,
				MimeType:  batch[i].MimeType,
				Payload:   batch[i].Data,
				Date:      rec.Date,
				Category:  rec.Category,
				Summary:   rec.Summary,
				Duplicate: rec.Duplicate,
			}
			if rec.DuplicateOf != nil {
				// Service indexes are batch-relative; rebase onto the full run.
				idx := *rec.DuplicateOf + start
				doc.DuplicateOf = &idx
			}
			docs = append(docs, doc)
		}

		if progress != nil {
			progress.Progress(end, total)
		}
	}

	return docs, nil
}

// normalizeBatch normalizes all members of one batch concurrently. Members
// are independent; results land in indexed slots so request order is
// preserved. Any member's failure fails the batch.
func (uc *IngestDocumentsUseCase) normalizeBatch(ctx context.Context, batch []domain.InputFile) ([]domain.Payload, error) {
	payloads := make([]domain.Payload, len(batch))
	errs := make([]error, len(batch))

	var wg sync.WaitGroup
	for i, f := range batch {
		wg.Add(1)
		go func(i int, f domain.InputFile) {
			defer wg.Done()
			p, err := uc.normalizer.Normalize(ctx, f)
			if err != nil {
				errs[i] = domain.WrapError(domain.ErrNormalization, "normalize "+f.Name, err)
				return
			}
			payloads[i] = p
		}(i, f)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return payloads, nil
}
