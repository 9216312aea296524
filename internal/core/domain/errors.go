package domain

import (
	"errors"
	"fmt"
)

// Failure taxonomy of the pipeline. Every infrastructure error is wrapped
// with exactly one of these kinds at the boundary where it occurs, so callers
// can decide between reload, operator retry, and credential re-entry without
// string matching.
var (
	ErrNormalization    = errors.New("normalization failure")
	ErrClassification   = errors.New("classification failure")
	ErrSynthesis        = errors.New("synthesis failure")
	ErrRepository       = errors.New("repository failure")
	ErrExport           = errors.New("export failure")
	ErrPermission       = errors.New("permission denied")
	ErrBusy             = errors.New("operation already in progress")
	ErrDocumentNotFound = errors.New("document not found")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
