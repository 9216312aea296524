package usecase

import (
	"sort"

	"medvault/internal/core/domain"
)

// Timeline is the chronological view of the document set, computed once and
// reused by synthesis and by both export encodings.
type Timeline struct {
	// Ordered holds every document sorted by ascending date. Documents
	// without a date sort first; equal or absent dates preserve insertion
	// order.
	Ordered []domain.Document
	// Active is the synthesis input subset of Ordered, in the same order.
	Active []domain.Document
}

// IsActive reports whether a document participates in synthesis. Duplicates
// are excluded, except imaging studies: distinct imaging frames may be
// flagged as near-duplicates while each still carries unique diagnostic
// value.
func IsActive(doc domain.Document) bool {
	return !doc.Duplicate || doc.Category == domain.CategoryImaging
}

// AssembleTimeline orders the documents chronologically and computes the
// active subset. Ordering is plain lexical comparison of the ISO date
// strings with an absent date comparing as the empty string; the sort is
// stable so ties keep relative insertion order.
func AssembleTimeline(docs []domain.Document) Timeline {
	ordered := make([]domain.Document, len(docs))
	copy(ordered, docs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date < ordered[j].Date
	})

	active := make([]domain.Document, 0, len(ordered))
	for _, doc := range ordered {
		if IsActive(doc) {
			active = append(active, doc)
		}
	}

	return Timeline{Ordered: ordered, Active: active}
}
