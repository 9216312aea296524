package usecase

import (
	"testing"

	"medvault/internal/core/domain"
)

func TestAssembleTimelineOrdersByDateWithUndatedFirst(t *testing.T) {
	docs := []domain.Document{
		{ID: "a", Date: "2021-06-01"},
		{ID: "b", Date: ""},
		{ID: "c", Date: "2020-01-01"},
	}

	timeline := AssembleTimeline(docs)

	got := []string{timeline.Ordered[0].ID, timeline.Ordered[1].ID, timeline.Ordered[2].ID}
	want := []string{"b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestAssembleTimelineIsStableForEqualDates(t *testing.T) {
	docs := []domain.Document{
		{ID: "first", Date: "2020-01-01"},
		{ID: "second", Date: "2020-01-01"},
		{ID: "undated-1", Date: ""},
		{ID: "undated-2", Date: ""},
	}

	timeline := AssembleTimeline(docs)

	if timeline.Ordered[0].ID != "undated-1" || timeline.Ordered[1].ID != "undated-2" {
		t.Fatalf("undated documents lost insertion order: %s, %s", timeline.Ordered[0].ID, timeline.Ordered[1].ID)
	}
	if timeline.Ordered[2].ID != "first" || timeline.Ordered[3].ID != "second" {
		t.Fatalf("equal-dated documents lost insertion order: %s, %s", timeline.Ordered[2].ID, timeline.Ordered[3].ID)
	}
}

func TestAssembleTimelineExcludesNonImagingDuplicates(t *testing.T) {
	docs := []domain.Document{
		{ID: "lab", Category: domain.CategoryLabResult},
		{ID: "lab-dup", Category: domain.CategoryLabResult, Duplicate: true},
		{ID: "frame-1", Category: domain.CategoryImaging},
		{ID: "frame-2", Category: domain.CategoryImaging, Duplicate: true},
	}

	timeline := AssembleTimeline(docs)

	if len(timeline.Active) != 3 {
		t.Fatalf("expected 3 active documents, got %d", len(timeline.Active))
	}
	for _, doc := range timeline.Active {
		if doc.ID == "lab-dup" {
			t.Fatalf("non-imaging duplicate must be excluded from synthesis input")
		}
	}
	found := false
	for _, doc := range timeline.Active {
		if doc.ID == "frame-2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("imaging duplicate must stay active")
	}
}

func TestAssembleTimelineDoesNotMutateInput(t *testing.T) {
	docs := []domain.Document{
		{ID: "late", Date: "2022-01-01"},
		{ID: "early", Date: "2001-01-01"},
	}

	_ = AssembleTimeline(docs)

	if docs[0].ID != "late" || docs[1].ID != "early" {
		t.Fatalf("input slice was reordered")
	}
}
