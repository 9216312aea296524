package flowdoc

import (
	"context"
	"strings"
	"testing"

	"medvault/internal/core/domain"
)

func renderString(t *testing.T, docs []domain.Document) string {
	t.Helper()
	r := New()
	out, err := r.Render(context.Background(),
		domain.PatientProfile{Name: "Jane Doe", DateOfBirth: "1980-05-01", Gender: domain.GenderFemale},
		domain.Report{History: "history text", Synthesis: "synthesis text", Observations: "observations text"},
		docs,
	)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return string(out)
}

func TestRenderIndexAndAppendixAgree(t *testing.T) {
	docs := []domain.Document{
		{Filename: "xray.jpg", MimeType: "image/jpeg", Payload: []byte{0xff, 0xd8}, Date: "2021-01-01", Category: domain.CategoryImaging, Summary: "chest"},
		{Filename: "letter.docx", MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Category: domain.CategoryClinicalNote, Summary: "referral", Duplicate: true},
		{Filename: "scan.pdf", MimeType: "application/pdf", Category: domain.CategoryOther, Summary: "old scan"},
	}

	html := renderString(t, docs)

	if got := strings.Count(html, "<tr><td>"); got != 3 {
		t.Fatalf("expected 3 index rows, got %d", got)
	}
	for i, doc := range docs {
		heading := "Appendix " + string(rune('1'+i)) + ": " + doc.Filename
		if !strings.Contains(html, heading) {
			t.Fatalf("missing appendix heading %q", heading)
		}
	}
	// Appendix units follow the index order.
	if strings.Index(html, "Appendix 1: xray.jpg") > strings.Index(html, "Appendix 2: letter.docx") {
		t.Fatalf("appendix out of order")
	}
}

func TestRenderForcesBreakPerUnit(t *testing.T) {
	docs := []domain.Document{
		{Filename: "a.jpg", MimeType: "image/jpeg"},
		{Filename: "b.jpg", MimeType: "image/jpeg"},
	}

	html := renderString(t, docs)

	// One break opens the appendix section, one precedes each unit.
	if got := strings.Count(html, `<br class="section-break">`); got != 3 {
		t.Fatalf("expected 3 section breaks, got %d", got)
	}
}

func TestRenderInlinesImagesAsDataURIs(t *testing.T) {
	docs := []domain.Document{
		{Filename: "xray.jpg", MimeType: "image/jpeg", Payload: []byte("img-bytes")},
		{Filename: "scan.pdf", MimeType: "application/pdf", Payload: []byte("pdf-bytes")},
	}

	html := renderString(t, docs)

	if !strings.Contains(html, `src="data:image/jpeg;base64,`) {
		t.Fatalf("image not inlined as data uri")
	}
	if strings.Contains(html, "pdf-bytes") || strings.Contains(html, "data:application/pdf") {
		t.Fatalf("non-image payload must not be inlined")
	}
	if !strings.Contains(html, "No inline preview for this document type.") {
		t.Fatalf("placeholder missing for non-image document")
	}
}

func TestRenderMarksUndatedAndDuplicates(t *testing.T) {
	docs := []domain.Document{
		{Filename: "a.jpg", MimeType: "image/jpeg", Summary: "repeat study", Duplicate: true},
	}

	html := renderString(t, docs)

	if !strings.Contains(html, "<td>N/A</td>") {
		t.Fatalf("undated document not shown as N/A")
	}
	if !strings.Contains(html, "repeat study (duplicate)") {
		t.Fatalf("duplicate marker missing from index row")
	}
}

func TestRenderEscapesUntrustedText(t *testing.T) {
	docs := []domain.Document{
		{Filename: "a.jpg", MimeType: "image/jpeg", Summary: `<script>alert("x")</script>`},
	}

	html := renderString(t, docs)

	if strings.Contains(html, "<script>") {
		t.Fatalf("summary not escaped")
	}
}

func TestRenderHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Render(ctx, domain.PatientProfile{}, domain.Report{}, nil)
	if err == nil || !strings.Contains(err.Error(), "cancelled") {
		t.Fatalf("expected cancellation error, got %v", err)
	}
}
