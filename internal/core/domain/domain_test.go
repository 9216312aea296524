package domain

import (
	"errors"
	"testing"
)

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"lab result", CategoryLabResult, true},
		{" Imaging Study ", CategoryImaging, true},
		{"PRESCRIPTION", CategoryPrescription, true},
		{"clinical note", CategoryClinicalNote, true},
		{"other", CategoryOther, true},
		{"x-ray", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseCategory(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseCategory(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestWrapErrorKeepsKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(ErrClassification, "classify batch", cause)

	if !IsKind(err, ErrClassification) {
		t.Fatalf("kind lost: %v", err)
	}
	if IsKind(err, ErrExport) {
		t.Fatalf("wrong kind matched: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
}
