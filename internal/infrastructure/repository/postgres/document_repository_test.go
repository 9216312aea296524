package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"medvault/internal/core/domain"
)

func newMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return NewDocumentRepository(db), mock, func() { _ = db.Close() }
}

func TestPutAllClearsThenInsertsInOneTransaction(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	idx := 0
	docs := []domain.Document{
		{ID: "a", Filename: "a.jpg", MimeType: "image/jpeg", Payload: []byte("x"), Date: "2021-01-01", Category: domain.CategoryLabResult, Summary: "s"},
		{ID: "b", Filename: "b.jpg", MimeType: "image/jpeg", Payload: []byte("y"), Category: domain.CategoryLabResult, Duplicate: true, DuplicateOf: &idx},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM documents`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("a", "a.jpg", "image/jpeg", []byte("x"), "2021-01-01", "lab result", "s", false, sql.NullInt64{}, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("b", "b.jpg", "image/jpeg", []byte("y"), "", "lab result", "", true, sql.NullInt64{Int64: 0, Valid: true}, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.PutAll(context.Background(), docs); err != nil {
		t.Fatalf("PutAll() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPutAllRollsBackOnInsertFailure(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM documents`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO documents`).WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.PutAll(context.Background(), []domain.Document{{ID: "a", Category: domain.CategoryOther}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLoadAllReturnsDocumentsInPositionOrder(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{
		"id", "filename", "mime_type", "payload", "doc_date", "category", "summary", "duplicate", "duplicate_of",
	}).
		AddRow("a", "a.jpg", "image/jpeg", []byte("x"), "2021-01-01", "lab result", "s", false, nil).
		AddRow("b", "b.jpg", "image/jpeg", []byte("y"), "", "imaging study", "frame", true, int64(0))

	mock.ExpectQuery(`SELECT id, filename, mime_type, payload, doc_date, category, summary, duplicate, duplicate_of\s+FROM documents\s+ORDER BY position ASC`).
		WillReturnRows(rows)

	docs, err := repo.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != "a" || docs[0].Category != domain.CategoryLabResult || docs[0].DuplicateOf != nil {
		t.Fatalf("unexpected first document: %+v", docs[0])
	}
	if docs[1].DuplicateOf == nil || *docs[1].DuplicateOf != 0 {
		t.Fatalf("duplicate_of not mapped: %+v", docs[1])
	}
	if docs[1].DisplayPath != "" {
		t.Fatalf("display path must never come from the store")
	}
}

func TestRemoveAbsentIDIsNoOp(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectExec(`DELETE FROM documents WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Remove(context.Background(), "missing"); err != nil {
		t.Fatalf("Remove() of absent id must not fail, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClearDeletesEverything(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectExec(`DELETE FROM documents`).WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
}

func TestSaveProfileUpserts(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectExec(`INSERT INTO patient_profile`).
		WithArgs("Jane Doe", "1980-05-01", "female").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveProfile(context.Background(), domain.PatientProfile{
		Name:        "Jane Doe",
		DateOfBirth: "1980-05-01",
		Gender:      domain.GenderFemale,
	})
	if err != nil {
		t.Fatalf("SaveProfile() error = %v", err)
	}
}

func TestLoadProfileMissingRowReturnsNil(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery(`SELECT name, date_of_birth, gender FROM patient_profile`).
		WillReturnError(sql.ErrNoRows)

	profile, err := repo.LoadProfile(context.Background())
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if profile != nil {
		t.Fatalf("expected nil profile, got %+v", profile)
	}
}

func TestLoadProfileMapsRow(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery(`SELECT name, date_of_birth, gender FROM patient_profile`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "date_of_birth", "gender"}).
			AddRow("Jane Doe", "1980-05-01", "female"))

	profile, err := repo.LoadProfile(context.Background())
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if profile == nil || profile.Name != "Jane Doe" || profile.Gender != domain.GenderFemale {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}
