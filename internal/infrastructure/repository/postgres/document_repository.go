package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"medvault/internal/core/domain"
)

// DocumentRepository is the durable store of the record: document metadata
// and payload bytes keyed by id, plus the single patient profile row. It is
// the only state that survives a process restart. Display handles are never
// written here.
type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	payload BYTEA NOT NULL,
	doc_date TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	duplicate BOOLEAN NOT NULL DEFAULT FALSE,
	duplicate_of INTEGER,
	position INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_position ON documents(position);

CREATE TABLE IF NOT EXISTS patient_profile (
	id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	name TEXT NOT NULL,
	date_of_birth TEXT NOT NULL,
	gender TEXT NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// PutAll replaces the persisted set as clear-then-insert inside a single
// transaction. Position records insertion order so stable ordering survives
// a reload. On error the caller must treat the store as needing reload.
func (r *DocumentRepository) PutAll(ctx context.Context, docs []domain.Document) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put-all tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}

	for i, doc := range docs {
		var duplicateOf sql.NullInt64
		if doc.DuplicateOf != nil {
			duplicateOf = sql.NullInt64{Int64: int64(*doc.DuplicateOf), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO documents (id, filename, mime_type, payload, doc_date, category, summary, duplicate, duplicate_of, position)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
			doc.ID, doc.Filename, doc.MimeType, doc.Payload, doc.Date,
			string(doc.Category), doc.Summary, doc.Duplicate, duplicateOf, i,
		)
		if err != nil {
			return fmt.Errorf("insert document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put-all tx: %w", err)
	}
	return nil
}

// LoadAll returns every persisted document in insertion order. Display
// handles are intentionally absent; the caller regenerates them.
func (r *DocumentRepository) LoadAll(ctx context.Context) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, filename, mime_type, payload, doc_date, category, summary, duplicate, duplicate_of
FROM documents
ORDER BY position ASC
`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		var doc domain.Document
		var category string
		var duplicateOf sql.NullInt64

		err := rows.Scan(
			&doc.ID, &doc.Filename, &doc.MimeType, &doc.Payload, &doc.Date,
			&category, &doc.Summary, &doc.Duplicate, &duplicateOf,
		)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Category = domain.Category(category)
		if duplicateOf.Valid {
			idx := int(duplicateOf.Int64)
			doc.DuplicateOf = &idx
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// Remove deletes one document. A missing id is a no-op, not an error.
func (r *DocumentRepository) Remove(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	return nil
}

// SaveProfile replaces the single profile row wholesale.
func (r *DocumentRepository) SaveProfile(ctx context.Context, profile domain.PatientProfile) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO patient_profile (id, name, date_of_birth, gender)
VALUES (1, $1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, date_of_birth = EXCLUDED.date_of_birth, gender = EXCLUDED.gender
`, profile.Name, profile.DateOfBirth, string(profile.Gender))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (r *DocumentRepository) LoadProfile(ctx context.Context) (*domain.PatientProfile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT name, date_of_birth, gender FROM patient_profile WHERE id = 1`)

	var profile domain.PatientProfile
	var gender string
	if err := row.Scan(&profile.Name, &profile.DateOfBirth, &gender); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	profile.Gender = domain.Gender(gender)
	return &profile, nil
}
