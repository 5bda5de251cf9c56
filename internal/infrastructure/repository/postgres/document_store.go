// Package postgres persists documents and settings in PostgreSQL through
// database/sql over the pgx stdlib driver. Structured extraction results are
// stored as JSONB.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/pzhurov/papersmith/internal/core/domain"
)

type DocumentStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db, now: time.Now}
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

func (s *DocumentStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026031101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	original_filename TEXT NOT NULL,
	extracted_data JSONB,
	company_data JSONB,
	status TEXT NOT NULL,
	processed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);

CREATE TABLE IF NOT EXISTS settings (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	api_key TEXT NOT NULL DEFAULT '',
	encrypted_api_key TEXT NOT NULL DEFAULT '',
	last_tested TIMESTAMPTZ,
	connection_status TEXT NOT NULL DEFAULT 'untested'
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

func (s *DocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	extractedJSON, err := marshalExtracted(doc.ExtractedData)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO documents (id, original_filename, extracted_data, company_data, status, processed_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		doc.ID, doc.OriginalFileName, extractedJSON, nullableRaw(doc.CompanyData),
		string(doc.Status), doc.ProcessedAt, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *DocumentStore) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, original_filename, extracted_data, company_data, status, processed_at, created_at
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (s *DocumentStore) List(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, original_filename, extracted_data, company_data, status, processed_at, created_at
FROM documents
ORDER BY created_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// Update applies the patch inside a transaction so concurrent processors see
// a consistent record. A status change to processed stamps processed_at.
func (s *DocumentStore) Update(ctx context.Context, id string, patch domain.DocumentPatch) (*domain.Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, `
SELECT id, original_filename, extracted_data, company_data, status, processed_at, created_at
FROM documents
WHERE id = $1
FOR UPDATE
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "update document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	if patch.ExtractedData != nil {
		doc.ExtractedData = patch.ExtractedData
	}
	if patch.CompanyData != nil {
		doc.CompanyData = append([]byte(nil), patch.CompanyData...)
	}
	if patch.Status != nil {
		doc.Status = *patch.Status
		if *patch.Status == domain.StatusProcessed {
			stamped := s.now().UTC()
			doc.ProcessedAt = &stamped
		}
	}

	extractedJSON, err := marshalExtracted(doc.ExtractedData)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE documents
SET extracted_data = $2, company_data = $3, status = $4, processed_at = $5
WHERE id = $1
`, id, extractedJSON, nullableRaw(doc.CompanyData), string(doc.Status), doc.ProcessedAt); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update tx: %w", err)
	}
	return doc, nil
}

func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", fmt.Errorf("id %s", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc          domain.Document
		extractedRaw []byte
		companyRaw   []byte
		status       string
		processedAt  sql.NullTime
	)
	if err := row.Scan(&doc.ID, &doc.OriginalFileName, &extractedRaw, &companyRaw,
		&status, &processedAt, &doc.CreatedAt); err != nil {
		return nil, err
	}

	if len(extractedRaw) > 0 {
		var data domain.ExtractedData
		if err := json.Unmarshal(extractedRaw, &data); err != nil {
			return nil, fmt.Errorf("unmarshal extracted data: %w", err)
		}
		doc.ExtractedData = &data
	}
	if len(companyRaw) > 0 {
		doc.CompanyData = json.RawMessage(companyRaw)
	}
	doc.Status = domain.DocumentStatus(status)
	if processedAt.Valid {
		stamped := processedAt.Time
		doc.ProcessedAt = &stamped
	}
	return &doc, nil
}

func marshalExtracted(data *domain.ExtractedData) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	out, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal extracted data: %w", err)
	}
	return out, nil
}

func nullableRaw(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
