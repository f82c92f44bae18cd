package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Dhruv501/contract-intelligence-api/internal/models"
	"github.com/jmoiron/sqlx"
)

// Repository is the document store. The engine only ever reads from it;
// writes happen at ingestion time. GetByID and GetPages return (nil, nil)
// for an unknown id; callers translate that into a NotFound error.
type Repository interface {
	Create(ctx context.Context, doc *models.Document, pages []models.Page) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	GetPages(ctx context.Context, id string) ([]models.Page, error)
	ListIDs(ctx context.Context) ([]string, error)
	SaveExtractedFields(ctx context.Context, id string, fields *models.ExtractedFields) error
	GetExtractedFields(ctx context.Context, id string) (*models.ExtractedFields, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, doc *models.Document, pages []models.Page) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (document_id, filename, file_size, content_type, s3_key, page_count, truncated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		doc.ID,
		doc.Filename,
		doc.FileSize,
		doc.ContentType,
		doc.S3Key,
		doc.PageCount,
		doc.Truncated,
		doc.CreatedAt,
	)
	if err != nil {
		return err
	}

	for _, page := range pages {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO document_pages (document_id, page_number, text, truncated)
			VALUES (?, ?, ?, ?)
		`, doc.ID, page.Number, page.Text, page.Truncated)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document

	err := r.db.GetContext(ctx, &doc, `
		SELECT document_id, filename, file_size, content_type, s3_key,
		       page_count, truncated, created_at, extracted_at
		FROM documents
		WHERE document_id = ?
	`, id)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

func (r *repository) GetPages(ctx context.Context, id string) ([]models.Page, error) {
	var pages []models.Page

	err := r.db.SelectContext(ctx, &pages, `
		SELECT document_id, page_number, text, truncated
		FROM document_pages
		WHERE document_id = ?
		ORDER BY page_number
	`, id)
	if err != nil {
		return nil, err
	}

	if len(pages) == 0 {
		return nil, nil
	}

	return pages, nil
}

func (r *repository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string

	err := r.db.SelectContext(ctx, &ids, `
		SELECT document_id FROM documents ORDER BY created_at, document_id
	`)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *repository) SaveExtractedFields(ctx context.Context, id string, fields *models.ExtractedFields) error {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	now := time.Now()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO extracted_fields (document_id, fields_json, extracted_at)
		VALUES (?, ?, ?)
	`, id, string(fieldsJSON), now)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET extracted_at = ? WHERE document_id = ?
	`, now, id)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) GetExtractedFields(ctx context.Context, id string) (*models.ExtractedFields, error) {
	var fieldsJSON string

	err := r.db.GetContext(ctx, &fieldsJSON, `
		SELECT fields_json FROM extracted_fields WHERE document_id = ?
	`, id)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var fields models.ExtractedFields
	if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
		return nil, err
	}

	return &fields, nil
}
