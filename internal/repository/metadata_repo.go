package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MetadataRepository struct {
	db *pgxpool.Pool
}

func NewMetadataRepository(db *pgxpool.Pool) *MetadataRepository {
	return &MetadataRepository{db: db}
}

// Insert stores a classification. ON CONFLICT DO NOTHING keeps the insert
// idempotent when two workers race on the same email.
func (r *MetadataRepository) Insert(ctx context.Context, emailID int64, category string, confidence float64) error {
	query := `
        INSERT INTO email_metadata (email_id, category, confidence, created_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (email_id) DO NOTHING
    `
	_, err := r.db.Exec(ctx, query, emailID, category, confidence)
	return err
}

// Exists reports whether a classification exists for the email.
func (r *MetadataRepository) Exists(ctx context.Context, emailID int64) (bool, error) {
	query := `
        SELECT EXISTS (SELECT 1 FROM email_metadata WHERE email_id = $1)
    `
	var exists bool
	err := r.db.QueryRow(ctx, query, emailID).Scan(&exists)
	return exists, err
}

// InsertFailure records why classification fell back (e.g. ai_timeout).
func (r *MetadataRepository) InsertFailure(ctx context.Context, emailID int64, reason string) error {
	query := `
        INSERT INTO classification_failures (email_id, reason, created_at)
        VALUES ($1, $2, NOW())
    `
	_, err := r.db.Exec(ctx, query, emailID, reason)
	return err
}
