package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailvault/internal/model"
)

type ArchiveRepository struct {
	db *pgxpool.Pool
}

func NewArchiveRepository(db *pgxpool.Pool) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// CreateInTx inserts the archive row inside the upload transaction so the
// row and its outbox event commit together.
func (r *ArchiveRepository) CreateInTx(ctx context.Context, tx pgx.Tx, a *model.Archive) error {
	query := `
        INSERT INTO archives (user_id, filename, format, object_key, size_bytes, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        RETURNING id
    `
	return tx.QueryRow(ctx, query,
		a.UserID, a.Filename, a.Format, a.ObjectKey, a.SizeBytes, a.Status,
	).Scan(&a.ID)
}

// FindByID returns an archive owned by userID.
func (r *ArchiveRepository) FindByID(ctx context.Context, id, userID int64) (*model.Archive, error) {
	query := `
        SELECT id, user_id, filename, format, object_key, size_bytes, status,
               parsed_count, failed_count, created_at
        FROM archives
        WHERE id = $1 AND user_id = $2
    `
	var a model.Archive
	err := r.db.QueryRow(ctx, query, id, userID).Scan(
		&a.ID, &a.UserID, &a.Filename, &a.Format, &a.ObjectKey, &a.SizeBytes,
		&a.Status, &a.ParsedCount, &a.FailedCount, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Get returns an archive without the ownership filter, for the worker.
func (r *ArchiveRepository) Get(ctx context.Context, id int64) (*model.Archive, error) {
	query := `
        SELECT id, user_id, filename, format, object_key, size_bytes, status,
               parsed_count, failed_count, created_at
        FROM archives
        WHERE id = $1
    `
	var a model.Archive
	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.Filename, &a.Format, &a.ObjectKey, &a.SizeBytes,
		&a.Status, &a.ParsedCount, &a.FailedCount, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByUser returns all archives for a user, newest first.
func (r *ArchiveRepository) ListByUser(ctx context.Context, userID int64) ([]model.Archive, error) {
	query := `
        SELECT id, user_id, filename, format, object_key, size_bytes, status,
               parsed_count, failed_count, created_at
        FROM archives
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	archives := []model.Archive{}
	for rows.Next() {
		var a model.Archive
		err := rows.Scan(
			&a.ID, &a.UserID, &a.Filename, &a.Format, &a.ObjectKey, &a.SizeBytes,
			&a.Status, &a.ParsedCount, &a.FailedCount, &a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		archives = append(archives, a)
	}
	return archives, rows.Err()
}

// MarkIngested records the extraction outcome.
func (r *ArchiveRepository) MarkIngested(ctx context.Context, id int64, parsed, failed int) error {
	query := `
        UPDATE archives
        SET status = $1, parsed_count = $2, failed_count = $3
        WHERE id = $4
    `
	_, err := r.db.Exec(ctx, query, model.ArchiveStatusIngested, parsed, failed, id)
	return err
}

// MarkFailed marks an archive whose extraction could not run at all.
func (r *ArchiveRepository) MarkFailed(ctx context.Context, id int64) error {
	query := `
        UPDATE archives
        SET status = $1
        WHERE id = $2
    `
	_, err := r.db.Exec(ctx, query, model.ArchiveStatusFailed, id)
	return err
}
