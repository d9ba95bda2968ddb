package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailvault/internal/model"
)

type EmailRepository struct {
	db *pgxpool.Pool
}

func NewEmailRepository(db *pgxpool.Pool) *EmailRepository {
	return &EmailRepository{db: db}
}

// Create inserts an extracted email.
func (r *EmailRepository) Create(ctx context.Context, e *model.Email) error {
	query := `
        INSERT INTO emails (archive_id, user_id, message_id, subject, sender,
                            recipients, body_text, sent_at, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
        RETURNING id
    `
	return r.db.QueryRow(ctx, query,
		e.ArchiveID, e.UserID, e.MessageID, e.Subject, e.Sender,
		e.Recipients, e.BodyText, e.SentAt, e.Status,
	).Scan(&e.ID)
}

// FindByID returns an email by id.
func (r *EmailRepository) FindByID(ctx context.Context, id int64) (*model.Email, error) {
	query := `
        SELECT id, archive_id, user_id, message_id, subject, sender,
               recipients, body_text, sent_at, status, created_at
        FROM emails
        WHERE id = $1
    `
	var e model.Email
	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.ArchiveID, &e.UserID, &e.MessageID, &e.Subject, &e.Sender,
		&e.Recipients, &e.BodyText, &e.SentAt, &e.Status, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// FindWithMetadataByID returns the email and its classification metadata
// (nil when not yet classified) in a single round trip.
func (r *EmailRepository) FindWithMetadataByID(ctx context.Context, id int64) (*model.Email, *model.EmailMetadata, error) {
	query := `
        SELECT e.id, e.archive_id, e.user_id, e.message_id, e.subject, e.sender,
               e.recipients, e.body_text, e.sent_at, e.status, e.created_at,
               m.id, m.category, m.confidence
        FROM emails e
        LEFT JOIN email_metadata m ON e.id = m.email_id
        WHERE e.id = $1
    `
	var e model.Email
	var metadataID *int64
	var category *string
	var confidence *float64
	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.ArchiveID, &e.UserID, &e.MessageID, &e.Subject, &e.Sender,
		&e.Recipients, &e.BodyText, &e.SentAt, &e.Status, &e.CreatedAt,
		&metadataID, &category, &confidence,
	)
	if err != nil {
		return nil, nil, err
	}

	var meta *model.EmailMetadata
	if metadataID != nil && category != nil && confidence != nil {
		meta = &model.EmailMetadata{
			ID:         *metadataID,
			EmailID:    e.ID,
			Category:   *category,
			Confidence: *confidence,
		}
	}
	return &e, meta, nil
}

// UpdateStatus sets the email status (e.g. classified).
func (r *EmailRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `
        UPDATE emails
        SET status = $1
        WHERE id = $2
    `
	_, err := r.db.Exec(ctx, query, status, id)
	return err
}

// ListFilter narrows ListWithMetadata. Zero values mean "no filter".
type ListFilter struct {
	Category string
	Status   string
	Limit    int
	Offset   int
}

// ListWithMetadata returns a page of emails + classification for a user.
func (r *EmailRepository) ListWithMetadata(ctx context.Context, userID int64, f ListFilter) ([]model.EmailWithMetadata, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}

	query := `
        SELECT e.id, e.archive_id, e.user_id, e.message_id, e.subject, e.sender,
               e.recipients, e.body_text, e.sent_at, e.status, e.created_at,
               m.category, m.confidence
        FROM emails e
        LEFT JOIN email_metadata m ON e.id = m.email_id
        WHERE e.user_id = $1
          AND ($2 = '' OR m.category = $2)
          AND ($3 = '' OR e.status = $3)
        ORDER BY e.sent_at DESC NULLS LAST, e.id DESC
        LIMIT $4 OFFSET $5
    `

	rows, err := r.db.Query(ctx, query, userID, f.Category, f.Status, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := []model.EmailWithMetadata{}
	for rows.Next() {
		var e model.EmailWithMetadata
		var category *string
		var confidence *float64

		err := rows.Scan(
			&e.ID, &e.ArchiveID, &e.UserID, &e.MessageID, &e.Subject, &e.Sender,
			&e.Recipients, &e.BodyText, &e.SentAt, &e.Status, &e.CreatedAt,
			&category, &confidence,
		)
		if err != nil {
			return nil, err
		}

		if category != nil && confidence != nil {
			e.Metadata = &model.EmailMetadata{
				EmailID:    e.ID,
				Category:   *category,
				Confidence: *confidence,
			}
		}

		emails = append(emails, e)
	}

	return emails, rows.Err()
}
