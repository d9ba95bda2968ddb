package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailvault/internal/model"
)

type EventRepository struct {
	db *pgxpool.Pool
}

func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Insert stores an extracted calendar event.
func (r *EventRepository) Insert(ctx context.Context, ev *model.CalendarEvent) error {
	query := `
        INSERT INTO calendar_events (email_id, user_id, title, location,
                                     starts_at, ends_at, all_day, confidence, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
        RETURNING id
    `
	return r.db.QueryRow(ctx, query,
		ev.EmailID, ev.UserID, ev.Title, ev.Location,
		ev.StartsAt, ev.EndsAt, ev.AllDay, ev.Confidence,
	).Scan(&ev.ID)
}

// ExistsForEmail reports whether extraction already ran for the email.
func (r *EventRepository) ExistsForEmail(ctx context.Context, emailID int64) (bool, error) {
	query := `
        SELECT EXISTS (SELECT 1 FROM calendar_events WHERE email_id = $1)
    `
	var exists bool
	err := r.db.QueryRow(ctx, query, emailID).Scan(&exists)
	return exists, err
}

// ListByEmail returns events extracted from one email.
func (r *EventRepository) ListByEmail(ctx context.Context, emailID, userID int64) ([]model.CalendarEvent, error) {
	query := `
        SELECT id, email_id, user_id, title, location, starts_at, ends_at,
               all_day, confidence, created_at
        FROM calendar_events
        WHERE email_id = $1 AND user_id = $2
        ORDER BY starts_at ASC
    `
	rows, err := r.db.Query(ctx, query, emailID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEventRows(rows)
}

// ListByRange returns a user's events between from and to.
func (r *EventRepository) ListByRange(ctx context.Context, userID int64, from, to time.Time) ([]model.CalendarEvent, error) {
	query := `
        SELECT id, email_id, user_id, title, location, starts_at, ends_at,
               all_day, confidence, created_at
        FROM calendar_events
        WHERE user_id = $1 AND starts_at >= $2 AND starts_at < $3
        ORDER BY starts_at ASC
    `
	rows, err := r.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEventRows(rows)
}

func scanEventRows(rows pgx.Rows) ([]model.CalendarEvent, error) {
	events := []model.CalendarEvent{}
	for rows.Next() {
		var ev model.CalendarEvent
		err := rows.Scan(
			&ev.ID, &ev.EmailID, &ev.UserID, &ev.Title, &ev.Location,
			&ev.StartsAt, &ev.EndsAt, &ev.AllDay, &ev.Confidence, &ev.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
