package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailvault/internal/model"
)

type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts a new conversation.
func (r *ConversationRepository) Create(ctx context.Context, c *model.Conversation) error {
	query := `
        INSERT INTO conversations (user_id, title, created_at)
        VALUES ($1, $2, NOW())
        RETURNING id
    `
	return r.db.QueryRow(ctx, query, c.UserID, c.Title).Scan(&c.ID)
}

// FindByID returns a conversation owned by userID.
func (r *ConversationRepository) FindByID(ctx context.Context, id, userID int64) (*model.Conversation, error) {
	query := `
        SELECT id, user_id, title, created_at
        FROM conversations
        WHERE id = $1 AND user_id = $2
    `
	var c model.Conversation
	err := r.db.QueryRow(ctx, query, id, userID).Scan(
		&c.ID, &c.UserID, &c.Title, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByUser returns a user's conversations, newest first.
func (r *ConversationRepository) ListByUser(ctx context.Context, userID int64) ([]model.Conversation, error) {
	query := `
        SELECT id, user_id, title, created_at
        FROM conversations
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []model.Conversation{}
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// UpdateTitle sets the conversation title.
func (r *ConversationRepository) UpdateTitle(ctx context.Context, id int64, title string) error {
	query := `
        UPDATE conversations
        SET title = $1
        WHERE id = $2
    `
	_, err := r.db.Exec(ctx, query, title, id)
	return err
}

// AddMessage appends a message to a conversation.
func (r *ConversationRepository) AddMessage(ctx context.Context, m *model.Message) error {
	query := `
        INSERT INTO messages (conversation_id, role, content, created_at)
        VALUES ($1, $2, $3, NOW())
        RETURNING id, created_at
    `
	return r.db.QueryRow(ctx, query, m.ConversationID, m.Role, m.Content).
		Scan(&m.ID, &m.CreatedAt)
}

// ListMessages returns a conversation's messages, oldest first.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID int64) ([]model.Message, error) {
	query := `
        SELECT id, conversation_id, role, content, created_at
        FROM messages
        WHERE conversation_id = $1
        ORDER BY created_at ASC, id ASC
    `
	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
