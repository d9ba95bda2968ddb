package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailvault/internal/model"
)

type ChunkRepository struct {
	db *pgxpool.Pool
}

func NewChunkRepository(db *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// Insert stores one chunk. The embedding is stored as a JSON array; the
// retrieval layer scans in memory, so there is no vector index to feed.
func (r *ChunkRepository) Insert(ctx context.Context, c *model.RagChunk) error {
	embedding, err := json.Marshal(c.Embedding)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO rag_chunks (email_id, user_id, seq, content, embedding, created_at)
        VALUES ($1, $2, $3, $4, $5, NOW())
        ON CONFLICT (email_id, seq) DO NOTHING
    `
	_, err = r.db.Exec(ctx, query, c.EmailID, c.UserID, c.Seq, c.Content, embedding)
	return err
}

// ExistsForEmail reports whether the email was already chunked.
func (r *ChunkRepository) ExistsForEmail(ctx context.Context, emailID int64) (bool, error) {
	query := `
        SELECT EXISTS (SELECT 1 FROM rag_chunks WHERE email_id = $1)
    `
	var exists bool
	err := r.db.QueryRow(ctx, query, emailID).Scan(&exists)
	return exists, err
}

// ListByUser loads every chunk for a user. This feeds the in-memory search
// corpus, so it intentionally reads everything.
func (r *ChunkRepository) ListByUser(ctx context.Context, userID int64) ([]model.RagChunk, error) {
	query := `
        SELECT id, email_id, user_id, seq, content, embedding, created_at
        FROM rag_chunks
        WHERE user_id = $1
        ORDER BY email_id ASC, seq ASC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunks := []model.RagChunk{}
	for rows.Next() {
		var c model.RagChunk
		var embedding []byte
		if err := rows.Scan(&c.ID, &c.EmailID, &c.UserID, &c.Seq, &c.Content, &embedding, &c.CreatedAt); err != nil {
			return nil, err
		}
		if len(embedding) > 0 {
			if err := json.Unmarshal(embedding, &c.Embedding); err != nil {
				return nil, err
			}
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
