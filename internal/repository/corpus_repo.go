package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailvault/internal/search"
)

// CorpusRepository loads the chunk corpus the in-memory search index scans.
type CorpusRepository struct {
	db *pgxpool.Pool
}

func NewCorpusRepository(db *pgxpool.Pool) *CorpusRepository {
	return &CorpusRepository{db: db}
}

// LoadAll joins every chunk with its email header fields. One full read;
// the index swaps the result in wholesale.
func (r *CorpusRepository) LoadAll(ctx context.Context) ([]search.Document, error) {
	query := `
        SELECT c.id, c.email_id, c.user_id, c.seq, c.content, c.embedding,
               e.subject, e.sender, e.sent_at
        FROM rag_chunks c
        JOIN emails e ON c.email_id = e.id
        ORDER BY c.email_id ASC, c.seq ASC
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []search.Document{}
	for rows.Next() {
		var d search.Document
		var embedding []byte
		err := rows.Scan(
			&d.ChunkID, &d.EmailID, &d.UserID, &d.Seq, &d.Content, &embedding,
			&d.Subject, &d.Sender, &d.SentAt,
		)
		if err != nil {
			return nil, err
		}
		if len(embedding) > 0 {
			if err := json.Unmarshal(embedding, &d.Embedding); err != nil {
				return nil, err
			}
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
