package model

import "time"

// RagChunk is a slice of an email body with its embedding vector. Chunks
// are what the retrieval layer scans; Seq orders them within an email.
type RagChunk struct {
	ID        int64
	EmailID   int64
	UserID    int64
	Seq       int
	Content   string
	Embedding []float32
	CreatedAt time.Time
}
