package search

import "time"

// Document is one retrievable unit in the corpus: a chunk of an email body
// together with the email header fields used for scoring and citation.
type Document struct {
	ChunkID   int64
	EmailID   int64
	UserID    int64
	Seq       int
	Subject   string
	Sender    string
	SentAt    *time.Time
	Content   string
	Embedding []float32

	// Precomputed at index load so query-time scans only compare.
	contentTokens []string
	subjectTokens []string
}

// Result is a scored document. The component scores are kept so hybrid
// ranking and the API can expose them.
type Result struct {
	Doc     *Document
	Score   float64
	Keyword float64
	BM25    float64
	Vector  float64
}
