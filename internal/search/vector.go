package search

import "math"

// CosineSimilarity computes the cosine of the angle between a and b.
// Returns 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// vectorScores computes the cosine similarity of every doc embedding
// against the query vector. Docs without an embedding score 0.
func vectorScores(docs []*Document, queryVec []float32) []float64 {
	scores := make([]float64, len(docs))
	if len(queryVec) == 0 {
		return scores
	}
	for i, doc := range docs {
		scores[i] = CosineSimilarity(queryVec, doc.Embedding)
	}
	return scores
}
