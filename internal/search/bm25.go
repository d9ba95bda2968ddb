package search

import "math"

// BM25 parameters. Standard Robertson defaults.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// bm25Scores ranks docs against queryTokens with Okapi BM25 computed over
// the given docs as the collection. Linear scan, no posting lists: the
// corpus is small and lives in memory.
func bm25Scores(docs []*Document, queryTokens []string) []float64 {
	scores := make([]float64, len(docs))
	if len(docs) == 0 || len(queryTokens) == 0 {
		return scores
	}

	// Collection statistics: document frequency per query term and the
	// average document length.
	df := make(map[string]int, len(queryTokens))
	var totalLen int
	for _, doc := range docs {
		totalLen += len(doc.contentTokens)
		seen := make(map[string]struct{}, len(queryTokens))
		for _, t := range doc.contentTokens {
			seen[t] = struct{}{}
		}
		for _, q := range queryTokens {
			if _, ok := seen[q]; ok {
				df[q]++
			}
		}
	}

	n := float64(len(docs))
	avgdl := float64(totalLen) / n
	if avgdl == 0 {
		return scores
	}

	for i, doc := range docs {
		tf := make(map[string]int, len(queryTokens))
		for _, t := range doc.contentTokens {
			tf[t]++
		}

		dl := float64(len(doc.contentTokens))
		var score float64
		for _, q := range queryTokens {
			f := float64(tf[q])
			if f == 0 {
				continue
			}

			// IDF floored at zero so terms present in most documents do
			// not score negatively.
			idf := math.Log((n - float64(df[q]) + 0.5) / (float64(df[q]) + 0.5))
			if idf < 0 {
				idf = 0
			}

			score += idf * (f * (bm25K1 + 1)) / (f + bm25K1*(1-bm25B+bm25B*dl/avgdl))
		}
		scores[i] = score
	}

	return scores
}
