package search

import (
	"sort"
	"sync"
)

// Mode selects the ranking signal.
type Mode string

const (
	ModeKeyword Mode = "keyword"
	ModeBM25    Mode = "bm25"
	ModeVector  Mode = "vector"
	ModeHybrid  Mode = "hybrid"
)

// ParseMode maps a query parameter to a Mode, defaulting to hybrid.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeKeyword, ModeBM25, ModeVector, ModeHybrid:
		return Mode(s), true
	case "":
		return ModeHybrid, true
	default:
		return "", false
	}
}

// Weights for the hybrid ranker. Normalized when the index is built.
type Weights struct {
	Keyword float64
	BM25    float64
	Vector  float64
}

// Index is the in-memory search corpus: a flat slice of chunk documents
// scanned linearly per query. There is deliberately no inverted index or
// ANN structure; corpora are per-user mail archives, small enough that a
// scan with precomputed tokens is fast and always fresh after Replace.
type Index struct {
	mu      sync.RWMutex
	docs    []*Document
	weights Weights
}

func NewIndex(w Weights) *Index {
	total := w.Keyword + w.BM25 + w.Vector
	if total <= 0 {
		w = Weights{Keyword: 0.25, BM25: 0.35, Vector: 0.40}
		total = 1
	}
	w.Keyword /= total
	w.BM25 /= total
	w.Vector /= total
	return &Index{weights: w}
}

// Replace swaps in a freshly loaded corpus, precomputing token slices.
func (ix *Index) Replace(docs []Document) {
	prepared := make([]*Document, len(docs))
	for i := range docs {
		d := docs[i]
		d.contentTokens = Tokenize(d.Content)
		d.subjectTokens = Tokenize(d.Subject)
		prepared[i] = &d
	}

	ix.mu.Lock()
	ix.docs = prepared
	ix.mu.Unlock()
}

// Size returns the number of indexed chunks.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Search ranks the user's chunks against the query and returns the best
// chunk per email, highest score first, at most limit results.
//
// queryVec may be nil (embedder unavailable): vector mode degrades to
// bm25, and hybrid drops the vector component with the remaining weights
// renormalized.
func (ix *Index) Search(userID int64, query string, queryVec []float32, mode Mode, limit int) []Result {
	queryTokens := Tokenize(query)
	if limit <= 0 {
		limit = 10
	}

	ix.mu.RLock()
	docs := make([]*Document, 0, len(ix.docs))
	for _, d := range ix.docs {
		if d.UserID == userID {
			docs = append(docs, d)
		}
	}
	ix.mu.RUnlock()

	if len(docs) == 0 {
		return []Result{}
	}

	if len(queryVec) == 0 && mode == ModeVector {
		mode = ModeBM25
	}

	results := make([]Result, len(docs))
	for i, d := range docs {
		results[i] = Result{Doc: d}
	}

	needKeyword := mode == ModeKeyword || mode == ModeHybrid
	needBM25 := mode == ModeBM25 || mode == ModeHybrid
	needVector := (mode == ModeVector || mode == ModeHybrid) && len(queryVec) > 0

	if needKeyword {
		for i, d := range docs {
			results[i].Keyword = keywordScore(d, queryTokens)
		}
	}
	if needBM25 {
		for i, s := range bm25Scores(docs, queryTokens) {
			results[i].BM25 = s
		}
	}
	if needVector {
		for i, s := range vectorScores(docs, queryVec) {
			results[i].Vector = s
		}
	}

	switch mode {
	case ModeKeyword:
		for i := range results {
			results[i].Score = results[i].Keyword
		}
	case ModeBM25:
		for i := range results {
			results[i].Score = results[i].BM25
		}
	case ModeVector:
		for i := range results {
			results[i].Score = results[i].Vector
		}
	case ModeHybrid:
		ix.combine(results, needVector)
	}

	return topPerEmail(results, limit)
}

// combine min-max normalizes each component and sums them by weight.
func (ix *Index) combine(results []Result, withVector bool) {
	w := ix.weights
	if !withVector {
		total := w.Keyword + w.BM25
		if total == 0 {
			total = 1
		}
		w = Weights{Keyword: w.Keyword / total, BM25: w.BM25 / total}
	}

	kw := normalize(results, func(r *Result) float64 { return r.Keyword })
	bm := normalize(results, func(r *Result) float64 { return r.BM25 })
	var vec []float64
	if withVector {
		vec = normalize(results, func(r *Result) float64 { return r.Vector })
	}

	for i := range results {
		score := w.Keyword*kw[i] + w.BM25*bm[i]
		if withVector {
			score += w.Vector * vec[i]
		}
		results[i].Score = score
	}
}

// normalize min-max scales a component into [0,1]. A flat component (all
// equal) contributes 0 so it cannot drown out discriminating signals.
func normalize(results []Result, get func(*Result) float64) []float64 {
	lo, hi := get(&results[0]), get(&results[0])
	for i := range results {
		v := get(&results[i])
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	out := make([]float64, len(results))
	if hi == lo {
		return out
	}
	for i := range results {
		out[i] = (get(&results[i]) - lo) / (hi - lo)
	}
	return out
}

// topPerEmail keeps the best-scoring chunk per email and returns the top
// limit of those.
func topPerEmail(results []Result, limit int) []Result {
	best := make(map[int64]Result, len(results))
	for _, r := range results {
		if r.Score <= 0 {
			continue
		}
		if cur, ok := best[r.Doc.EmailID]; !ok || r.Score > cur.Score {
			best[r.Doc.EmailID] = r
		}
	}

	merged := make([]Result, 0, len(best))
	for _, r := range best {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Doc.EmailID < merged[j].Doc.EmailID
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
