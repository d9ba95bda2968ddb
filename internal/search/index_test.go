package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex(t *testing.T) *Index {
	t.Helper()

	ix := NewIndex(Weights{Keyword: 0.25, BM25: 0.35, Vector: 0.40})
	ix.Replace([]Document{
		{
			ChunkID: 1, EmailID: 10, UserID: 1, Seq: 0,
			Subject:   "Project deadline moved",
			Content:   "The project deadline moved to Friday, please update the plan.",
			Embedding: []float32{1, 0, 0},
		},
		{
			ChunkID: 2, EmailID: 10, UserID: 1, Seq: 1,
			Subject:   "Project deadline moved",
			Content:   "Second chunk talks about vacation schedules instead.",
			Embedding: []float32{0, 1, 0},
		},
		{
			ChunkID: 3, EmailID: 20, UserID: 1, Seq: 0,
			Subject:   "Lunch",
			Content:   "Pizza on the corner at noon?",
			Embedding: []float32{0, 0, 1},
		},
		{
			ChunkID: 4, EmailID: 30, UserID: 2, Seq: 0,
			Subject:   "Project deadline moved",
			Content:   "Other user's project deadline discussion.",
			Embedding: []float32{1, 0, 0},
		},
	})
	return ix
}

func TestIndexSearchFiltersByUser(t *testing.T) {
	ix := testIndex(t)

	results := ix.Search(1, "project deadline", nil, ModeBM25, 10)

	require.NotEmpty(t, results)
	for _, r := range results {
		assert.EqualValues(t, 1, r.Doc.UserID)
	}

	none := ix.Search(99, "project deadline", nil, ModeBM25, 10)
	assert.Empty(t, none)
}

func TestIndexSearchBestChunkPerEmail(t *testing.T) {
	ix := testIndex(t)

	results := ix.Search(1, "project deadline", nil, ModeBM25, 10)

	require.Len(t, results, 1)
	assert.EqualValues(t, 10, results[0].Doc.EmailID)
	// Chunk 1 matches the query, chunk 2 does not; the email is
	// represented by its best chunk.
	assert.EqualValues(t, 1, results[0].Doc.ChunkID)
}

func TestIndexSearchKeywordMode(t *testing.T) {
	ix := testIndex(t)

	results := ix.Search(1, "pizza noon", nil, ModeKeyword, 10)

	require.Len(t, results, 1)
	assert.EqualValues(t, 20, results[0].Doc.EmailID)
	assert.Equal(t, results[0].Keyword, results[0].Score)
}

func TestIndexSearchVectorMode(t *testing.T) {
	ix := testIndex(t)

	results := ix.Search(1, "irrelevant words", []float32{0, 0, 1}, ModeVector, 10)

	require.NotEmpty(t, results)
	assert.EqualValues(t, 20, results[0].Doc.EmailID)
}

func TestIndexSearchVectorModeDegradesWithoutVector(t *testing.T) {
	ix := testIndex(t)

	// No query vector: vector mode falls back to bm25 scoring.
	results := ix.Search(1, "project deadline", nil, ModeVector, 10)

	require.NotEmpty(t, results)
	assert.EqualValues(t, 10, results[0].Doc.EmailID)
	assert.Greater(t, results[0].BM25, 0.0)
	assert.Zero(t, results[0].Vector)
}

func TestIndexSearchHybrid(t *testing.T) {
	ix := testIndex(t)

	withVec := ix.Search(1, "project deadline", []float32{1, 0, 0}, ModeHybrid, 10)
	require.NotEmpty(t, withVec)
	assert.EqualValues(t, 10, withVec[0].Doc.EmailID)

	// Hybrid without a vector renormalizes onto keyword+bm25.
	withoutVec := ix.Search(1, "project deadline", nil, ModeHybrid, 10)
	require.NotEmpty(t, withoutVec)
	assert.EqualValues(t, 10, withoutVec[0].Doc.EmailID)
	assert.Zero(t, withoutVec[0].Vector)
}

func TestIndexSearchLimit(t *testing.T) {
	ix := testIndex(t)

	results := ix.Search(1, "the project deadline pizza noon vacation", nil, ModeKeyword, 1)
	assert.LessOrEqual(t, len(results), 1)
}

func TestIndexReplaceSwapsCorpus(t *testing.T) {
	ix := testIndex(t)
	require.Equal(t, 4, ix.Size())

	ix.Replace([]Document{{ChunkID: 9, EmailID: 90, UserID: 1, Content: "fresh corpus"}})
	assert.Equal(t, 1, ix.Size())

	results := ix.Search(1, "fresh corpus", nil, ModeKeyword, 10)
	require.Len(t, results, 1)
	assert.EqualValues(t, 90, results[0].Doc.EmailID)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input string
		want  Mode
		ok    bool
	}{
		{"keyword", ModeKeyword, true},
		{"bm25", ModeBM25, true},
		{"vector", ModeVector, true},
		{"hybrid", ModeHybrid, true},
		{"", ModeHybrid, true},
		{"fulltext", "", false},
	}

	for _, tt := range tests {
		mode, ok := ParseMode(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		assert.Equal(t, tt.want, mode, "input %q", tt.input)
	}
}

func TestNewIndexNormalizesWeights(t *testing.T) {
	ix := NewIndex(Weights{Keyword: 2, BM25: 2, Vector: 4})

	assert.InDelta(t, 0.25, ix.weights.Keyword, 1e-9)
	assert.InDelta(t, 0.25, ix.weights.BM25, 1e-9)
	assert.InDelta(t, 0.50, ix.weights.Vector, 1e-9)

	zero := NewIndex(Weights{})
	assert.InDelta(t, 1.0, zero.weights.Keyword+zero.weights.BM25+zero.weights.Vector, 1e-9)
}
