package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func bm25Docs(contents ...string) []*Document {
	docs := make([]*Document, len(contents))
	for i, c := range contents {
		docs[i] = &Document{Content: c, contentTokens: Tokenize(c)}
	}
	return docs
}

func TestBM25Scores(t *testing.T) {
	t.Run("rare term outranks common term", func(t *testing.T) {
		docs := bm25Docs(
			"project update project update project status",
			"project update with budget figures attached",
			"project schedule moved next week",
		)

		scores := bm25Scores(docs, Tokenize("budget"))

		assert.Greater(t, scores[1], 0.0)
		assert.Zero(t, scores[0])
		assert.Zero(t, scores[2])
	})

	t.Run("term frequency increases score", func(t *testing.T) {
		docs := bm25Docs(
			"deadline mentioned once here today",
			"deadline deadline deadline repeated here today",
			"nothing relevant here today",
		)

		scores := bm25Scores(docs, Tokenize("deadline"))

		assert.Greater(t, scores[1], scores[0])
		assert.Zero(t, scores[2])
	})

	t.Run("idf floored at zero for ubiquitous terms", func(t *testing.T) {
		// "meeting" appears in every document, so its raw IDF would be
		// negative; the floor keeps scores non-negative.
		docs := bm25Docs(
			"meeting notes",
			"meeting agenda",
			"meeting minutes",
		)

		scores := bm25Scores(docs, Tokenize("meeting"))

		for _, s := range scores {
			assert.GreaterOrEqual(t, s, 0.0)
		}
	})

	t.Run("empty query scores everything zero", func(t *testing.T) {
		docs := bm25Docs("some content here")

		scores := bm25Scores(docs, nil)

		assert.Equal(t, []float64{0}, scores)
	})

	t.Run("no documents", func(t *testing.T) {
		scores := bm25Scores(nil, Tokenize("anything"))
		assert.Empty(t, scores)
	})
}
