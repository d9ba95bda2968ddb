package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func keywordDoc(subject, content string) *Document {
	return &Document{
		Subject:       subject,
		Content:       content,
		subjectTokens: Tokenize(subject),
		contentTokens: Tokenize(content),
	}
}

func TestKeywordScore(t *testing.T) {
	query := Tokenize("budget review")

	t.Run("full body overlap", func(t *testing.T) {
		doc := keywordDoc("weekly sync", "budget review attached below")
		assert.InDelta(t, 1.0, keywordScore(doc, query), 1e-9)
	})

	t.Run("subject hit adds boost", func(t *testing.T) {
		plain := keywordDoc("weekly sync", "budget review attached below")
		boosted := keywordDoc("budget review", "budget review attached below")

		assert.Greater(t, keywordScore(boosted, query), keywordScore(plain, query))
		assert.InDelta(t, 1.0+subjectBoost, keywordScore(boosted, query), 1e-9)
	})

	t.Run("partial overlap", func(t *testing.T) {
		doc := keywordDoc("", "budget numbers only")
		assert.InDelta(t, 0.5, keywordScore(doc, query), 1e-9)
	})

	t.Run("no overlap", func(t *testing.T) {
		doc := keywordDoc("lunch plans", "pizza on friday")
		assert.Zero(t, keywordScore(doc, query))
	})

	t.Run("empty query", func(t *testing.T) {
		doc := keywordDoc("anything", "anything at all")
		assert.Zero(t, keywordScore(doc, nil))
	})
}
