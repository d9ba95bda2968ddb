package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChunks(t *testing.T) {
	t.Run("short text stays whole", func(t *testing.T) {
		chunks := SplitChunks("a short email body", 800, 200)
		assert.Equal(t, []string{"a short email body"}, chunks)
	})

	t.Run("empty and whitespace input", func(t *testing.T) {
		assert.Nil(t, SplitChunks("", 800, 200))
		assert.Nil(t, SplitChunks("   \n\t  ", 800, 200))
	})

	t.Run("long text is split with overlap", func(t *testing.T) {
		text := strings.Repeat("word ", 500) // ~2500 runes
		chunks := SplitChunks(text, 800, 200)

		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.LessOrEqual(t, len([]rune(c)), 800)
			assert.NotEmpty(t, c)
		}
	})

	t.Run("prefers paragraph boundary", func(t *testing.T) {
		first := strings.Repeat("alpha ", 120) // ~720 runes
		second := strings.Repeat("beta ", 120)
		text := strings.TrimSpace(first) + "\n\n" + strings.TrimSpace(second)

		chunks := SplitChunks(text, 800, 100)

		require.Greater(t, len(chunks), 1)
		// The first chunk should end at the paragraph break, not mid-word
		// in the second paragraph.
		assert.False(t, strings.Contains(chunks[0], "beta"))
	})

	t.Run("invalid geometry falls back to defaults", func(t *testing.T) {
		text := strings.Repeat("x ", 1000)
		chunks := SplitChunks(text, 0, -1)
		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			assert.LessOrEqual(t, len([]rune(c)), DefaultChunkSize)
		}
	})

	t.Run("oversized overlap still terminates", func(t *testing.T) {
		// Overlap close to the window size could otherwise cancel out the
		// window advance and loop forever.
		text := strings.Repeat("word ", 200) // ~1000 runes
		chunks := SplitChunks(text, 100, 95)

		require.NotEmpty(t, chunks)
		assert.True(t, strings.HasSuffix(strings.TrimSpace(text), strings.TrimSpace(chunks[len(chunks)-1])))
	})

	t.Run("every rune of input is covered", func(t *testing.T) {
		text := strings.Repeat("sentence one. ", 200)
		chunks := SplitChunks(text, 300, 50)

		joined := strings.Join(chunks, " ")
		assert.Contains(t, joined, "sentence one.")
		// Last chunk carries the tail of the input.
		assert.True(t, strings.HasSuffix(strings.TrimSpace(text), strings.TrimSpace(chunks[len(chunks)-1])))
	})
}
