package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mailvault/internal/model"
)

func TestBuildHistory(t *testing.T) {
	t.Run("converts roles in order", func(t *testing.T) {
		msgs := []model.Message{
			{Role: model.RoleUser, Content: "q1"},
			{Role: model.RoleAssistant, Content: "a1"},
		}

		turns := buildHistory(msgs)

		assert.Equal(t, []ChatTurn{
			{Role: "user", Content: "q1"},
			{Role: "assistant", Content: "a1"},
		}, turns)
	})

	t.Run("trims to the last turns", func(t *testing.T) {
		msgs := make([]model.Message, historyLimit+4)
		for i := range msgs {
			msgs[i] = model.Message{Role: model.RoleUser, Content: string(rune('a' + i))}
		}

		turns := buildHistory(msgs)

		assert.Len(t, turns, historyLimit)
		assert.Equal(t, msgs[len(msgs)-1].Content, turns[len(turns)-1].Content)
	})

	t.Run("empty history", func(t *testing.T) {
		assert.Empty(t, buildHistory(nil))
	})
}
