package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailvault/internal/model"
)

func TestEmailDetailResponse(t *testing.T) {
	email := &model.Email{
		ID:        42,
		ArchiveID: 7,
		Subject:   "Quarterly review",
		Sender:    "boss@example.com",
		BodyText:  "see attached",
		Status:    model.EmailStatusClassified,
	}

	t.Run("classified email carries category and confidence", func(t *testing.T) {
		meta := &model.EmailMetadata{EmailID: 42, Category: "work", Confidence: 0.93}

		out := emailDetailResponse(email, meta)

		assert.Equal(t, "work", out["category"])
		assert.Equal(t, 0.93, out["confidence"])
		assert.Equal(t, "see attached", out["body"])
	})

	t.Run("unclassified email omits classification keys", func(t *testing.T) {
		out := emailDetailResponse(email, nil)

		_, ok := out["category"]
		assert.False(t, ok)
		_, ok = out["confidence"]
		assert.False(t, ok)
		require.Equal(t, int64(42), out["id"])
	})
}

func TestEmailSummaryResponse(t *testing.T) {
	e := &model.EmailWithMetadata{
		Email: model.Email{ID: 1, Subject: "hi", Status: model.EmailStatusIngested},
	}

	out := emailSummaryResponse(e)
	_, ok := out["category"]
	assert.False(t, ok)

	e.Metadata = &model.EmailMetadata{Category: "personal", Confidence: 0.6}
	out = emailSummaryResponse(e)
	assert.Equal(t, "personal", out["category"])
	assert.Equal(t, 0.6, out["confidence"])
}
