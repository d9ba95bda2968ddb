package archive

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONArchive(t *testing.T) {
	input := `[
		{
			"message_id": "m1",
			"subject": "Standup notes",
			"from": "alice@example.com",
			"to": "team@example.com",
			"body": "Short meeting today.",
			"date": "2025-06-02T09:00:00Z"
		},
		{
			"message_id": "m2",
			"subject": "",
			"from": "",
			"to": "",
			"body": "",
			"date": ""
		},
		{
			"message_id": "m3",
			"subject": "Space-separated date",
			"body": "body",
			"date": "2025-06-03 14:30:00"
		},
		{
			"message_id": "m4",
			"subject": "Bad date keeps the message",
			"body": "body",
			"date": "sometime soon"
		}
	]`

	emails, err := ParseJSONArchive(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, emails, 3) // the empty message is skipped

	assert.Equal(t, "m1", emails[0].MessageID)
	assert.Equal(t, "Standup notes", emails[0].Subject)
	assert.Equal(t, "alice@example.com", emails[0].Sender)
	assert.Equal(t, "team@example.com", emails[0].Recipients)
	require.NotNil(t, emails[0].SentAt)
	assert.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), emails[0].SentAt.UTC())

	require.NotNil(t, emails[1].SentAt)
	assert.Equal(t, time.Date(2025, 6, 3, 14, 30, 0, 0, time.UTC), emails[1].SentAt.UTC())

	assert.Nil(t, emails[2].SentAt)
	assert.Equal(t, "Bad date keeps the message", emails[2].Subject)
}

func TestParseJSONArchiveDateOnly(t *testing.T) {
	input := `[{"subject": "s", "body": "b", "date": "2025-06-05"}]`

	emails, err := ParseJSONArchive(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, emails, 1)
	require.NotNil(t, emails[0].SentAt)
	assert.Equal(t, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), emails[0].SentAt.UTC())
}

func TestParseJSONArchiveInvalid(t *testing.T) {
	_, err := ParseJSONArchive(strings.NewReader(`{"not": "an array"}`))
	assert.Error(t, err)

	_, err = ParseJSONArchive(strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestParseJSONArchiveEmptyArray(t *testing.T) {
	emails, err := ParseJSONArchive(strings.NewReader(`[]`))
	require.NoError(t, err)
	assert.Empty(t, emails)
}
