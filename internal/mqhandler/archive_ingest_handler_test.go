package mqhandler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	contracts "mailvault/contracts/mq"
	"mailvault/internal/model"
)

func uploadedPayload(t *testing.T, archiveID int64) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(contracts.ArchiveUploadedPayload{
		ArchiveID: archiveID,
		UserID:    7,
		ObjectKey: "archives/7/test.json",
		Format:    model.FormatJSON,
	})
	require.NoError(t, err)
	return data
}

func newIngestFixture(archive *model.Archive, object []byte) (*ArchiveIngestHandler, *fakeArchiveStore, *fakeEmailStore, *fakePublisher) {
	archives := &fakeArchiveStore{archive: archive}
	emails := &fakeEmailStore{}
	store := &fakeObjectGetter{data: object}
	publisher := &fakePublisher{}

	h := NewArchiveIngestHandler(archives, emails, store, publisher, zap.NewNop())
	return h, archives, emails, publisher
}

func TestArchiveIngestHandlerPoisonPayloadGoesToDLQ(t *testing.T) {
	h, _, emails, publisher := newIngestFixture(nil, nil)

	err := h.Handle(context.Background(), json.RawMessage(`[broken`))

	require.NoError(t, err)
	require.Len(t, publisher.dlq, 1)
	assert.Equal(t, "archive.uploaded", publisher.dlq[0].routingKey)
	assert.Empty(t, emails.created)
}

func TestArchiveIngestHandlerSkipsProcessedArchive(t *testing.T) {
	h, archives, emails, _ := newIngestFixture(&model.Archive{
		ID: 1, UserID: 7, Format: model.FormatJSON, Status: model.ArchiveStatusIngested,
	}, nil)

	err := h.Handle(context.Background(), uploadedPayload(t, 1))

	require.NoError(t, err)
	assert.Empty(t, emails.created)
	assert.Empty(t, archives.ingestedWith)
}

func TestArchiveIngestHandlerIngestsJSONArchive(t *testing.T) {
	object := []byte(`[
		{"message_id": "<a@x>", "subject": "first", "from": "a@x", "to": "me@x", "body": "hello", "date": "2026-03-10T09:00:00Z"},
		{"message_id": "<b@x>", "subject": "second", "from": "b@x", "to": "me@x", "body": "world"},
		{"message_id": "<c@x>", "subject": "", "from": "c@x", "to": "me@x", "body": ""}
	]`)
	h, archives, emails, publisher := newIngestFixture(&model.Archive{
		ID: 1, UserID: 7, Format: model.FormatJSON, Status: model.ArchiveStatusUploaded,
	}, object)

	err := h.Handle(context.Background(), uploadedPayload(t, 1))

	require.NoError(t, err)
	// The empty third message is dropped by the parser.
	require.Len(t, emails.created, 2)
	assert.Equal(t, "first", emails.created[0].Subject)
	assert.Equal(t, int64(7), emails.created[0].UserID)
	assert.Equal(t, model.EmailStatusIngested, emails.created[0].Status)

	require.Len(t, publisher.published, 2)
	for _, p := range publisher.published {
		assert.Equal(t, "email.ingested", p.routingKey)
	}

	assert.Equal(t, []int{2, 0}, archives.ingestedWith)
}
