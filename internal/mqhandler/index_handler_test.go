package mqhandler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	contracts "mailvault/contracts/mq"
)

func newIndexFixture() (*IndexHandler, *fakeChunkStore, *fakeAgent, *fakeRedisCache) {
	chunks := &fakeChunkStore{}
	agent := &fakeAgent{}
	cache := &fakeRedisCache{}

	h := NewIndexHandler(chunks, agent, cache, &fakeDeduper{}, &fakeRetries{}, &fakePublisher{}, zap.NewNop())
	return h, chunks, agent, cache
}

func TestIndexHandlerSkipsWhenChunksExist(t *testing.T) {
	h, chunks, _, _ := newIndexFixture()
	chunks.exists = true

	err := h.Handle(context.Background(), ingestedPayload(t, 42))

	require.NoError(t, err)
	assert.Empty(t, chunks.inserted)
}

func TestIndexHandlerIgnoresEmptyBody(t *testing.T) {
	h, chunks, _, _ := newIndexFixture()
	data, err := json.Marshal(contracts.EmailIngestedPayload{EmailID: 42, UserID: 7, Subject: "no body"})
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), data))
	assert.Empty(t, chunks.inserted)
}

func TestIndexHandlerStoresEmbeddedChunks(t *testing.T) {
	h, chunks, _, cache := newIndexFixture()

	err := h.Handle(context.Background(), ingestedPayload(t, 42))

	require.NoError(t, err)
	require.Len(t, chunks.inserted, 1)
	assert.Equal(t, int64(42), chunks.inserted[0].EmailID)
	assert.Equal(t, int64(7), chunks.inserted[0].UserID)
	assert.Equal(t, 0, chunks.inserted[0].Seq)
	assert.Equal(t, []float32{0.1, 0.2}, chunks.inserted[0].Embedding)
	// Fresh embeddings land in the cache for replays.
	assert.Equal(t, 1, cache.sets)
}
