package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	contracts "mailvault/contracts/mq"
	"mailvault/internal/model"
	"mailvault/internal/service"
)

func ingestedPayload(t *testing.T, emailID int64) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(contracts.EmailIngestedPayload{
		EmailID: emailID,
		UserID:  7,
		Subject: "Lunch on Friday?",
		Body:    "Can we meet at noon?",
	})
	require.NoError(t, err)
	return data
}

func newClassifyFixture() (*ClassifyHandler, *fakeEmailStore, *fakeMetadataStore, *fakeAgent, *fakeDeduper, *fakeRetries, *fakePublisher) {
	emails := &fakeEmailStore{}
	metadata := &fakeMetadataStore{}
	agent := &fakeAgent{classification: &service.Classification{Category: "personal", Confidence: 0.91}}
	deduper := &fakeDeduper{}
	retries := &fakeRetries{}
	publisher := &fakePublisher{}

	h := NewClassifyHandler(emails, metadata, agent, deduper, retries, publisher, zap.NewNop())
	return h, emails, metadata, agent, deduper, retries, publisher
}

func TestClassifyHandlerPoisonPayloadGoesToDLQ(t *testing.T) {
	h, _, metadata, agent, _, _, publisher := newClassifyFixture()

	err := h.Handle(context.Background(), json.RawMessage(`{not json`))

	require.NoError(t, err)
	require.Len(t, publisher.dlq, 1)
	assert.Equal(t, "email.ingested", publisher.dlq[0].routingKey)
	assert.Zero(t, agent.classifyCalls)
	assert.Empty(t, metadata.inserted)
}

func TestClassifyHandlerSkipsAlreadyClassified(t *testing.T) {
	h, emails, metadata, agent, _, _, _ := newClassifyFixture()
	emails.meta = &model.EmailMetadata{EmailID: 42, Category: "work", Confidence: 0.8}

	err := h.Handle(context.Background(), ingestedPayload(t, 42))

	require.NoError(t, err)
	assert.Zero(t, agent.classifyCalls)
	assert.Empty(t, metadata.inserted)
}

func TestClassifyHandlerSkipsDuplicateDelivery(t *testing.T) {
	h, _, metadata, agent, deduper, _, _ := newClassifyFixture()
	deduper.blocked = true

	err := h.Handle(context.Background(), ingestedPayload(t, 42))

	require.NoError(t, err)
	assert.Zero(t, agent.classifyCalls)
	assert.Empty(t, metadata.inserted)
}

func TestClassifyHandlerStoresClassification(t *testing.T) {
	h, emails, metadata, _, _, retries, _ := newClassifyFixture()

	err := h.Handle(context.Background(), ingestedPayload(t, 42))

	require.NoError(t, err)
	require.Len(t, metadata.inserted, 1)
	assert.Equal(t, classifiedRow{42, "personal", 0.91}, metadata.inserted[0])
	assert.Equal(t, model.EmailStatusClassified, emails.statuses[42])
	assert.NotEmpty(t, retries.resets)
}

func TestClassifyHandlerRetryBudget(t *testing.T) {
	tests := []struct {
		name         string
		priorRetries int64
		cause        error
		wantRequeue  bool
		wantReason   string
	}{
		{
			name:         "retryable failure below budget requeues",
			priorRetries: 0,
			cause:        errors.New("agent service 5xx: 503"),
			wantRequeue:  true,
		},
		{
			name:         "retryable failure past budget falls back",
			priorRetries: maxHandlerRetries,
			cause:        errors.New("agent service 5xx: 503"),
			wantRequeue:  false,
			wantReason:   "agent_service_error",
		},
		{
			name:         "non-retryable failure falls back immediately",
			priorRetries: 0,
			cause:        errors.New("agent service error: 422"),
			wantRequeue:  false,
			wantReason:   "agent_bad_request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, emails, metadata, agent, deduper, retries, _ := newClassifyFixture()
			agent.classification = nil
			agent.classifyErr = tt.cause
			retries.count = tt.priorRetries

			err := h.Handle(context.Background(), ingestedPayload(t, 42))

			if tt.wantRequeue {
				require.Error(t, err)
				// The dedup lock must be dropped or the redelivery
				// would be skipped.
				assert.Equal(t, 1, deduper.releases)
				assert.Empty(t, metadata.inserted)
				return
			}

			require.NoError(t, err)
			require.Len(t, metadata.inserted, 1)
			assert.Equal(t, classifiedRow{42, fallbackCategory, 0.0}, metadata.inserted[0])
			assert.Equal(t, []string{tt.wantReason}, metadata.failures)
			assert.Equal(t, model.EmailStatusClassified, emails.statuses[42])
		})
	}
}
