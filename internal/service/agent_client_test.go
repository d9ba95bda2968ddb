package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailvault/pkg/config"
)

func newTestAgent(t *testing.T, handler http.HandlerFunc) *AgentClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAgentClient(config.AgentConfig{BaseURL: srv.URL, TimeoutSeconds: 2})
}

func TestClassifyEmail(t *testing.T) {
	agent := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/classify", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Invoice overdue", req["subject"])

		json.NewEncoder(w).Encode(map[string]any{
			"category":   "finance",
			"confidence": 0.92,
		})
	})

	result, err := agent.ClassifyEmail(context.Background(), "Invoice overdue", "please pay")
	require.NoError(t, err)
	assert.Equal(t, "finance", result.Category)
	assert.InDelta(t, 0.92, result.Confidence, 1e-9)
}

func TestAgentServerErrorIsRetryableShape(t *testing.T) {
	agent := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := agent.ClassifyEmail(context.Background(), "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent service 5xx: 503")
}

func TestAgentClientErrorShape(t *testing.T) {
	agent := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	_, err := agent.ClassifyEmail(context.Background(), "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent service error: 422")
}

func TestExtractEvents(t *testing.T) {
	agent := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/extract_events", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"events": []map[string]any{
				{
					"title":      "Team offsite",
					"location":   "Helsinki",
					"starts_at":  "2025-06-10T09:00:00Z",
					"all_day":    false,
					"confidence": 0.8,
				},
			},
		})
	})

	events, err := agent.ExtractEvents(context.Background(), "Offsite", "see you there", nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Team offsite", events[0].Title)
	assert.Equal(t, "Helsinki", events[0].Location)
	assert.Nil(t, events[0].EndsAt)
}

func TestExtractEventsEmpty(t *testing.T) {
	agent := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"events": []any{}})
	})

	events, err := agent.ExtractEvents(context.Background(), "s", "b", nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEmbed(t *testing.T) {
	agent := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		})
	})

	vecs, err := agent.Embed(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.InDelta(t, 0.3, vecs[1][0], 1e-6)
}

func TestEmbedCountMismatch(t *testing.T) {
	agent := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.1}},
		})
	})

	_, err := agent.Embed(context.Background(), []string{"one", "two"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 embeddings for 2 texts")
}

func TestChat(t *testing.T) {
	agent := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat", r.URL.Path)

		var req struct {
			Question string     `json:"question"`
			Context  string     `json:"context"`
			History  []ChatTurn `json:"history"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "when is the offsite?", req.Question)
		assert.Len(t, req.History, 1)

		json.NewEncoder(w).Encode(map[string]string{"answer": "June 10th, per [1]."})
	})

	answer, err := agent.Chat(context.Background(), "when is the offsite?", "[1] Subject: Offsite",
		[]ChatTurn{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "June 10th, per [1].", answer)
}

func TestCircuitBreakerOpensAfterRepeatedFailures(t *testing.T) {
	agent := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 6; i++ {
		_, _ = agent.ClassifyEmail(context.Background(), "s", "b")
	}

	_, err := agent.ClassifyEmail(context.Background(), "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}
