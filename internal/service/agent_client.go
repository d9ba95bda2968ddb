package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mailvault/pkg/circuitbreaker"
	"mailvault/pkg/config"
	"mailvault/pkg/metrics"
)

// AgentClient talks to the agent-service that hosts the LLM endpoints.
// The prompt templates live on that side; this is a plain JSON contract.
// All calls go through a shared circuit breaker so a dead LLM backend
// fails fast instead of pinning every worker on timeouts.
type AgentClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

func NewAgentClient(cfg config.AgentConfig) *AgentClient {
	return &AgentClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig()),
	}
}

// Classification is the /classify response.
type Classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// ExtractedEvent is one calendar event in the /extract_events response.
type ExtractedEvent struct {
	Title      string     `json:"title"`
	Location   string     `json:"location"`
	StartsAt   time.Time  `json:"starts_at"`
	EndsAt     *time.Time `json:"ends_at"`
	AllDay     bool       `json:"all_day"`
	Confidence float64    `json:"confidence"`
}

// ChatTurn is one prior message passed to /chat.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClassifyEmail asks the LLM for a category + confidence.
func (c *AgentClient) ClassifyEmail(ctx context.Context, subject, body string) (*Classification, error) {
	req := map[string]string{"subject": subject, "body": body}
	var resp Classification
	if err := c.call(ctx, "/classify", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExtractEvents asks the LLM for calendar events mentioned in the email.
// An empty slice is a normal answer, most emails contain no events.
func (c *AgentClient) ExtractEvents(ctx context.Context, subject, body string, sentAt *time.Time) ([]ExtractedEvent, error) {
	req := map[string]any{"subject": subject, "body": body}
	if sentAt != nil {
		req["sent_at"] = sentAt
	}
	var resp struct {
		Events []ExtractedEvent `json:"events"`
	}
	if err := c.call(ctx, "/extract_events", req, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// Embed returns one embedding vector per input text.
func (c *AgentClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := map[string]any{"texts": texts}
	var resp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := c.call(ctx, "/embed", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("agent service returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

// Chat sends the question with the assembled retrieval context and trimmed
// history, and returns the assistant answer.
func (c *AgentClient) Chat(ctx context.Context, question, contextBlock string, history []ChatTurn) (string, error) {
	req := map[string]any{
		"question": question,
		"context":  contextBlock,
		"history":  history,
	}
	var resp struct {
		Answer string `json:"answer"`
	}
	if err := c.call(ctx, "/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

func (c *AgentClient) call(ctx context.Context, endpoint string, payload, out any) error {
	start := time.Now()
	status := "ok"

	err := c.breaker.Execute(func() error {
		return c.doCall(ctx, endpoint, payload, out)
	})
	if err != nil {
		status = "error"
	}

	metrics.RecordAgentCallLatency(endpoint, status, time.Since(start))
	return err
}

func (c *AgentClient) doCall(ctx context.Context, endpoint string, payload, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call agent service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		// Retryable class, see pkg/util.IsRetryableError.
		return fmt.Errorf("agent service 5xx: %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agent service error: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode agent response: %w", err)
	}
	return nil
}
