package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	contracts "mailvault/contracts/mq"
	"mailvault/internal/model"
	"mailvault/pkg/metrics"
	"mailvault/pkg/trace"
	"mailvault/pkg/util"
)

// EventExtractHandler consumes "email.ingested" on the events queue and
// stores any calendar events the LLM finds in the email body.
type EventExtractHandler struct {
	emails    emailStore
	events    eventStore
	agent     agentCaller
	deduper   dedupLocker
	retries   retryBudget
	publisher eventPublisher
	logger    *zap.Logger
}

func NewEventExtractHandler(
	emails emailStore,
	events eventStore,
	agent agentCaller,
	deduper dedupLocker,
	retries retryBudget,
	publisher eventPublisher,
	logger *zap.Logger,
) *EventExtractHandler {
	return &EventExtractHandler{
		emails:    emails,
		events:    events,
		agent:     agent,
		deduper:   deduper,
		retries:   retries,
		publisher: publisher,
		logger:    logger,
	}
}

func (h *EventExtractHandler) Handle(ctx context.Context, data json.RawMessage) error {
	var payload contracts.EmailIngestedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.logger.Error("Poison email.ingested payload, sending to DLQ", zap.Error(err))
		if dlqErr := h.publisher.PublishToDLQ("email.ingested", data, err.Error()); dlqErr != nil {
			h.logger.Error("Failed to publish to DLQ", zap.Error(dlqErr))
		}
		return nil
	}

	log := h.logger.With(
		zap.String("trace_id", trace.FromContext(ctx)),
		zap.Int64("email_id", payload.EmailID),
	)

	exists, err := h.events.ExistsForEmail(ctx, payload.EmailID)
	if err != nil {
		return fmt.Errorf("check events for email %d: %w", payload.EmailID, err)
	}
	if exists {
		log.Info("Events already extracted, skipping")
		return nil
	}

	if !h.deduper.AcquireOnce(ctx, "events", payload.EmailID) {
		return nil
	}

	// SentAt is not on the event payload; the model needs it to anchor
	// relative dates ("next Tuesday").
	email, err := h.emails.FindByID(ctx, payload.EmailID)
	if err != nil {
		h.deduper.Release(ctx, "events", payload.EmailID)
		retryable, reason := util.IsRetryableError(err)
		if retryable {
			return fmt.Errorf("load email %d: %w", payload.EmailID, err)
		}
		log.Error("Email row unavailable, dropping event", zap.String("reason", reason), zap.Error(err))
		return nil
	}

	extracted, err := h.agent.ExtractEvents(ctx, payload.Subject, payload.Body, email.SentAt)
	if err != nil {
		return h.handleExtractError(ctx, payload.EmailID, err, log)
	}

	stored := 0
	for _, ev := range extracted {
		event := &model.CalendarEvent{
			EmailID:    payload.EmailID,
			UserID:     payload.UserID,
			Title:      ev.Title,
			Location:   ev.Location,
			StartsAt:   ev.StartsAt,
			EndsAt:     ev.EndsAt,
			AllDay:     ev.AllDay,
			Confidence: ev.Confidence,
		}
		if err := h.events.Insert(ctx, event); err != nil {
			log.Error("Failed to store calendar event", zap.String("title", ev.Title), zap.Error(err))
			continue
		}
		metrics.EventsExtracted.Inc()
		stored++
	}

	if err := h.retries.Reset(ctx, util.FormatRetryKey("events", payload.EmailID)); err != nil {
		log.Warn("Failed to reset retry counter", zap.Error(err))
	}

	if stored > 0 {
		log.Info("Calendar events extracted", zap.Int("events", stored))
	}
	return nil
}

// handleExtractError requeues retryable failures up to maxHandlerRetries.
// Unlike classification there is no fallback row: most emails simply
// contain no events, so giving up loses nothing visible.
func (h *EventExtractHandler) handleExtractError(ctx context.Context, emailID int64, cause error, log *zap.Logger) error {
	retryable, reason := util.IsRetryableError(cause)
	if !retryable {
		log.Error("Event extraction failed permanently, giving up",
			zap.String("reason", reason),
			zap.Error(cause))
		return nil
	}

	retryKey := util.FormatRetryKey("events", emailID)
	count, err := h.retries.IncrementAndGet(ctx, retryKey)
	if err != nil {
		log.Warn("Retry counter unavailable, requeueing anyway", zap.Error(err))
		count = 0
	}
	if util.ShouldRetry(count, maxHandlerRetries, retryable) {
		h.deduper.Release(ctx, "events", emailID)
		log.Warn("Event extraction failed, requeueing",
			zap.Int64("attempt", count),
			zap.Error(cause))
		return fmt.Errorf("extract events for email %d: %w", emailID, cause)
	}

	log.Error("Event extraction retries exhausted, giving up",
		zap.Int64("attempts", count),
		zap.Error(cause))
	return nil
}
