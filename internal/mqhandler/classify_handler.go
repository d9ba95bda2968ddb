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

// fallbackCategory is recorded when classification cannot succeed, so an
// email never stays unclassified forever.
const fallbackCategory = "unknown"

// ClassifyHandler consumes "email.ingested" on the classify queue and
// records the LLM category for each email.
type ClassifyHandler struct {
	emails    emailStore
	metadata  metadataStore
	agent     agentCaller
	deduper   dedupLocker
	retries   retryBudget
	publisher eventPublisher
	logger    *zap.Logger
}

func NewClassifyHandler(
	emails emailStore,
	metadata metadataStore,
	agent agentCaller,
	deduper dedupLocker,
	retries retryBudget,
	publisher eventPublisher,
	logger *zap.Logger,
) *ClassifyHandler {
	return &ClassifyHandler{
		emails:    emails,
		metadata:  metadata,
		agent:     agent,
		deduper:   deduper,
		retries:   retries,
		publisher: publisher,
		logger:    logger,
	}
}

func (h *ClassifyHandler) Handle(ctx context.Context, data json.RawMessage) error {
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

	_, meta, err := h.emails.FindWithMetadataByID(ctx, payload.EmailID)
	if err != nil {
		retryable, reason := util.IsRetryableError(err)
		if retryable {
			return fmt.Errorf("load email %d: %w", payload.EmailID, err)
		}
		log.Error("Email row unavailable, dropping event", zap.String("reason", reason), zap.Error(err))
		return nil
	}
	if meta != nil {
		log.Info("Email already classified, skipping")
		return nil
	}

	if !h.deduper.AcquireOnce(ctx, "classify", payload.EmailID) {
		return nil
	}

	result, err := h.agent.ClassifyEmail(ctx, payload.Subject, payload.Body)
	if err != nil {
		return h.handleClassifyError(ctx, payload, err, log)
	}

	if err := h.metadata.Insert(ctx, payload.EmailID, result.Category, result.Confidence); err != nil {
		h.deduper.Release(ctx, "classify", payload.EmailID)
		return fmt.Errorf("store classification for email %d: %w", payload.EmailID, err)
	}
	if err := h.emails.UpdateStatus(ctx, payload.EmailID, model.EmailStatusClassified); err != nil {
		log.Error("Failed to update email status", zap.Error(err))
	}

	if err := h.retries.Reset(ctx, util.FormatRetryKey("classify", payload.EmailID)); err != nil {
		log.Warn("Failed to reset retry counter", zap.Error(err))
	}

	metrics.EmailsClassified.WithLabelValues("success").Inc()
	log.Info("Email classified",
		zap.String("category", result.Category),
		zap.Float64("confidence", result.Confidence))
	return nil
}

// handleClassifyError requeues retryable failures up to maxHandlerRetries,
// then writes the fallback classification so the pipeline drains.
func (h *ClassifyHandler) handleClassifyError(ctx context.Context, payload contracts.EmailIngestedPayload, cause error, log *zap.Logger) error {
	retryable, reason := util.IsRetryableError(cause)

	if retryable {
		retryKey := util.FormatRetryKey("classify", payload.EmailID)
		count, err := h.retries.IncrementAndGet(ctx, retryKey)
		if err != nil {
			log.Warn("Retry counter unavailable, requeueing anyway", zap.Error(err))
			count = 0
		}
		if util.ShouldRetry(count, maxHandlerRetries, retryable) {
			h.deduper.Release(ctx, "classify", payload.EmailID)
			log.Warn("Classification failed, requeueing",
				zap.Int64("attempt", count),
				zap.String("reason", reason),
				zap.Error(cause))
			return fmt.Errorf("classify email %d: %w", payload.EmailID, cause)
		}
		log.Error("Classification retries exhausted, falling back",
			zap.Int64("attempts", count),
			zap.Error(cause))
	} else {
		log.Error("Classification failed permanently, falling back",
			zap.String("reason", reason),
			zap.Error(cause))
	}

	if err := h.metadata.Insert(ctx, payload.EmailID, fallbackCategory, 0.0); err != nil {
		h.deduper.Release(ctx, "classify", payload.EmailID)
		return fmt.Errorf("store fallback classification for email %d: %w", payload.EmailID, err)
	}
	if err := h.metadata.InsertFailure(ctx, payload.EmailID, reason); err != nil {
		log.Warn("Failed to record classification failure", zap.Error(err))
	}
	if err := h.emails.UpdateStatus(ctx, payload.EmailID, model.EmailStatusClassified); err != nil {
		log.Error("Failed to update email status", zap.Error(err))
	}

	metrics.EmailsClassified.WithLabelValues("fallback").Inc()
	return nil
}
