// Package mqhandler contains the worker-side consumers of the "events"
// exchange: archive extraction, classification, calendar-event extraction
// and chunk indexing. Each handler is idempotent; redeliveries are normal.
package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	contracts "mailvault/contracts/mq"
	"mailvault/internal/archive"
	"mailvault/internal/model"
	"mailvault/pkg/metrics"
	"mailvault/pkg/trace"
	"mailvault/pkg/util"
)

// maxHandlerRetries caps requeue cycles for retryable failures before a
// handler gives up on a message.
const maxHandlerRetries = 5

// ArchiveIngestHandler consumes "archive.uploaded": it pulls the file
// from object storage, extracts individual emails, persists them and
// publishes one "email.ingested" event per email.
type ArchiveIngestHandler struct {
	archives  archiveStore
	emails    emailStore
	store     objectGetter
	publisher eventPublisher
	logger    *zap.Logger
}

func NewArchiveIngestHandler(
	archives archiveStore,
	emails emailStore,
	store objectGetter,
	publisher eventPublisher,
	logger *zap.Logger,
) *ArchiveIngestHandler {
	return &ArchiveIngestHandler{
		archives:  archives,
		emails:    emails,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

func (h *ArchiveIngestHandler) Handle(ctx context.Context, data json.RawMessage) error {
	var payload contracts.ArchiveUploadedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.logger.Error("Poison archive.uploaded payload, sending to DLQ", zap.Error(err))
		if dlqErr := h.publisher.PublishToDLQ("archive.uploaded", data, err.Error()); dlqErr != nil {
			h.logger.Error("Failed to publish to DLQ", zap.Error(dlqErr))
		}
		return nil
	}

	log := h.logger.With(
		zap.String("trace_id", trace.FromContext(ctx)),
		zap.Int64("archive_id", payload.ArchiveID),
	)

	a, err := h.archives.Get(ctx, payload.ArchiveID)
	if err != nil {
		retryable, reason := util.IsRetryableError(err)
		if retryable {
			return fmt.Errorf("load archive %d: %w", payload.ArchiveID, err)
		}
		log.Error("Archive row unavailable, dropping event", zap.String("reason", reason), zap.Error(err))
		return nil
	}
	if a.Status != model.ArchiveStatusUploaded {
		log.Info("Archive already processed, skipping", zap.String("status", a.Status))
		return nil
	}

	parsed, err := h.extract(ctx, a)
	if err != nil {
		retryable, reason := util.IsRetryableError(err)
		if retryable {
			return fmt.Errorf("extract archive %d: %w", a.ID, err)
		}
		log.Error("Archive extraction failed", zap.String("reason", reason), zap.Error(err))
		if markErr := h.archives.MarkFailed(ctx, a.ID); markErr != nil {
			log.Error("Failed to mark archive failed", zap.Error(markErr))
		}
		return nil
	}

	stored, failed := h.storeAndPublish(ctx, a, parsed, log)

	if err := h.archives.MarkIngested(ctx, a.ID, stored, failed); err != nil {
		return fmt.Errorf("mark archive %d ingested: %w", a.ID, err)
	}

	log.Info("Archive ingested",
		zap.Int("parsed", stored),
		zap.Int("failed", failed),
		zap.String("format", a.Format))
	return nil
}

// extract downloads the archive object and parses it into emails.
func (h *ArchiveIngestHandler) extract(ctx context.Context, a *model.Archive) ([]archive.ParsedEmail, error) {
	obj, err := h.store.Get(ctx, a.ObjectKey)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	switch a.Format {
	case model.FormatEML:
		email, err := archive.ParseEML(obj)
		if err != nil {
			return nil, err
		}
		return []archive.ParsedEmail{*email}, nil

	case model.FormatJSON:
		return archive.ParseJSONArchive(obj)

	case model.FormatPST:
		return h.extractPST(ctx, obj)

	default:
		return nil, fmt.Errorf("unknown archive format %q", a.Format)
	}
}

func (h *ArchiveIngestHandler) extractPST(ctx context.Context, obj io.Reader) ([]archive.ParsedEmail, error) {
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, err
	}

	dir, pstPath, err := archive.WritePSTTemp(data)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	emlPaths, err := archive.ExtractPST(ctx, pstPath, dir)
	if err != nil {
		return nil, err
	}

	var emails []archive.ParsedEmail
	for _, path := range emlPaths {
		f, err := os.Open(path)
		if err != nil {
			h.logger.Warn("Failed to open extracted message", zap.String("path", path), zap.Error(err))
			continue
		}
		email, parseErr := archive.ParseEML(f)
		f.Close()
		if parseErr != nil {
			h.logger.Warn("Failed to parse extracted message", zap.String("path", path), zap.Error(parseErr))
			continue
		}
		emails = append(emails, *email)
	}
	return emails, nil
}

// storeAndPublish inserts each parsed email and publishes its
// "email.ingested" event. A failure on one email never blocks the rest.
func (h *ArchiveIngestHandler) storeAndPublish(ctx context.Context, a *model.Archive, parsed []archive.ParsedEmail, log *zap.Logger) (stored, failed int) {
	for _, p := range parsed {
		e := &model.Email{
			ArchiveID:  a.ID,
			UserID:     a.UserID,
			MessageID:  p.MessageID,
			Subject:    p.Subject,
			Sender:     p.Sender,
			Recipients: p.Recipients,
			BodyText:   p.BodyText,
			SentAt:     p.SentAt,
			Status:     model.EmailStatusIngested,
		}
		if err := h.emails.Create(ctx, e); err != nil {
			log.Warn("Failed to store email", zap.String("message_id", p.MessageID), zap.Error(err))
			metrics.EmailsIngested.WithLabelValues(a.Format, "failed").Inc()
			failed++
			continue
		}

		event := contracts.EmailIngestedPayload{
			EmailID:    e.ID,
			ArchiveID:  a.ID,
			UserID:     a.UserID,
			Subject:    e.Subject,
			Body:       e.BodyText,
			IngestedAt: time.Now().UTC(),
		}
		if err := h.publisher.PublishWithContext(ctx, "email.ingested", event); err != nil {
			// Row is committed; downstream consumers will pick the email
			// up on the next archive replay or manual reprocess.
			log.Error("Failed to publish email.ingested", zap.Int64("email_id", e.ID), zap.Error(err))
		}

		metrics.EmailsIngested.WithLabelValues(a.Format, "ok").Inc()
		stored++
	}
	return stored, failed
}
