package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"mailvault/internal/model"
	"mailvault/internal/repository"
)

type EmailHandler struct {
	emails *repository.EmailRepository
	events *repository.EventRepository
	logger *zap.Logger
}

func NewEmailHandler(emails *repository.EmailRepository, events *repository.EventRepository, logger *zap.Logger) *EmailHandler {
	return &EmailHandler{emails: emails, events: events, logger: logger}
}

// List returns a page of the user's emails with classification metadata.
// Optional filters: category, status, limit, offset.
func (h *EmailHandler) List(c *gin.Context) {
	userID := c.GetInt64("user_id")

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	filter := repository.ListFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Limit:    limit,
		Offset:   offset,
	}

	emails, err := h.emails.ListWithMetadata(c.Request.Context(), userID, filter)
	if err != nil {
		h.logger.Error("ListEmails: failed to fetch emails",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch emails"})
		return
	}

	out := make([]gin.H, 0, len(emails))
	for i := range emails {
		out = append(out, emailSummaryResponse(&emails[i]))
	}
	c.JSON(http.StatusOK, gin.H{"emails": out})
}

// Get returns one email with its body, classification and any extracted
// calendar events.
func (h *EmailHandler) Get(c *gin.Context) {
	userID := c.GetInt64("user_id")

	emailID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email id"})
		return
	}

	email, meta, err := h.emails.FindWithMetadataByID(c.Request.Context(), emailID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
			return
		}
		h.logger.Error("GetEmail: failed to fetch email",
			zap.Int64("email_id", emailID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch email"})
		return
	}
	if email.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}

	events, err := h.events.ListByEmail(c.Request.Context(), emailID, userID)
	if err != nil {
		h.logger.Error("GetEmail: failed to fetch events",
			zap.Int64("email_id", emailID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email":  emailDetailResponse(email, meta),
		"events": eventResponses(events),
	})
}

func emailDetailResponse(e *model.Email, meta *model.EmailMetadata) gin.H {
	out := gin.H{
		"id":         e.ID,
		"archive_id": e.ArchiveID,
		"message_id": e.MessageID,
		"subject":    e.Subject,
		"sender":     e.Sender,
		"recipients": e.Recipients,
		"body":       e.BodyText,
		"sent_at":    e.SentAt,
		"status":     e.Status,
	}
	if meta != nil {
		out["category"] = meta.Category
		out["confidence"] = meta.Confidence
	}
	return out
}

func emailSummaryResponse(e *model.EmailWithMetadata) gin.H {
	out := gin.H{
		"id":         e.ID,
		"archive_id": e.ArchiveID,
		"subject":    e.Subject,
		"sender":     e.Sender,
		"sent_at":    e.SentAt,
		"status":     e.Status,
	}
	if e.Metadata != nil {
		out["category"] = e.Metadata.Category
		out["confidence"] = e.Metadata.Confidence
	}
	return out
}
