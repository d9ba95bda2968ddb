package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailvault/internal/model"
	"mailvault/internal/repository"
)

type EventHandler struct {
	events *repository.EventRepository
	logger *zap.Logger
}

func NewEventHandler(events *repository.EventRepository, logger *zap.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

// ListByRange returns the user's calendar events between from and to
// (RFC 3339 or date-only). Defaults to the month around today.
func (h *EventHandler) ListByRange(c *gin.Context) {
	userID := c.GetInt64("user_id")

	now := time.Now().UTC()
	from := now.AddDate(0, -1, 0)
	to := now.AddDate(0, 1, 0)

	if raw := c.Query("from"); raw != "" {
		t, err := parseEventTime(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' timestamp"})
			return
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := parseEventTime(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'to' timestamp"})
			return
		}
		to = t
	}
	if !to.After(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'to' must be after 'from'"})
		return
	}

	events, err := h.events.ListByRange(c.Request.Context(), userID, from, to)
	if err != nil {
		h.logger.Error("ListEvents: failed to fetch events",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": eventResponses(events)})
}

// ListByEmail returns the events extracted from a single email.
func (h *EventHandler) ListByEmail(c *gin.Context) {
	userID := c.GetInt64("user_id")

	emailID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email id"})
		return
	}

	events, err := h.events.ListByEmail(c.Request.Context(), emailID, userID)
	if err != nil {
		h.logger.Error("ListEmailEvents: failed to fetch events",
			zap.Int64("email_id", emailID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": eventResponses(events)})
}

func parseEventTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func eventResponses(events []model.CalendarEvent) []gin.H {
	out := make([]gin.H, 0, len(events))
	for _, ev := range events {
		out = append(out, gin.H{
			"id":         ev.ID,
			"email_id":   ev.EmailID,
			"title":      ev.Title,
			"location":   ev.Location,
			"starts_at":  ev.StartsAt,
			"ends_at":    ev.EndsAt,
			"all_day":    ev.AllDay,
			"confidence": ev.Confidence,
		})
	}
	return out
}
