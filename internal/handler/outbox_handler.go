package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailvault/pkg/outbox"
)

// OutboxHandler exposes operational replay of outbox events.
type OutboxHandler struct {
	replay *outbox.ReplayService
	logger *zap.Logger
}

func NewOutboxHandler(replay *outbox.ReplayService, logger *zap.Logger) *OutboxHandler {
	return &OutboxHandler{replay: replay, logger: logger}
}

// ReplayEvent re-publishes one outbox event by id.
func (h *OutboxHandler) ReplayEvent(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	if err := h.replay.ReplayEvent(c.Request.Context(), eventID); err != nil {
		h.logger.Error("ReplayEvent failed",
			zap.Int64("event_id", eventID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "replayed", "event_id": eventID})
}

// ReplayFailed re-publishes parked failed events, up to limit.
func (h *OutboxHandler) ReplayFailed(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	count, err := h.replay.ReplayFailedEvents(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("ReplayFailed failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "replayed", "count": count})
}
