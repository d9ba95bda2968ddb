package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"mailvault/internal/model"
	"mailvault/internal/service"
)

type ChatHandler struct {
	chat   *service.ChatService
	logger *zap.Logger
}

func NewChatHandler(chat *service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

func (h *ChatHandler) CreateConversation(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req struct {
		Title string `json:"title"`
	}
	_ = c.ShouldBindJSON(&req)

	conv, err := h.chat.CreateConversation(c.Request.Context(), userID, req.Title)
	if err != nil {
		h.logger.Error("CreateConversation failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create conversation"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"conversation": conversationResponse(conv)})
}

func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID := c.GetInt64("user_id")

	conversations, err := h.chat.ListConversations(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("ListConversations failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch conversations"})
		return
	}

	out := make([]gin.H, 0, len(conversations))
	for i := range conversations {
		out = append(out, conversationResponse(&conversations[i]))
	}
	c.JSON(http.StatusOK, gin.H{"conversations": out})
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID := c.GetInt64("user_id")

	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	messages, err := h.chat.ListMessages(c.Request.Context(), conversationID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		h.logger.Error("ListMessages failed",
			zap.Int64("conversation_id", conversationID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch messages"})
		return
	}

	out := make([]gin.H, 0, len(messages))
	for i := range messages {
		out = append(out, messageResponse(&messages[i]))
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// SendMessage runs one RAG turn and returns the assistant answer with
// the source chunks it was grounded on.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID := c.GetInt64("user_id")

	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message content required"})
		return
	}

	answer, err := h.chat.SendMessage(c.Request.Context(), conversationID, userID, req.Content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		h.logger.Error("SendMessage failed",
			zap.Int64("conversation_id", conversationID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chat request failed"})
		return
	}

	sources := make([]gin.H, 0, len(answer.Sources))
	for _, r := range answer.Sources {
		sources = append(sources, gin.H{
			"email_id": r.Doc.EmailID,
			"subject":  r.Doc.Subject,
			"sender":   r.Doc.Sender,
			"sent_at":  r.Doc.SentAt,
			"score":    r.Score,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"message": messageResponse(answer.Message),
		"sources": sources,
	})
}

func conversationResponse(conv *model.Conversation) gin.H {
	return gin.H{
		"id":         conv.ID,
		"title":      conv.Title,
		"created_at": conv.CreatedAt,
	}
}

func messageResponse(m *model.Message) gin.H {
	return gin.H{
		"id":         m.ID,
		"role":       m.Role,
		"content":    m.Content,
		"created_at": m.CreatedAt,
	}
}
