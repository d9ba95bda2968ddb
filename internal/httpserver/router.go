package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mailvault/internal/handler"
	"mailvault/internal/service"
	"mailvault/pkg/mq"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth    *handler.AuthHandler
	Archive *handler.ArchiveHandler
	Email   *handler.EmailHandler
	Event   *handler.EventHandler
	Search  *handler.SearchHandler
	Chat    *handler.ChatHandler
	Outbox  *handler.OutboxHandler
}

func NewRouter(
	h Handlers,
	searcher *service.SearchService,
	jwtSecret string,
	logger *zap.Logger,
	db *pgxpool.Pool,
	publisher *mq.Publisher,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(RequestLogMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		if publisher != nil && !publisher.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{
			"status":     "ready",
			"index_size": searcher.IndexSize(),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/register", h.Auth.Register)
	r.POST("/login", h.Auth.Login)

	api := r.Group("/api")
	api.Use(AuthMiddleware(jwtSecret, logger))
	{
		api.POST("/archives", h.Archive.Upload)
		api.GET("/archives", h.Archive.List)
		api.GET("/archives/:id", h.Archive.Get)

		api.GET("/emails", h.Email.List)
		api.GET("/emails/:id", h.Email.Get)
		api.GET("/emails/:id/events", h.Event.ListByEmail)

		api.GET("/events", h.Event.ListByRange)

		api.GET("/search", h.Search.Search)

		api.POST("/conversations", h.Chat.CreateConversation)
		api.GET("/conversations", h.Chat.ListConversations)
		api.GET("/conversations/:id/messages", h.Chat.ListMessages)
		api.POST("/conversations/:id/messages", h.Chat.SendMessage)

		api.POST("/admin/outbox/replay/:id", h.Outbox.ReplayEvent)
		api.POST("/admin/outbox/replay-failed", h.Outbox.ReplayFailed)
	}

	return r
}
