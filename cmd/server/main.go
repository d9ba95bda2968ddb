package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mailvault/internal/handler"
	"mailvault/internal/httpserver"
	"mailvault/internal/repository"
	"mailvault/internal/service"
	"mailvault/internal/storage"
	"mailvault/pkg/config"
	"mailvault/pkg/db"
	"mailvault/pkg/logger"
	"mailvault/pkg/mq"
	"mailvault/pkg/outbox"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Starting mailvault server...",
		zap.String("port", cfg.Server.Port),
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established")

	// Object storage
	store, err := storage.NewObjectStore(cfg.MinIO, log)
	if err != nil {
		log.Fatal("Failed to init object storage", zap.Error(err))
	}
	log.Info("Object storage ready", zap.String("bucket", cfg.MinIO.Bucket))

	// MQ publisher + outbox dispatcher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	outboxRepo := outbox.NewRepository(dbConn)
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log)
	replayService := outbox.NewReplayService(outboxRepo, publisher)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go dispatcher.Start(ctx)
	log.Info("Outbox dispatcher started")

	// Repositories
	userRepo := repository.NewUserRepository(dbConn)
	archiveRepo := repository.NewArchiveRepository(dbConn)
	emailRepo := repository.NewEmailRepository(dbConn)
	eventRepo := repository.NewEventRepository(dbConn)
	conversationRepo := repository.NewConversationRepository(dbConn)
	corpusRepo := repository.NewCorpusRepository(dbConn)

	// Services
	agentClient := service.NewAgentClient(cfg.Agent)
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, log)
	archiveService := service.NewArchiveService(dbConn, archiveRepo, outboxRepo, store, log)
	searchService := service.NewSearchService(cfg.Search, corpusRepo, agentClient, log)
	chatService := service.NewChatService(conversationRepo, searchService, agentClient, log)

	if err := searchService.Refresh(ctx); err != nil {
		log.Warn("Initial corpus load failed, index starts empty", zap.Error(err))
	}
	go searchService.StartRefreshLoop(ctx)
	log.Info("Search index ready", zap.Int("documents", searchService.IndexSize()))

	router := httpserver.NewRouter(httpserver.Handlers{
		Auth:    handler.NewAuthHandler(authService, log),
		Archive: handler.NewArchiveHandler(archiveService, log),
		Email:   handler.NewEmailHandler(emailRepo, eventRepo, log),
		Event:   handler.NewEventHandler(eventRepo, log),
		Search:  handler.NewSearchHandler(searchService, log),
		Chat:    handler.NewChatHandler(chatService, log),
		Outbox:  handler.NewOutboxHandler(replayService, log),
	}, searchService, cfg.JWT.Secret, log, dbConn, publisher)

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Server stopped")
}
