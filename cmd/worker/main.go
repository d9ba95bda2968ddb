package main

import (
	"time"

	"go.uber.org/zap"

	"mailvault/internal/mqhandler"
	"mailvault/internal/repository"
	"mailvault/internal/service"
	"mailvault/internal/storage"
	"mailvault/pkg/config"
	"mailvault/pkg/db"
	"mailvault/pkg/logger"
	"mailvault/pkg/mq"
	"mailvault/pkg/redis"
	"mailvault/pkg/util"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Starting mailvault worker...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
	)

	// Redis
	rdb := redis.NewClient(cfg.Redis)
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, time.Hour, log)
	retryCounter := util.NewRetryCounter(rdb, time.Hour)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB connection failed", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("DB ready")

	// Object storage
	store, err := storage.NewObjectStore(cfg.MinIO, log)
	if err != nil {
		log.Fatal("Object storage init failed", zap.Error(err))
	}

	// MQ publisher (email.ingested fan-out + DLQ)
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("MQ publisher init failed", zap.Error(err))
	}
	defer publisher.Close()

	if err := publisher.EnsureDLQQueues("archive.uploaded", "email.ingested"); err != nil {
		log.Fatal("DLQ queue declaration failed", zap.Error(err))
	}

	// Repositories
	archiveRepo := repository.NewArchiveRepository(dbConn)
	emailRepo := repository.NewEmailRepository(dbConn)
	metadataRepo := repository.NewMetadataRepository(dbConn)
	eventRepo := repository.NewEventRepository(dbConn)
	chunkRepo := repository.NewChunkRepository(dbConn)

	// Agent client
	agentClient := service.NewAgentClient(cfg.Agent)

	// Handlers
	ingestHandler := mqhandler.NewArchiveIngestHandler(archiveRepo, emailRepo, store, publisher, log)
	classifyHandler := mqhandler.NewClassifyHandler(emailRepo, metadataRepo, agentClient, deduper, retryCounter, publisher, log)
	eventHandler := mqhandler.NewEventExtractHandler(emailRepo, eventRepo, agentClient, deduper, retryCounter, publisher, log)
	indexHandler := mqhandler.NewIndexHandler(chunkRepo, agentClient, rdb, deduper, retryCounter, publisher, log)

	// -------------------------
	// Archive ingest consumer
	// -------------------------
	log.Info("Init consumer: archive.uploaded.ingest.q")
	ingestConsumer, err := mq.NewConsumer(cfg.MQ.URL, "archive.uploaded.ingest.q", "archive.uploaded", log)
	if err != nil {
		log.Fatal("Ingest consumer init failed", zap.Error(err))
	}
	defer ingestConsumer.Close()
	ingestConsumer.SetHandler(ingestHandler.Handle)
	go func() {
		if err := ingestConsumer.StartConsuming(); err != nil {
			log.Fatal("Ingest consumer crashed", zap.Error(err))
		}
	}()

	// -------------------------
	// Classification consumer
	// -------------------------
	log.Info("Init consumer: email.ingested.classify.q")
	classifyConsumer, err := mq.NewConsumer(cfg.MQ.URL, "email.ingested.classify.q", "email.ingested", log)
	if err != nil {
		log.Fatal("Classify consumer init failed", zap.Error(err))
	}
	defer classifyConsumer.Close()
	classifyConsumer.SetHandler(classifyHandler.Handle)
	go func() {
		if err := classifyConsumer.StartConsuming(); err != nil {
			log.Fatal("Classify consumer crashed", zap.Error(err))
		}
	}()

	// -------------------------
	// Calendar event consumer
	// -------------------------
	log.Info("Init consumer: email.ingested.events.q")
	eventConsumer, err := mq.NewConsumer(cfg.MQ.URL, "email.ingested.events.q", "email.ingested", log)
	if err != nil {
		log.Fatal("Event consumer init failed", zap.Error(err))
	}
	defer eventConsumer.Close()
	eventConsumer.SetHandler(eventHandler.Handle)
	go func() {
		if err := eventConsumer.StartConsuming(); err != nil {
			log.Fatal("Event consumer crashed", zap.Error(err))
		}
	}()

	// -------------------------
	// Chunk index consumer
	// -------------------------
	log.Info("Init consumer: email.ingested.index.q")
	indexConsumer, err := mq.NewConsumer(cfg.MQ.URL, "email.ingested.index.q", "email.ingested", log)
	if err != nil {
		log.Fatal("Index consumer init failed", zap.Error(err))
	}
	defer indexConsumer.Close()
	indexConsumer.SetHandler(indexHandler.Handle)
	go func() {
		if err := indexConsumer.StartConsuming(); err != nil {
			log.Fatal("Index consumer crashed", zap.Error(err))
		}
	}()

	log.Info("All consumers running")
	select {}
}
