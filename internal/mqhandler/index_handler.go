package mqhandler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	contracts "mailvault/contracts/mq"
	"mailvault/internal/model"
	"mailvault/internal/search"
	"mailvault/pkg/metrics"
	"mailvault/pkg/trace"
	"mailvault/pkg/util"
)

// embeddingCacheTTL bounds how long cached chunk embeddings live in
// Redis. Identical chunk text across replays hits the cache instead of
// the embedding endpoint.
const embeddingCacheTTL = 24 * time.Hour

// IndexHandler consumes "email.ingested" on the index queue: it chunks
// the email body, embeds each chunk and stores the chunks for retrieval.
type IndexHandler struct {
	chunks    chunkStore
	agent     agentCaller
	rdb       redisCache
	deduper   dedupLocker
	retries   retryBudget
	publisher eventPublisher
	logger    *zap.Logger
}

func NewIndexHandler(
	chunks chunkStore,
	agent agentCaller,
	rdb redisCache,
	deduper dedupLocker,
	retries retryBudget,
	publisher eventPublisher,
	logger *zap.Logger,
) *IndexHandler {
	return &IndexHandler{
		chunks:    chunks,
		agent:     agent,
		rdb:       rdb,
		deduper:   deduper,
		retries:   retries,
		publisher: publisher,
		logger:    logger,
	}
}

func (h *IndexHandler) Handle(ctx context.Context, data json.RawMessage) error {
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

	exists, err := h.chunks.ExistsForEmail(ctx, payload.EmailID)
	if err != nil {
		return fmt.Errorf("check chunks for email %d: %w", payload.EmailID, err)
	}
	if exists {
		log.Info("Email already indexed, skipping")
		return nil
	}

	pieces := search.SplitChunks(payload.Body, search.DefaultChunkSize, search.DefaultChunkOverlap)
	if len(pieces) == 0 {
		log.Info("Empty email body, nothing to index")
		return nil
	}

	if !h.deduper.AcquireOnce(ctx, "index", payload.EmailID) {
		return nil
	}

	embeddings, err := h.embedAll(ctx, pieces)
	if err != nil {
		return h.handleEmbedError(ctx, payload.EmailID, err, log)
	}

	stored := 0
	for i, content := range pieces {
		chunk := &model.RagChunk{
			EmailID:   payload.EmailID,
			UserID:    payload.UserID,
			Seq:       i,
			Content:   content,
			Embedding: embeddings[i],
		}
		if err := h.chunks.Insert(ctx, chunk); err != nil {
			log.Error("Failed to store chunk", zap.Int("seq", i), zap.Error(err))
			continue
		}
		metrics.ChunksIndexed.Inc()
		stored++
	}

	if err := h.retries.Reset(ctx, util.FormatRetryKey("index", payload.EmailID)); err != nil {
		log.Warn("Failed to reset retry counter", zap.Error(err))
	}

	log.Info("Email indexed", zap.Int("chunks", stored))
	return nil
}

// embedAll resolves chunk embeddings through the Redis content-hash
// cache, batching only the misses to the embedding endpoint.
func (h *IndexHandler) embedAll(ctx context.Context, pieces []string) ([][]float32, error) {
	embeddings := make([][]float32, len(pieces))

	var missTexts []string
	var missIdx []int
	for i, content := range pieces {
		if vec, ok := h.cacheGet(ctx, content); ok {
			embeddings[i] = vec
			continue
		}
		missTexts = append(missTexts, content)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		vecs, err := h.agent.Embed(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vec := range vecs {
			embeddings[missIdx[j]] = vec
			h.cacheSet(ctx, missTexts[j], vec)
		}
	}

	return embeddings, nil
}

func embeddingCacheKey(content string) string {
	sum := sha256.Sum256([]byte(content))
	return "emb:" + hex.EncodeToString(sum[:])
}

func (h *IndexHandler) cacheGet(ctx context.Context, content string) ([]float32, bool) {
	raw, err := h.rdb.Get(ctx, embeddingCacheKey(content)).Bytes()
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (h *IndexHandler) cacheSet(ctx context.Context, content string, vec []float32) {
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := h.rdb.Set(ctx, embeddingCacheKey(content), raw, embeddingCacheTTL).Err(); err != nil {
		h.logger.Warn("Failed to cache embedding", zap.Error(err))
	}
}

func (h *IndexHandler) handleEmbedError(ctx context.Context, emailID int64, cause error, log *zap.Logger) error {
	retryable, reason := util.IsRetryableError(cause)
	if !retryable {
		log.Error("Embedding failed permanently, email stays unindexed",
			zap.String("reason", reason),
			zap.Error(cause))
		return nil
	}

	retryKey := util.FormatRetryKey("index", emailID)
	count, err := h.retries.IncrementAndGet(ctx, retryKey)
	if err != nil {
		log.Warn("Retry counter unavailable, requeueing anyway", zap.Error(err))
		count = 0
	}
	if util.ShouldRetry(count, maxHandlerRetries, retryable) {
		h.deduper.Release(ctx, "index", emailID)
		log.Warn("Embedding failed, requeueing",
			zap.Int64("attempt", count),
			zap.Error(cause))
		return fmt.Errorf("embed chunks for email %d: %w", emailID, cause)
	}

	log.Error("Embedding retries exhausted, email stays unindexed",
		zap.Int64("attempts", count),
		zap.Error(cause))
	return nil
}
