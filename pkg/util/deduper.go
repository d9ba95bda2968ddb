package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper suppresses duplicate event processing across worker instances
// with a Redis SetNX lock.
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce tries to acquire the dedup lock for handler + emailID.
// Returns true the first time, false for duplicates. When Redis is
// unavailable it returns true: the handlers are idempotent, so processing
// twice is safer than dropping work.
func (d *Deduper) AcquireOnce(ctx context.Context, handler string, emailID int64) bool {
	key := fmt.Sprintf("dedup:%s:%d", handler, emailID)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("Redis dedup check failed, allowing processing",
				zap.String("handler", handler),
				zap.Int64("email_id", emailID),
				zap.Error(err),
			)
		}
		return true
	}

	if !ok && d.logger != nil {
		d.logger.Info("Skipped duplicated event",
			zap.String("handler", handler),
			zap.Int64("email_id", emailID),
			zap.String("dedup_key", key),
		)
	}

	return ok
}

// Release drops the dedup lock so a requeued delivery can be processed
// again after a retryable failure.
func (d *Deduper) Release(ctx context.Context, handler string, emailID int64) {
	key := fmt.Sprintf("dedup:%s:%d", handler, emailID)

	if err := d.rdb.Del(ctx, key).Err(); err != nil && d.logger != nil {
		d.logger.Warn("Failed to release dedup lock",
			zap.String("dedup_key", key),
			zap.Error(err),
		)
	}
}
