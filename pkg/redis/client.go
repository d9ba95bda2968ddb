package redis

import (
	"github.com/redis/go-redis/v9"

	"mailvault/pkg/config"
)

// NewClient builds the shared Redis client used for dedup, retry counting
// and the embedding cache.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
