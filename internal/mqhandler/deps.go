package mqhandler

import (
	"context"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"mailvault/internal/model"
	"mailvault/internal/service"
)

// Consumer-side views of the stores and clients the handlers depend on.
// The concrete repository, service, storage, mq and util types satisfy
// them; tests inject hand-written fakes.

type archiveStore interface {
	Get(ctx context.Context, id int64) (*model.Archive, error)
	MarkIngested(ctx context.Context, id int64, parsed, failed int) error
	MarkFailed(ctx context.Context, id int64) error
}

type emailStore interface {
	Create(ctx context.Context, e *model.Email) error
	FindByID(ctx context.Context, id int64) (*model.Email, error)
	FindWithMetadataByID(ctx context.Context, id int64) (*model.Email, *model.EmailMetadata, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

type metadataStore interface {
	Insert(ctx context.Context, emailID int64, category string, confidence float64) error
	InsertFailure(ctx context.Context, emailID int64, reason string) error
}

type eventStore interface {
	Insert(ctx context.Context, ev *model.CalendarEvent) error
	ExistsForEmail(ctx context.Context, emailID int64) (bool, error)
}

type chunkStore interface {
	Insert(ctx context.Context, c *model.RagChunk) error
	ExistsForEmail(ctx context.Context, emailID int64) (bool, error)
}

type objectGetter interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

type agentCaller interface {
	ClassifyEmail(ctx context.Context, subject, body string) (*service.Classification, error)
	ExtractEvents(ctx context.Context, subject, body string, sentAt *time.Time) ([]service.ExtractedEvent, error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type eventPublisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
	PublishToDLQ(routingKey string, payload []byte, originalError string) error
}

type dedupLocker interface {
	AcquireOnce(ctx context.Context, handler string, emailID int64) bool
	Release(ctx context.Context, handler string, emailID int64)
}

type retryBudget interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// redisCache is the slice of the go-redis client the embedding cache uses.
type redisCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}
