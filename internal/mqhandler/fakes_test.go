package mqhandler

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"mailvault/internal/model"
	"mailvault/internal/service"
)

type fakeEmailStore struct {
	email     *model.Email
	meta      *model.EmailMetadata
	findErr   error
	created   []*model.Email
	createErr error
	statuses  map[int64]string
}

func (f *fakeEmailStore) Create(_ context.Context, e *model.Email) error {
	if f.createErr != nil {
		return f.createErr
	}
	e.ID = int64(len(f.created) + 1)
	f.created = append(f.created, e)
	return nil
}

func (f *fakeEmailStore) FindByID(context.Context, int64) (*model.Email, error) {
	return f.email, f.findErr
}

func (f *fakeEmailStore) FindWithMetadataByID(context.Context, int64) (*model.Email, *model.EmailMetadata, error) {
	return f.email, f.meta, f.findErr
}

func (f *fakeEmailStore) UpdateStatus(_ context.Context, id int64, status string) error {
	if f.statuses == nil {
		f.statuses = map[int64]string{}
	}
	f.statuses[id] = status
	return nil
}

type classifiedRow struct {
	emailID    int64
	category   string
	confidence float64
}

type fakeMetadataStore struct {
	inserted  []classifiedRow
	insertErr error
	failures  []string
}

func (f *fakeMetadataStore) Insert(_ context.Context, emailID int64, category string, confidence float64) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, classifiedRow{emailID, category, confidence})
	return nil
}

func (f *fakeMetadataStore) InsertFailure(_ context.Context, _ int64, reason string) error {
	f.failures = append(f.failures, reason)
	return nil
}

type fakeEventStore struct {
	exists   bool
	inserted []*model.CalendarEvent
}

func (f *fakeEventStore) Insert(_ context.Context, ev *model.CalendarEvent) error {
	f.inserted = append(f.inserted, ev)
	return nil
}

func (f *fakeEventStore) ExistsForEmail(context.Context, int64) (bool, error) {
	return f.exists, nil
}

type fakeChunkStore struct {
	exists   bool
	inserted []*model.RagChunk
}

func (f *fakeChunkStore) Insert(_ context.Context, c *model.RagChunk) error {
	f.inserted = append(f.inserted, c)
	return nil
}

func (f *fakeChunkStore) ExistsForEmail(context.Context, int64) (bool, error) {
	return f.exists, nil
}

type fakeArchiveStore struct {
	archive      *model.Archive
	getErr       error
	ingestedWith []int
	markedFailed bool
}

func (f *fakeArchiveStore) Get(context.Context, int64) (*model.Archive, error) {
	return f.archive, f.getErr
}

func (f *fakeArchiveStore) MarkIngested(_ context.Context, _ int64, parsed, failed int) error {
	f.ingestedWith = []int{parsed, failed}
	return nil
}

func (f *fakeArchiveStore) MarkFailed(context.Context, int64) error {
	f.markedFailed = true
	return nil
}

type fakeObjectGetter struct {
	data []byte
	err  error
}

func (f *fakeObjectGetter) Get(context.Context, string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

type fakeAgent struct {
	classification *service.Classification
	classifyErr    error
	classifyCalls  int

	events     []service.ExtractedEvent
	extractErr error

	embeddings [][]float32
	embedErr   error
}

func (f *fakeAgent) ClassifyEmail(context.Context, string, string) (*service.Classification, error) {
	f.classifyCalls++
	return f.classification, f.classifyErr
}

func (f *fakeAgent) ExtractEvents(context.Context, string, string, *time.Time) ([]service.ExtractedEvent, error) {
	return f.events, f.extractErr
}

func (f *fakeAgent) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	if f.embeddings != nil {
		return f.embeddings, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

type publishedEvent struct {
	routingKey string
	payload    any
}

type dlqEvent struct {
	routingKey string
	body       []byte
	reason     string
}

type fakePublisher struct {
	published []publishedEvent
	dlq       []dlqEvent
}

func (f *fakePublisher) PublishWithContext(_ context.Context, routingKey string, payload any) error {
	f.published = append(f.published, publishedEvent{routingKey, payload})
	return nil
}

func (f *fakePublisher) PublishToDLQ(routingKey string, body []byte, reason string) error {
	f.dlq = append(f.dlq, dlqEvent{routingKey, body, reason})
	return nil
}

type fakeDeduper struct {
	blocked  bool
	releases int
}

func (f *fakeDeduper) AcquireOnce(context.Context, string, int64) bool {
	return !f.blocked
}

func (f *fakeDeduper) Release(context.Context, string, int64) {
	f.releases++
}

type fakeRetries struct {
	count  int64
	incErr error
	resets []string
}

func (f *fakeRetries) IncrementAndGet(context.Context, string) (int64, error) {
	if f.incErr != nil {
		return 0, f.incErr
	}
	f.count++
	return f.count, nil
}

func (f *fakeRetries) Reset(_ context.Context, key string) error {
	f.resets = append(f.resets, key)
	return nil
}

// fakeRedisCache always misses on Get and records Sets, mirroring a cold
// embedding cache.
type fakeRedisCache struct {
	sets int
}

func (f *fakeRedisCache) Get(ctx context.Context, key string) *redis.StringCmd {
	return redis.NewStringResult("", redis.Nil)
}

func (f *fakeRedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.sets++
	return redis.NewStatusResult("OK", nil)
}
