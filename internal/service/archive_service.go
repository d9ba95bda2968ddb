package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	contracts "mailvault/contracts/mq"
	"mailvault/internal/archive"
	"mailvault/internal/model"
	"mailvault/internal/repository"
	"mailvault/internal/storage"
	"mailvault/pkg/outbox"
	"mailvault/pkg/trace"
)

// MaxArchiveSize caps uploads at 200 MiB.
const MaxArchiveSize = 200 << 20

var ErrUnknownFormat = errors.New("unsupported archive format, expected pst, eml or json")

type ArchiveService struct {
	db       *pgxpool.Pool
	archives *repository.ArchiveRepository
	outbox   *outbox.Repository
	store    *storage.ObjectStore
	logger   *zap.Logger
}

func NewArchiveService(
	db *pgxpool.Pool,
	archives *repository.ArchiveRepository,
	outboxRepo *outbox.Repository,
	store *storage.ObjectStore,
	logger *zap.Logger,
) *ArchiveService {
	return &ArchiveService{
		db:       db,
		archives: archives,
		outbox:   outboxRepo,
		store:    store,
		logger:   logger,
	}
}

// Upload stores the archive file in object storage, then commits the
// archive row and its "archive.uploaded" outbox event in one transaction.
// If the transaction fails the object is deleted, so storage never holds
// files Postgres does not know about.
func (s *ArchiveService) Upload(ctx context.Context, userID int64, filename string, file io.ReadSeeker, size int64) (*model.Archive, error) {
	if size <= 0 || size > MaxArchiveSize {
		return nil, fmt.Errorf("archive size %d out of range (max %d bytes)", size, int64(MaxArchiveSize))
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read archive head: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind archive: %w", err)
	}

	format, ok := archive.DetectFormat(filename, head[:n])
	if !ok {
		return nil, ErrUnknownFormat
	}

	objectKey := fmt.Sprintf("archives/%d/%s%s", userID, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
	if err := s.store.Put(ctx, objectKey, file, size, "application/octet-stream"); err != nil {
		return nil, fmt.Errorf("store archive: %w", err)
	}

	a := &model.Archive{
		UserID:    userID,
		Filename:  filepath.Base(filename),
		Format:    format,
		ObjectKey: objectKey,
		SizeBytes: size,
		Status:    model.ArchiveStatusUploaded,
	}

	if err := s.commitUpload(ctx, a); err != nil {
		if delErr := s.store.Delete(ctx, objectKey); delErr != nil {
			s.logger.Warn("Failed to roll back orphaned object",
				zap.String("object_key", objectKey),
				zap.Error(delErr))
		}
		return nil, err
	}

	s.logger.Info("Archive uploaded",
		zap.String("trace_id", trace.FromContext(ctx)),
		zap.Int64("archive_id", a.ID),
		zap.Int64("user_id", userID),
		zap.String("format", format),
		zap.Int64("size_bytes", size))

	return a, nil
}

func (s *ArchiveService) commitUpload(ctx context.Context, a *model.Archive) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upload transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.archives.CreateInTx(ctx, tx, a); err != nil {
		return fmt.Errorf("insert archive: %w", err)
	}

	payload := contracts.ArchiveUploadedPayload{
		ArchiveID:  a.ID,
		UserID:     a.UserID,
		ObjectKey:  a.ObjectKey,
		Filename:   a.Filename,
		Format:     a.Format,
		UploadedAt: time.Now().UTC(),
	}
	if err := outbox.InsertEventInTx(ctx, tx, s.outbox, "archive", &a.ID, "archive.uploaded", payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	return tx.Commit(ctx)
}

// Get returns one archive owned by the user.
func (s *ArchiveService) Get(ctx context.Context, archiveID, userID int64) (*model.Archive, error) {
	return s.archives.FindByID(ctx, archiveID, userID)
}

// List returns the user's archives, newest first.
func (s *ArchiveService) List(ctx context.Context, userID int64) ([]model.Archive, error) {
	return s.archives.ListByUser(ctx, userID)
}
