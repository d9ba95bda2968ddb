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

type ArchiveHandler struct {
	archives *service.ArchiveService
	logger   *zap.Logger
}

func NewArchiveHandler(archives *service.ArchiveService, logger *zap.Logger) *ArchiveHandler {
	return &ArchiveHandler{archives: archives, logger: logger}
}

// Upload accepts a multipart archive file and queues it for extraction.
func (h *ArchiveHandler) Upload(c *gin.Context) {
	userID := c.GetInt64("user_id")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' required"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Upload: failed to open multipart file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}
	defer f.Close()

	a, err := h.archives.Upload(c.Request.Context(), userID, fileHeader.Filename, f, fileHeader.Size)
	if err != nil {
		if errors.Is(err, service.ErrUnknownFormat) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Upload: failed to store archive",
			zap.Int64("user_id", userID),
			zap.String("filename", fileHeader.Filename),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store archive"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"archive": archiveResponse(a)})
}

func (h *ArchiveHandler) List(c *gin.Context) {
	userID := c.GetInt64("user_id")

	archives, err := h.archives.List(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("ListArchives: failed to fetch archives",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch archives"})
		return
	}

	out := make([]gin.H, 0, len(archives))
	for i := range archives {
		out = append(out, archiveResponse(&archives[i]))
	}
	c.JSON(http.StatusOK, gin.H{"archives": out})
}

func (h *ArchiveHandler) Get(c *gin.Context) {
	userID := c.GetInt64("user_id")

	archiveID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid archive id"})
		return
	}

	a, err := h.archives.Get(c.Request.Context(), archiveID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "archive not found"})
			return
		}
		h.logger.Error("GetArchive: failed to fetch archive",
			zap.Int64("archive_id", archiveID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch archive"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"archive": archiveResponse(a)})
}

func archiveResponse(a *model.Archive) gin.H {
	return gin.H{
		"id":           a.ID,
		"filename":     a.Filename,
		"format":       a.Format,
		"size_bytes":   a.SizeBytes,
		"status":       a.Status,
		"parsed_count": a.ParsedCount,
		"failed_count": a.FailedCount,
		"created_at":   a.CreatedAt,
	}
}
