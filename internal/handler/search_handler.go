package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailvault/internal/search"
	"mailvault/internal/service"
)

type SearchHandler struct {
	searcher *service.SearchService
	logger   *zap.Logger
}

func NewSearchHandler(searcher *service.SearchService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{searcher: searcher, logger: logger}
}

// Search ranks the user's corpus for q. Query params: q (required),
// mode (keyword|bm25|vector|hybrid, default hybrid), limit.
func (h *SearchHandler) Search(c *gin.Context) {
	userID := c.GetInt64("user_id")

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' required"})
		return
	}

	mode, ok := search.ParseMode(c.Query("mode"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be keyword, bm25, vector or hybrid"})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	results, err := h.searcher.Search(c.Request.Context(), userID, query, mode, limit)
	if err != nil {
		h.logger.Error("Search failed",
			zap.Int64("user_id", userID),
			zap.String("mode", string(mode)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	out := make([]gin.H, 0, len(results))
	for _, r := range results {
		out = append(out, gin.H{
			"email_id": r.Doc.EmailID,
			"chunk_id": r.Doc.ChunkID,
			"subject":  r.Doc.Subject,
			"sender":   r.Doc.Sender,
			"sent_at":  r.Doc.SentAt,
			"snippet":  r.Doc.Content,
			"score":    r.Score,
			"scores": gin.H{
				"keyword": r.Keyword,
				"bm25":    r.BM25,
				"vector":  r.Vector,
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"mode":    string(mode),
		"results": out,
	})
}
