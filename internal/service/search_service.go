package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mailvault/internal/repository"
	"mailvault/internal/search"
	"mailvault/pkg/config"
	"mailvault/pkg/metrics"
	"mailvault/pkg/trace"
)

// corpusRefreshInterval bounds index staleness between event-driven
// refreshes. Newly indexed chunks appear at the next tick at the latest.
const corpusRefreshInterval = 30 * time.Second

type SearchService struct {
	index  *search.Index
	corpus *repository.CorpusRepository
	agent  *AgentClient
	logger *zap.Logger
}

func NewSearchService(cfg config.SearchConfig, corpus *repository.CorpusRepository, agent *AgentClient, logger *zap.Logger) *SearchService {
	ix := search.NewIndex(search.Weights{
		Keyword: cfg.KeywordWeight,
		BM25:    cfg.BM25Weight,
		Vector:  cfg.VectorWeight,
	})
	return &SearchService{index: ix, corpus: corpus, agent: agent, logger: logger}
}

// Refresh reloads the whole chunk corpus into the in-memory index.
func (s *SearchService) Refresh(ctx context.Context) error {
	docs, err := s.corpus.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	s.index.Replace(docs)
	s.logger.Debug("Search corpus refreshed", zap.Int("documents", len(docs)))
	return nil
}

// StartRefreshLoop reloads the corpus on a ticker until ctx is cancelled.
func (s *SearchService) StartRefreshLoop(ctx context.Context) {
	ticker := time.NewTicker(corpusRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error("Corpus refresh failed", zap.Error(err))
			}
		}
	}
}

// Search ranks the user's corpus for the query in the requested mode.
// Vector and hybrid modes embed the query through the agent service; if
// embedding fails the index degrades to its non-vector signals rather
// than failing the request.
func (s *SearchService) Search(ctx context.Context, userID int64, query string, mode search.Mode, limit int) ([]search.Result, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	start := time.Now()

	var queryVec []float32
	if mode == search.ModeVector || mode == search.ModeHybrid {
		vecs, err := s.agent.Embed(ctx, []string{query})
		if err != nil {
			s.logger.Warn("Query embedding failed, degrading to lexical search",
				zap.String("trace_id", trace.FromContext(ctx)),
				zap.Error(err))
		} else {
			queryVec = vecs[0]
		}
	}

	results := s.index.Search(userID, query, queryVec, mode, limit)
	metrics.RecordSearchLatency(string(mode), time.Since(start))

	return results, nil
}

// IndexSize reports the number of documents currently held, for readiness.
func (s *SearchService) IndexSize() int {
	return s.index.Size()
}

// Retrieve runs a hybrid search and assembles the citation context block
// for the RAG chat prompt.
func (s *SearchService) Retrieve(ctx context.Context, userID int64, query string, limit int) ([]search.Result, string, error) {
	results, err := s.Search(ctx, userID, query, search.ModeHybrid, limit)
	if err != nil {
		return nil, "", err
	}
	return results, search.AssembleContext(results, search.DefaultContextBudget), nil
}
