package searcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/postboard/internal/embedder"
	"github.com/dshills/postboard/internal/metrics"
	"github.com/dshills/postboard/internal/similarity"
	"github.com/dshills/postboard/internal/storage"
	"github.com/dshills/postboard/pkg/types"
)

// Result limits
const (
	MinLimit     = 1
	MaxLimit     = 50
	DefaultLimit = 10
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query     string
	Limit     int
	Embedding []float32 // Optional caller-supplied query vector
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results      []types.SearchResult
	FallbackUsed bool
	Source       types.SearchSource
	Duration     time.Duration
}

// Store is the part of storage the searcher reads from
type Store interface {
	SearchVector(ctx context.Context, vector []float32, limit int) ([]storage.VectorResult, error)
	SearchText(ctx context.Context, query string, limit int) ([]*types.Post, error)
}

// Searcher runs hybrid search: nearest-neighbour over post embeddings,
// falling back to lexical matching whenever the vector path yields nothing.
type Searcher struct {
	store   Store
	policy  *embedder.Policy
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewSearcher creates a new Searcher instance
func NewSearcher(store Store, policy *embedder.Policy, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = embedder.NewPolicy(nil, 0, logger)
	}
	return &Searcher{
		store:   store,
		policy:  policy,
		logger:  logger,
		metrics: metrics.Get(),
	}
}

// Search performs a hybrid search. Provider problems only weaken ranking;
// store errors are returned.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	response, err := s.search(ctx, req)
	if err != nil {
		return nil, err
	}

	response.Duration = time.Since(startTime)
	s.metrics.SearchRequests.WithLabelValues(string(response.Source)).Inc()
	s.metrics.SearchDuration.Observe(response.Duration.Seconds())

	s.logger.Debug("search completed",
		zap.String("query", req.Query),
		zap.Int("limit", req.Limit),
		zap.Int("results", len(response.Results)),
		zap.String("source", string(response.Source)),
		zap.Bool("fallback", response.FallbackUsed),
		zap.Duration("duration", response.Duration))

	return response, nil
}

func (s *Searcher) search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	queryVec := s.policy.Query(ctx, req.Query, req.Embedding)

	if queryVec != nil {
		hits, err := s.store.SearchVector(ctx, queryVec, req.Limit)
		if err != nil {
			return nil, fmt.Errorf("vector search failed: %w", err)
		}
		if len(hits) > 0 {
			return &SearchResponse{
				Results:      vectorResults(queryVec, hits),
				FallbackUsed: false,
				Source:       types.SourceEmbeddings,
			}, nil
		}
	}

	posts, err := s.store.SearchText(ctx, req.Query, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("text search failed: %w", err)
	}

	return &SearchResponse{
		Results:      lexicalResults(posts),
		FallbackUsed: true,
		Source:       types.SourceLexical,
	}, nil
}

// vectorResults keeps store order and attaches the cosine score of each hit
func vectorResults(query []float32, hits []storage.VectorResult) []types.SearchResult {
	results := make([]types.SearchResult, 0, len(hits))
	for _, hit := range hits {
		r := toResult(hit.Post)
		r.Similarity = similarity.CosinePtr(query, hit.Post.Embedding)
		results = append(results, r)
	}
	return results
}

func lexicalResults(posts []*types.Post) []types.SearchResult {
	results := make([]types.SearchResult, 0, len(posts))
	for _, p := range posts {
		results = append(results, toResult(p))
	}
	return results
}

func toResult(p *types.Post) types.SearchResult {
	return types.SearchResult{
		Slug:      p.Slug,
		Title:     p.Title,
		Snippet:   types.Snippet(p.Content),
		CreatedAt: p.CreatedAt,
	}
}

// validateRequest validates and normalizes search request parameters
func (s *Searcher) validateRequest(req *SearchRequest) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return fmt.Errorf("%w: query cannot be empty", types.ErrInvalidInput)
	}
	req.Limit = ClampLimit(req.Limit)
	return nil
}

// ClampLimit forces limit into [MinLimit, MaxLimit]
func ClampLimit(limit int) int {
	if limit < MinLimit {
		return MinLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
