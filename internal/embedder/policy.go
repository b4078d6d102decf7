package embedder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/postboard/internal/metrics"
	"github.com/dshills/postboard/pkg/types"
)

// DefaultPolicyTimeout bounds a single provider call made by the policy
const DefaultPolicyTimeout = 10 * time.Second

// Policy decides which vector, if any, is stored for a piece of text.
// A correctly sized caller vector wins; otherwise the provider is asked.
// The policy never fails: every problem degrades to "no embedding".
type Policy struct {
	embedder  Embedder
	timeout   time.Duration
	dimension int
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewPolicy creates a policy around emb, which may be nil
func NewPolicy(emb Embedder, timeout time.Duration, logger *zap.Logger) *Policy {
	if timeout <= 0 {
		timeout = DefaultPolicyTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{
		embedder:  emb,
		timeout:   timeout,
		dimension: types.EmbeddingDimension,
		logger:    logger,
		metrics:   metrics.Get(),
	}
}

// Apply returns the embedding to persist for text, or nil
func (p *Policy) Apply(ctx context.Context, text string, supplied []float32) []float32 {
	if len(supplied) == p.dimension {
		p.metrics.EmbeddingResult.WithLabelValues(metrics.EmbeddingSupplied).Inc()
		return supplied
	}
	if supplied != nil {
		p.logger.Warn("discarding supplied embedding with wrong dimension",
			zap.Int("got", len(supplied)),
			zap.Int("want", p.dimension))
	}

	return p.generate(ctx, text)
}

// Query resolves the vector used for a search query. Caller vectors go
// through the same dimension check as stored ones.
func (p *Policy) Query(ctx context.Context, query string, supplied []float32) []float32 {
	return p.Apply(ctx, query, supplied)
}

// Available reports whether a provider is configured
func (p *Policy) Available() bool {
	return p != nil && p.embedder != nil
}

// ApplyBatch resolves one vector per text like Apply, but asks the provider
// for all missing vectors with batch requests of at most MaxBatchSize texts.
// supplied may be shorter than texts; missing entries count as absent.
func (p *Policy) ApplyBatch(ctx context.Context, texts []string, supplied [][]float32) [][]float32 {
	out := make([][]float32, len(texts))
	pending := make([]int, 0, len(texts))
	for i, text := range texts {
		var given []float32
		if i < len(supplied) {
			given = supplied[i]
		}
		if len(given) == p.dimension {
			p.metrics.EmbeddingResult.WithLabelValues(metrics.EmbeddingSupplied).Inc()
			out[i] = given
			continue
		}
		if given != nil {
			p.logger.Warn("discarding supplied embedding with wrong dimension",
				zap.Int("index", i),
				zap.Int("got", len(given)),
				zap.Int("want", p.dimension))
		}
		if p.embedder == nil || strings.TrimSpace(text) == "" {
			p.metrics.EmbeddingResult.WithLabelValues(metrics.EmbeddingUnavailable).Inc()
			continue
		}
		pending = append(pending, i)
	}

	for start := 0; start < len(pending); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(pending))
		p.generateBatch(ctx, texts, pending[start:end], out)
	}
	return out
}

// generateBatch fills out[idx] for every idx with one provider batch call
func (p *Policy) generateBatch(ctx context.Context, texts []string, indexes []int, out [][]float32) {
	batch := make([]string, len(indexes))
	for j, idx := range indexes {
		batch[j] = texts[idx]
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.embedder.GenerateBatch(callCtx, BatchEmbeddingRequest{Texts: batch})
	if err == nil {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		if got != len(batch) {
			err = fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, got, len(batch))
		}
	}
	if err != nil {
		p.logger.Warn("embedding provider failed",
			zap.String("provider", p.embedder.Provider()),
			zap.Int("batch", len(batch)),
			zap.Error(err))
		p.metrics.EmbeddingResult.WithLabelValues(metrics.EmbeddingUnavailable).Add(float64(len(batch)))
		return
	}
	for j, idx := range indexes {
		out[idx] = p.accept(resp.Embeddings[j])
	}
}

func (p *Policy) generate(ctx context.Context, text string) []float32 {
	if p.embedder == nil || strings.TrimSpace(text) == "" {
		p.metrics.EmbeddingResult.WithLabelValues(metrics.EmbeddingUnavailable).Inc()
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	emb, err := p.embedder.GenerateEmbedding(callCtx, EmbeddingRequest{Text: text})
	if err != nil {
		p.logger.Warn("embedding provider failed",
			zap.String("provider", p.embedder.Provider()),
			zap.Error(err))
		p.metrics.EmbeddingResult.WithLabelValues(metrics.EmbeddingUnavailable).Inc()
		return nil
	}
	return p.accept(emb)
}

// accept keeps a generated vector only when it has the stored dimension
func (p *Policy) accept(emb *Embedding) []float32 {
	if emb == nil || len(emb.Vector) != p.dimension {
		got := 0
		if emb != nil {
			got = len(emb.Vector)
		}
		p.logger.Warn("discarding generated embedding with wrong dimension",
			zap.String("provider", p.embedder.Provider()),
			zap.Int("got", got),
			zap.Int("want", p.dimension))
		p.metrics.EmbeddingResult.WithLabelValues(metrics.EmbeddingDiscarded).Inc()
		return nil
	}

	p.metrics.EmbeddingResult.WithLabelValues(metrics.EmbeddingGenerated).Inc()
	return emb.Vector
}
