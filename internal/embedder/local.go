package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"strings"
)

// LocalProvider produces deterministic vectors from a hash of the
// normalized text. The vectors carry no semantics; identical text maps to
// identical vectors, which is enough for offline use and tests.
type LocalProvider struct {
	dimension int
	cache     *Cache
}

// NewLocalProvider creates a local embedder
func NewLocalProvider(cache *Cache) *LocalProvider {
	return &LocalProvider{
		dimension: DefaultDimension,
		cache:     cache,
	}
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := cacheKey(l.Model(), req.Text)
	if l.cache != nil {
		if emb, ok := l.cache.Get(key); ok {
			return emb, nil
		}
	}

	emb := &Embedding{
		Vector:    hashVector(req.Text, l.dimension),
		Dimension: l.dimension,
		Provider:  ProviderLocal,
		Model:     l.Model(),
		Hash:      ComputeHash(req.Text),
	}

	if l.cache != nil {
		l.cache.Set(key, emb)
	}
	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.Model(),
	}, nil
}

// hashVector expands a SHA-256 chain into dim components in [-1, 1]
// and normalizes the result.
func hashVector(text string, dim int) []float32 {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	vec := make([]float32, dim)

	block := sha256.Sum256([]byte(normalized))
	for i := 0; i < dim; i++ {
		off := (i * 2) % len(block)
		if i > 0 && off == 0 {
			block = sha256.Sum256(block[:])
		}
		u := binary.LittleEndian.Uint16(block[off:])
		vec[i] = float32(u)/32767.5 - 1
	}

	return NormalizeVector(vec)
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return "local-hash-v1"
}

func (l *LocalProvider) Close() error {
	return nil
}
