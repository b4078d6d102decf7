package embedder

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHash(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		ComputeHash(""))
	assert.Equal(t,
		"b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		ComputeHash("hello world"))
	assert.Equal(t, ComputeHash("post"), ComputeHash("post"))
}

func TestCacheKeyScopesByModel(t *testing.T) {
	assert.NotEqual(t, cacheKey("a", "text"), cacheKey("b", "text"))
	assert.Equal(t, cacheKey("a", "text"), cacheKey("a", "text"))
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     EmbeddingRequest
		wantErr error
	}{
		{name: "valid request", req: EmbeddingRequest{Text: "post body"}},
		{name: "empty text", req: EmbeddingRequest{Text: ""}, wantErr: ErrEmptyText},
		{name: "whitespace only", req: EmbeddingRequest{Text: " \n\t"}, wantErr: ErrEmptyText},
		{name: "with model", req: EmbeddingRequest{Text: "test", Model: "custom-model"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateBatchRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     BatchEmbeddingRequest
		wantErr error
	}{
		{name: "valid batch", req: BatchEmbeddingRequest{Texts: []string{"text1", "text2"}}},
		{name: "empty batch", req: BatchEmbeddingRequest{Texts: []string{}}, wantErr: ErrInvalidInput},
		{name: "contains empty text", req: BatchEmbeddingRequest{Texts: []string{"a", " ", "c"}}, wantErr: ErrInvalidInput},
		{name: "too large", req: BatchEmbeddingRequest{Texts: make([]string, MaxBatchSize+1)}, wantErr: ErrBatchTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatchRequest(tt.req)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCache(t *testing.T) {
	t.Run("basic operations", func(t *testing.T) {
		cache := NewCache(3)

		_, ok := cache.Get("nonexistent")
		assert.False(t, ok)

		cache.Set("k1", &Embedding{Vector: []float32{1, 2, 3}, Dimension: 3, Hash: "h1"})
		got, ok := cache.Get("k1")
		require.True(t, ok)
		assert.Equal(t, "h1", got.Hash)
		assert.Equal(t, 1, cache.Size())
	})

	t.Run("returned vector is a copy", func(t *testing.T) {
		cache := NewCache(3)
		cache.Set("k", &Embedding{Vector: []float32{1, 2, 3}})

		got, _ := cache.Get("k")
		got.Vector[0] = 99

		again, _ := cache.Get("k")
		assert.Equal(t, float32(1), again.Vector[0])
	})

	t.Run("lru eviction", func(t *testing.T) {
		cache := NewCache(2)
		cache.Set("k1", &Embedding{Hash: "1"})
		cache.Set("k2", &Embedding{Hash: "2"})
		cache.Set("k3", &Embedding{Hash: "3"})

		assert.Equal(t, 2, cache.Size())
		_, ok := cache.Get("k1")
		assert.False(t, ok, "oldest entry evicted")
		_, ok = cache.Get("k3")
		assert.True(t, ok)
	})

	t.Run("clear", func(t *testing.T) {
		cache := NewCache(10)
		cache.Set("k1", &Embedding{})
		cache.Clear()
		assert.Equal(t, 0, cache.Size())
	})

	t.Run("concurrent access", func(t *testing.T) {
		cache := NewCache(100)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					key := fmt.Sprintf("k-%d-%d", id, j)
					cache.Set(key, &Embedding{Vector: []float32{float32(id)}})
					cache.Get(key)
				}
			}(i)
		}
		wg.Wait()
		assert.Greater(t, cache.Size(), 0)
	})
}

func TestLocalProvider(t *testing.T) {
	provider := NewLocalProvider(NewCache(10))
	defer func() { _ = provider.Close() }()
	ctx := context.Background()

	assert.Equal(t, ProviderLocal, provider.Provider())
	assert.Equal(t, DefaultDimension, provider.Dimension())
	assert.NotEmpty(t, provider.Model())

	t.Run("deterministic unit vectors", func(t *testing.T) {
		a, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "Hello   World"})
		require.NoError(t, err)
		b, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello world"})
		require.NoError(t, err)
		c, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "something else"})
		require.NoError(t, err)

		require.Len(t, a.Vector, DefaultDimension)
		assert.Equal(t, a.Vector, b.Vector, "whitespace and case are normalized")
		assert.NotEqual(t, a.Vector, c.Vector)

		var sum float64
		for _, v := range a.Vector {
			sum += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)
	})

	t.Run("batch", func(t *testing.T) {
		resp, err := provider.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a", "b", "c"}})
		require.NoError(t, err)
		assert.Len(t, resp.Embeddings, 3)
	})

	t.Run("validation and cancellation", func(t *testing.T) {
		_, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: ""})
		assert.ErrorIs(t, err, ErrEmptyText)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = provider.GenerateEmbedding(cctx, EmbeddingRequest{Text: "x"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNormalizeVector(t *testing.T) {
	got := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, got[0], 1e-6)
	assert.InDelta(t, 0.8, got[1], 1e-6)

	zero := []float32{0, 0}
	assert.Equal(t, zero, NormalizeVector(zero))
}
