package embedder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// stubEmbedder returns a fixed vector or error and counts calls
type stubEmbedder struct {
	vector  []float32
	err     error
	delay   time.Duration
	calls   int
	batches []int
	// dropLast makes batch responses one embedding short
	dropLast bool
}

func (s *stubEmbedder) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &Embedding{Vector: s.vector, Dimension: len(s.vector)}, nil
}

func (s *stubEmbedder) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	s.batches = append(s.batches, len(req.Texts))
	if s.err != nil {
		return nil, s.err
	}
	n := len(req.Texts)
	if s.dropLast {
		n--
	}
	resp := &BatchEmbeddingResponse{Embeddings: make([]*Embedding, n), Provider: "stub"}
	for i := range resp.Embeddings {
		resp.Embeddings[i] = &Embedding{Vector: s.vector, Dimension: len(s.vector)}
	}
	return resp, nil
}

func (s *stubEmbedder) Dimension() int   { return len(s.vector) }
func (s *stubEmbedder) Provider() string { return "stub" }
func (s *stubEmbedder) Model() string    { return "stub" }
func (s *stubEmbedder) Close() error     { return nil }

func vec(n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(i%7) + 1
	}
	return v
}

func TestPolicyApply(t *testing.T) {
	ctx := context.Background()

	t.Run("supplied vector of right size is used verbatim", func(t *testing.T) {
		stub := &stubEmbedder{vector: vec(DefaultDimension)}
		p := NewPolicy(stub, time.Second, nil)
		supplied := vec(DefaultDimension)
		supplied[0] = 42

		got := p.Apply(ctx, "text", supplied)
		assert.Equal(t, supplied, got)
		assert.Equal(t, 0, stub.calls)
	})

	t.Run("wrong size supplied vector falls through to provider", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		stub := &stubEmbedder{vector: vec(DefaultDimension)}
		p := NewPolicy(stub, time.Second, zap.New(core))

		got := p.Apply(ctx, "text", vec(10))
		assert.Len(t, got, DefaultDimension)
		assert.Equal(t, 1, stub.calls)
		assert.Equal(t, 1, logs.FilterMessage("discarding supplied embedding with wrong dimension").Len())
	})

	t.Run("provider result of wrong size is discarded", func(t *testing.T) {
		p := NewPolicy(&stubEmbedder{vector: vec(1536)}, time.Second, nil)
		assert.Nil(t, p.Apply(ctx, "text", nil))
	})

	t.Run("provider failure yields nil", func(t *testing.T) {
		p := NewPolicy(&stubEmbedder{err: errors.New("boom")}, time.Second, nil)
		assert.Nil(t, p.Apply(ctx, "text", nil))
	})

	t.Run("blank text skips provider", func(t *testing.T) {
		stub := &stubEmbedder{vector: vec(DefaultDimension)}
		p := NewPolicy(stub, time.Second, nil)
		assert.Nil(t, p.Apply(ctx, "   ", nil))
		assert.Equal(t, 0, stub.calls)
	})

	t.Run("no provider", func(t *testing.T) {
		p := NewPolicy(nil, 0, nil)
		assert.False(t, p.Available())
		assert.Nil(t, p.Apply(ctx, "text", nil))
		assert.Equal(t, vec(DefaultDimension), p.Apply(ctx, "text", vec(DefaultDimension)))
	})

	t.Run("provider call is bounded by timeout", func(t *testing.T) {
		stub := &stubEmbedder{vector: vec(DefaultDimension), delay: time.Second}
		p := NewPolicy(stub, 10*time.Millisecond, nil)

		start := time.Now()
		assert.Nil(t, p.Apply(ctx, "text", nil))
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})
}

func TestPolicyQuery(t *testing.T) {
	ctx := context.Background()
	stub := &stubEmbedder{vector: vec(DefaultDimension)}
	p := NewPolicy(stub, time.Second, nil)

	assert.Len(t, p.Query(ctx, "golang", vec(3)), DefaultDimension)
	assert.Equal(t, 1, stub.calls)
}

func TestPolicyApplyBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("supplied vectors skip the provider", func(t *testing.T) {
		stub := &stubEmbedder{vector: vec(DefaultDimension)}
		p := NewPolicy(stub, time.Second, nil)
		supplied := vec(DefaultDimension)
		supplied[0] = 42

		got := p.ApplyBatch(ctx,
			[]string{"a", "b", "   ", "d"},
			[][]float32{supplied, nil, nil, vec(5)})
		assert.Len(t, got, 4)
		assert.Equal(t, supplied, got[0])
		assert.Len(t, got[1], DefaultDimension)
		assert.Nil(t, got[2], "blank text stays absent")
		assert.Len(t, got[3], DefaultDimension, "wrong-sized vector is regenerated")
		assert.Equal(t, []int{2}, stub.batches)
	})

	t.Run("splits at the provider batch limit", func(t *testing.T) {
		stub := &stubEmbedder{vector: vec(DefaultDimension)}
		p := NewPolicy(stub, time.Second, nil)
		texts := make([]string, MaxBatchSize+5)
		for i := range texts {
			texts[i] = "text"
		}

		got := p.ApplyBatch(ctx, texts, nil)
		assert.Len(t, got, len(texts))
		assert.Equal(t, []int{MaxBatchSize, 5}, stub.batches)
	})

	t.Run("provider failure leaves the batch absent", func(t *testing.T) {
		p := NewPolicy(&stubEmbedder{err: errors.New("boom")}, time.Second, nil)
		got := p.ApplyBatch(ctx, []string{"a", "b"}, [][]float32{vec(DefaultDimension)})
		assert.Equal(t, vec(DefaultDimension), got[0])
		assert.Nil(t, got[1])
	})

	t.Run("short response is discarded", func(t *testing.T) {
		p := NewPolicy(&stubEmbedder{vector: vec(DefaultDimension), dropLast: true}, time.Second, nil)
		got := p.ApplyBatch(ctx, []string{"a", "b"}, nil)
		assert.Equal(t, [][]float32{nil, nil}, got)
	})

	t.Run("wrong dimension from provider is discarded", func(t *testing.T) {
		p := NewPolicy(&stubEmbedder{vector: vec(1536)}, time.Second, nil)
		assert.Equal(t, [][]float32{nil}, p.ApplyBatch(ctx, []string{"a"}, nil))
	})

	t.Run("no provider", func(t *testing.T) {
		p := NewPolicy(nil, 0, nil)
		assert.Equal(t, [][]float32{nil}, p.ApplyBatch(ctx, []string{"a"}, nil))
	})
}
