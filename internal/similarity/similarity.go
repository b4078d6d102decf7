// Package similarity holds the vector math shared by storage, embedding and search.
package similarity

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/dshills/postboard/pkg/types"
)

// Dimension is the required length of every persisted embedding
const Dimension = types.EmbeddingDimension

var (
	ErrEmptyVector       = errors.New("vector is empty")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Cosine computes the cosine similarity of a and b.
// ok is false when either vector is nil, the lengths differ, or either has zero magnitude.
func Cosine(a, b []float32) (score float64, ok bool) {
	if a == nil || b == nil || len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, false
	}

	score = dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// rounding can push identical vectors a hair past 1
	return math.Max(-1, math.Min(1, score)), true
}

// CosinePtr is Cosine with the undefined case mapped to nil
func CosinePtr(a, b []float32) *float64 {
	score, ok := Cosine(a, b)
	if !ok {
		return nil
	}
	return &score
}

// Validate checks that v has exactly dim components
func Validate(v []float32, dim int) error {
	if len(v) == 0 {
		return ErrEmptyVector
	}
	if len(v) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dim)
	}
	return nil
}

// Valid reports whether v can be persisted as an embedding
func Valid(v []float32) bool {
	return Validate(v, Dimension) == nil
}

// Serialize converts a float32 slice to a little-endian byte blob
func Serialize(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// Deserialize converts a blob produced by Serialize back to a vector.
// Empty or misaligned blobs yield nil.
func Deserialize(blob []byte) []float32 {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}
