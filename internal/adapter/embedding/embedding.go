// Package embedding defines the order-preserving batch contract over an
// external embedding capability, plus the provider adapters implementing it.
package embedding

import (
	"context"
	"math"
)

// Gateway embeds an ordered list of texts into an equal-length, order-
// preserving list of fixed-dimension vectors: output[i] embeds input[i].
// A batch fails as a whole; partial per-item failure is not modeled.
//
// A Gateway is constructed once by the caller and passed to the pipeline; it
// owns its client lifecycle and is released with Close.
type Gateway interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}

// NormalizeL2 scales v to unit length in place and returns it. Zero vectors
// are returned unchanged.
func NormalizeL2(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
