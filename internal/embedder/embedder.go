// Package embedder implements C2: text-to-vector embedding via an ONNX
// sentence-transformer session, masked mean pooling, and L2 normalization.
package embedder

import (
	"context"
	"math"
)

// DefaultBatchSize is the default number of texts submitted to the
// inference session per call.
const DefaultBatchSize = 16

// Embedder produces L2-normalized embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Close() error
}

// normalizeL2 divides v by its L2 norm, floored at eps so a near-zero vector
// never overflows. A vector whose norm is exactly zero is returned unchanged.
func normalizeL2(v []float32, eps float64) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	norm := math.Sqrt(sumSquares)
	if norm < eps {
		norm = eps
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
