// Package reranker implements C8: cross-encoder pair scoring over candidate
// (query, chunk) pairs, used to refine the ranking C7 hands the query
// pipeline before it is trimmed to the caller's requested top-k.
package reranker

import (
	"context"

	"github.com/ragcore/ragcore/internal/chunkstore"
)

// Reranker scores and reorders chunk records by relevance to a query.
type Reranker interface {
	// Rerank returns records sorted by descending model score. The input
	// slice is not modified.
	Rerank(ctx context.Context, query string, records []chunkstore.ChunkRecord) ([]chunkstore.ChunkRecord, error)

	// Close releases any resources (ONNX session, tokenizer) held by the
	// reranker.
	Close() error
}
