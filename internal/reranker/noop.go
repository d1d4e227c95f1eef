package reranker

import (
	"context"

	"github.com/ragcore/ragcore/internal/chunkstore"
)

// NoOp is a reranker that returns records in their original order, used
// when the reranker is disabled or its model is unavailable.
type NoOp struct{}

// Rerank returns records unchanged.
func (NoOp) Rerank(_ context.Context, _ string, records []chunkstore.ChunkRecord) ([]chunkstore.ChunkRecord, error) {
	out := make([]chunkstore.ChunkRecord, len(records))
	copy(out, records)
	return out, nil
}

// Close is a no-op.
func (NoOp) Close() error { return nil }

var _ Reranker = NoOp{}
