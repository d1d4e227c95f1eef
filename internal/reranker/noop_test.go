package reranker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragcore/ragcore/internal/chunkstore"
)

func TestNoOp_Rerank_PreservesOrder(t *testing.T) {
	r := NoOp{}
	records := []chunkstore.ChunkRecord{
		{ID: 1, Content: "doc1"},
		{ID: 2, Content: "doc2"},
		{ID: 3, Content: "doc3"},
	}

	out, err := r.Rerank(context.Background(), "query", records)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, int64(1), out[0].ID)
	assert.Equal(t, int64(2), out[1].ID)
	assert.Equal(t, int64(3), out[2].ID)
}

func TestNoOp_Rerank_DoesNotMutateInput(t *testing.T) {
	r := NoOp{}
	records := []chunkstore.ChunkRecord{{ID: 1}, {ID: 2}}

	out, err := r.Rerank(context.Background(), "query", records)
	require.NoError(t, err)
	out[0].ID = 99
	assert.Equal(t, int64(1), records[0].ID)
}

func TestNoOp_Rerank_EmptyRecords(t *testing.T) {
	r := NoOp{}
	out, err := r.Rerank(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNoOp_Close(t *testing.T) {
	r := NoOp{}
	assert.NoError(t, r.Close())
}

func TestNoOp_InterfaceCompliance(t *testing.T) {
	var _ Reranker = NoOp{}
}
