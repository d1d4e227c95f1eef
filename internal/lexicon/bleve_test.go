package lexicon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBleve_IndexAndSearch_Basic(t *testing.T) {
	idx, err := NewBleve("")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	docs := []Document{
		{ID: 1, Text: "the quick brown fox"},
		{ID: 2, Text: "a slow green turtle"},
		{ID: 3, Text: "the fox and the turtle"},
	}
	require.NoError(t, idx.AddDocuments(context.Background(), docs))

	results, err := idx.Search(context.Background(), "fox", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestBleve_Delete_RemovesFromResultsAndAllIDs(t *testing.T) {
	idx, err := NewBleve("")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	require.NoError(t, idx.AddDocuments(context.Background(), []Document{
		{ID: 1, Text: "fox"}, {ID: 2, Text: "fox"},
	}))
	require.NoError(t, idx.Delete(context.Background(), []int64{1}))

	ids, err := idx.AllIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{2}, ids)
}

func TestBleve_Search_EmptyQueryYieldsEmptyResult(t *testing.T) {
	idx, err := NewBleve("")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	results, err := idx.Search(context.Background(), "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBleve_Commit_IsNoOpAndSucceeds(t *testing.T) {
	idx, err := NewBleve("")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()
	assert.NoError(t, idx.Commit())
}

func TestBleve_DocKey_RoundTrips(t *testing.T) {
	key := docKey(42)
	id, err := keyToID(key)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}
