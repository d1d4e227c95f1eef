package lexicon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_IndexAndSearch_Basic(t *testing.T) {
	idx, err := NewSQLite("", DefaultStopWords)
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
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSQLite_Search_MultiTermRanksBothTermsHighest(t *testing.T) {
	idx, err := NewSQLite("", DefaultStopWords)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	docs := []Document{
		{ID: 1, Text: "handle network request"},
		{ID: 2, Text: "process network response"},
		{ID: 3, Text: "handle database query"},
	}
	require.NoError(t, idx.AddDocuments(context.Background(), docs))

	results, err := idx.Search(context.Background(), "network handle", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, int64(1), results[0].ID)
}

func TestSQLite_Search_EmptyQueryYieldsEmptyResult(t *testing.T) {
	idx, err := NewSQLite("", DefaultStopWords)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	results, err := idx.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSQLite_Delete_RemovesFromResultsAndAllIDs(t *testing.T) {
	idx, err := NewSQLite("", DefaultStopWords)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	require.NoError(t, idx.AddDocuments(context.Background(), []Document{
		{ID: 1, Text: "fox"}, {ID: 2, Text: "fox"},
	}))
	require.NoError(t, idx.Delete(context.Background(), []int64{1}))

	ids, err := idx.AllIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)

	results, err := idx.Search(context.Background(), "fox", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].ID)
}

func TestSQLite_AddDocuments_ReindexingSameIDReplacesContent(t *testing.T) {
	idx, err := NewSQLite("", DefaultStopWords)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	require.NoError(t, idx.AddDocuments(context.Background(), []Document{{ID: 1, Text: "alpha"}}))
	require.NoError(t, idx.AddDocuments(context.Background(), []Document{{ID: 1, Text: "beta"}}))

	results, err := idx.Search(context.Background(), "alpha", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.Search(context.Background(), "beta", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSQLite_Commit_ChecksPointsWithoutError(t *testing.T) {
	idx, err := NewSQLite("", DefaultStopWords)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()
	assert.NoError(t, idx.Commit())
}

func TestSQLite_ClosedIndex_RejectsOperations(t *testing.T) {
	idx, err := NewSQLite("", DefaultStopWords)
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	_, err = idx.Search(context.Background(), "fox", 10)
	assert.Error(t, err)
	err = idx.AddDocuments(context.Background(), []Document{{ID: 1, Text: "fox"}})
	assert.Error(t, err)
}
