package chunkstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_Insert_AssignsMonotonicDenseIDs(t *testing.T) {
	store, err := NewSQLite("")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ids, err := store.Insert(context.Background(), []ChunkRecord{
		{Content: "a", SourceURI: "doc1", SourceType: "pdf", ChunkIndex: 0, TotalChunks: 2, CreatedAt: time.Now()},
		{Content: "b", SourceURI: "doc1", SourceType: "pdf", ChunkIndex: 1, TotalChunks: 2, CreatedAt: time.Now()},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, ids[0]+1, ids[1])
}

func TestSQLite_Get_RoundTrips(t *testing.T) {
	store, err := NewSQLite("")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	now := time.Now()
	ids, err := store.Insert(context.Background(), []ChunkRecord{
		{Content: "hello world", SourceURI: "doc1", SourceType: "html", ChunkIndex: 0, TotalChunks: 1, CreatedAt: now},
	})
	require.NoError(t, err)

	rec, ok, err := store.Get(context.Background(), ids[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello world", rec.Content)
	assert.Equal(t, "doc1", rec.SourceURI)
}

func TestSQLite_Get_MissingIDReturnsFalse(t *testing.T) {
	store, err := NewSQLite("")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, ok, err := store.Get(context.Background(), 999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLite_GetMany_PreservesRequestOrderAndSkipsMissing(t *testing.T) {
	store, err := NewSQLite("")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ids, err := store.Insert(context.Background(), []ChunkRecord{
		{Content: "a", SourceURI: "d", SourceType: "txt", CreatedAt: time.Now()},
		{Content: "b", SourceURI: "d", SourceType: "txt", CreatedAt: time.Now()},
	})
	require.NoError(t, err)

	recs, err := store.GetMany(context.Background(), []int64{ids[1], 12345, ids[0]})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].Content)
	assert.Equal(t, "a", recs[1].Content)
}

func TestSQLite_BySourceURI_OrdersByChunkIndex(t *testing.T) {
	store, err := NewSQLite("")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = store.Insert(context.Background(), []ChunkRecord{
		{Content: "second", SourceURI: "doc1", ChunkIndex: 1, TotalChunks: 2, CreatedAt: time.Now()},
		{Content: "first", SourceURI: "doc1", ChunkIndex: 0, TotalChunks: 2, CreatedAt: time.Now()},
	})
	require.NoError(t, err)

	recs, err := store.BySourceURI(context.Background(), "doc1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "first", recs[0].Content)
	assert.Equal(t, "second", recs[1].Content)
}

func TestSQLite_Delete_RemovesRecordsAndCount(t *testing.T) {
	store, err := NewSQLite("")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ids, err := store.Insert(context.Background(), []ChunkRecord{
		{Content: "a", SourceURI: "d", CreatedAt: time.Now()},
		{Content: "b", SourceURI: "d", CreatedAt: time.Now()},
	})
	require.NoError(t, err)
	require.NoError(t, store.Delete(context.Background(), []int64{ids[0]}))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLite_ClosedStore_RejectsOperations(t *testing.T) {
	store, err := NewSQLite("")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Count(context.Background())
	assert.Error(t, err)
}
