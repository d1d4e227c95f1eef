package retriever

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragcore/ragcore/internal/chunkstore"
	"github.com/ragcore/ragcore/internal/lexicon"
	"github.com/ragcore/ragcore/internal/vectorindex"
)

func newFixture(t *testing.T) (*Retriever, []int64) {
	t.Helper()

	chunks, err := chunkstore.NewSQLite("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = chunks.Close() })

	ids, err := chunks.Insert(context.Background(), []chunkstore.ChunkRecord{
		{Content: "the quick brown fox", SourceURI: "doc1", CreatedAt: time.Now()},
		{Content: "a slow green turtle", SourceURI: "doc2", CreatedAt: time.Now()},
		{Content: "foxes are quick and clever", SourceURI: "doc3", CreatedAt: time.Now()},
	})
	require.NoError(t, err)

	vectors := vectorindex.NewPortable(2)
	require.NoError(t, vectors.AddWithIDs([][]float32{{1, 0}, {0, 1}, {0.9, 0.1}}, ids))

	lex, err := lexicon.NewSQLite("", lexicon.DefaultStopWords)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lex.Close() })
	require.NoError(t, lex.AddDocuments(context.Background(), []lexicon.Document{
		{ID: ids[0], Text: "the quick brown fox"},
		{ID: ids[1], Text: "a slow green turtle"},
		{ID: ids[2], Text: "foxes are quick and clever"},
	}))
	require.NoError(t, lex.Commit())

	r := New(vectors, lex, chunks, DefaultConfig())
	return r, ids
}

func TestRetriever_HybridSearch_ReturnsFusedRecords(t *testing.T) {
	r, ids := newFixture(t)

	records, err := r.Search(context.Background(), []float32{1, 0}, "quick fox", 2)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, ids[0], records[0].ID)
}

func TestRetriever_VectorOnlySearch_WhenHybridDisabled(t *testing.T) {
	r, ids := newFixture(t)
	r.config.HybridEnabled = false

	records, err := r.Search(context.Background(), []float32{0, 1}, "anything", 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ids[1], records[0].ID)
}

func TestRetriever_VectorSearch_SkipsSentinelIDs(t *testing.T) {
	r, _ := newFixture(t)

	ids, err := r.vectorSearch([]float32{1, 0}, 10)
	require.NoError(t, err)
	for _, id := range ids {
		assert.NotEqual(t, vectorindex.MissingID, id)
	}
}

func TestFuse_UnionFirstOccurrenceWinsAndOrdersDescending(t *testing.T) {
	ids := fuse([]int64{1, 2}, []int64{2, 3}, 0.7, 10)
	assert.Contains(t, ids, int64(1))
	assert.Contains(t, ids, int64(2))
	assert.Contains(t, ids, int64(3))

	// id 2 appears in both lists, so it accumulates score from both and
	// should outrank ids appearing in only one list at the same rank.
	pos := make(map[int64]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	assert.Less(t, pos[2], pos[3])
}

func TestFuse_TruncatesToTopK(t *testing.T) {
	ids := fuse([]int64{1, 2, 3}, []int64{4, 5, 6}, 0.7, 2)
	assert.Len(t, ids, 2)
}
