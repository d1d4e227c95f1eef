package vectorindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNative_AddAndSearch_ExactMatch(t *testing.T) {
	idx := NewNative(3)
	require.NoError(t, idx.AddWithIDs([][]float32{{1, 0, 0}, {0, 1, 0}}, []int64{10, 20}))

	scores, ids, err := idx.Search([][]float32{{1, 0, 0}}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), ids[0][0])
	assert.InDelta(t, 1.0, scores[0][0], 1e-6)
}

func TestNative_Delete_RemovesFromAllIDs(t *testing.T) {
	idx := NewNative(2)
	require.NoError(t, idx.AddWithIDs([][]float32{{1, 0}, {0, 1}}, []int64{1, 2}))
	require.NoError(t, idx.Delete([]int64{1}))

	assert.Equal(t, []int64{2}, idx.AllIDs())
	assert.Equal(t, 1, idx.Count())
}

func TestNative_SaveLoad_RoundTrip(t *testing.T) {
	idx := NewNative(2)
	require.NoError(t, idx.AddWithIDs([][]float32{{1, 2}, {3, 4}}, []int64{5, 6}))

	path := filepath.Join(t.TempDir(), "index.hnsw")
	require.NoError(t, idx.Save(path))

	loaded := NewNative(0)
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, 2, loaded.Dimension())
	assert.Equal(t, 2, loaded.Count())
	assert.ElementsMatch(t, []int64{5, 6}, loaded.AllIDs())
}

func TestNative_AddWithIDs_LengthMismatchIsFatal(t *testing.T) {
	idx := NewNative(2)
	err := idx.AddWithIDs([][]float32{{1, 0}}, []int64{1, 2})
	require.Error(t, err)
}

func TestNative_AddWithIDs_DimensionMismatch(t *testing.T) {
	idx := NewNative(3)
	err := idx.AddWithIDs([][]float32{{1, 0}}, []int64{1})
	require.Error(t, err)
}
