package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func l2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestStatic_EmbedIsNormalized(t *testing.T) {
	e := NewStatic()
	v, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Len(t, v, LegacyDimension)
	assert.InDelta(t, 1.0, l2Norm(v), 1e-4)
}

func TestStatic_EmptyTextYieldsZeroVector(t *testing.T) {
	e := NewStatic()
	v, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	for _, x := range v {
		assert.Equal(t, float32(0), x)
	}
}

func TestStatic_Deterministic(t *testing.T) {
	e := NewStatic()
	a, err := e.Embed(context.Background(), "the quick brown fox")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "the quick brown fox")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

type countingEmbedder struct {
	calls int
	dim   int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (c *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, c.dim)
		v[hashIndex(t, c.dim)] = 1
		out[i] = v
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int   { return c.dim }
func (c *countingEmbedder) ModelName() string { return "counting" }
func (c *countingEmbedder) Close() error      { return nil }

func TestCached_RepeatedQuerySkipsInner(t *testing.T) {
	inner := &countingEmbedder{dim: 8}
	cached := NewCached(inner, 10)

	_, err := cached.Embed(context.Background(), "alpha")
	require.NoError(t, err)
	_, err = cached.Embed(context.Background(), "alpha")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
}

func TestCached_BatchOnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{dim: 8}
	cached := NewCached(inner, 10)

	_, err := cached.Embed(context.Background(), "alpha")
	require.NoError(t, err)

	results, err := cached.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 2, inner.calls) // one from the earlier single Embed, one for the "beta" miss
}

func TestMeanPool_AllZeroMaskYieldsZeroVector(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6}
	mask := []int32{0, 0}
	got := meanPool(data, mask, 0, 2, 3)
	assert.Equal(t, []float32{0, 0, 0}, got)
}

func TestMeanPool_AveragesOverNonMaskedTokens(t *testing.T) {
	// seq 0: token0=[1,1], token1=[3,0] (masked out) -> mean over token0 only,
	// normalized to [0.7071, 0.7071]; averaging both tokens would give [0.970, 0.243].
	data := []float32{1, 1, 3, 0}
	mask := []int32{1, 0}
	got := meanPool(data, mask, 0, 2, 2)
	assert.InDelta(t, 1.0, l2Norm(got), 1e-4)
	assert.InDelta(t, 0.70710678, got[0], 1e-4)
	assert.InDelta(t, 0.70710678, got[1], 1e-4)
}
