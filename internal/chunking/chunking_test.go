package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyTextReturnsNoChunks(t *testing.T) {
	c := New(DefaultConfig())
	assert.Empty(t, c.Split("doc.txt", "text/plain", "   \n\t  "))
}

func TestSplit_FixedWidth_RespectsSizeAndOverlap(t *testing.T) {
	c := New(Config{Size: 10, Overlap: 3})
	text := strings.Repeat("a", 25)

	records := c.Split("doc.txt", "text/plain", text)
	require.NotEmpty(t, records)
	for i, r := range records {
		assert.LessOrEqual(t, len([]rune(r.Content)), 10)
		assert.Equal(t, i, r.ChunkIndex)
		assert.Equal(t, len(records), r.TotalChunks)
		assert.Equal(t, "doc.txt", r.SourceURI)
	}
}

func TestSplit_FixedWidth_ShortTextProducesOneChunk(t *testing.T) {
	c := New(Config{Size: 1600, Overlap: 200})
	records := c.Split("doc.txt", "text/plain", "hello world")
	require.Len(t, records, 1)
	assert.Equal(t, "hello world", records[0].Content)
}

func TestSplit_Semantic_SplitsOnHeadingBoundary(t *testing.T) {
	// Size 30: each pair of paragraphs plus the "\n\n" separator exceeds it.
	c := New(Config{Size: 30, Overlap: 5, Semantic: true})
	text := "intro paragraph\n\n# Heading One\nbody one\n\n# Heading Two\nbody two"

	records := c.Split("doc.md", "text/markdown", text)
	require.GreaterOrEqual(t, len(records), 1)
	joined := records[0].Content
	for _, r := range records[1:] {
		joined += "\n" + r.Content
	}
	assert.Contains(t, joined, "Heading One")
	assert.Contains(t, joined, "Heading Two")
	require.Len(t, records, 3)
	assert.Equal(t, "# Heading One\nbody one", records[1].Content)
	assert.Equal(t, "# Heading Two\nbody two", records[2].Content)
}

func TestSplit_Semantic_OversizedParagraphFallsBackToFixedWidth(t *testing.T) {
	c := New(Config{Size: 20, Overlap: 5, Semantic: true})
	text := strings.Repeat("b", 100)

	records := c.Split("doc.md", "text/markdown", text)
	require.Greater(t, len(records), 1)
	for _, r := range records {
		assert.LessOrEqual(t, len([]rune(r.Content)), 20)
	}
}

func TestNew_AppliesDefaultsForZeroOrInvalidConfig(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, DefaultSize, c.cfg.Size)
	assert.Equal(t, DefaultOverlap, c.cfg.Overlap)

	c2 := New(Config{Size: 100, Overlap: 200})
	assert.Equal(t, DefaultOverlap, c2.cfg.Overlap)
}

func TestSplitFixed_EmptyInputReturnsNil(t *testing.T) {
	assert.Nil(t, splitFixed("", 10, 2))
}
