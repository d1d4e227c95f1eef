// Package chunking splits already-extracted plain text into the pieces C6
// stores as chunk records, honoring chunk_size/chunk_overlap/
// enable_semantic_chunking.
package chunking

import (
	"regexp"
	"strings"
	"time"

	"github.com/ragcore/ragcore/internal/chunkstore"
)

// DefaultSize and DefaultOverlap match the spec-mandated configuration
// defaults for chunk_size/chunk_overlap.
const (
	DefaultSize    = 1600
	DefaultOverlap = 200
)

// Config configures a Chunker.
type Config struct {
	Size     int  // chunk_size: max runes per chunk
	Overlap  int  // chunk_overlap: overlapping runes between consecutive fixed-width chunks
	Semantic bool // enable_semantic_chunking
}

// DefaultConfig returns fixed-width chunking at the spec defaults.
func DefaultConfig() Config {
	return Config{Size: DefaultSize, Overlap: DefaultOverlap, Semantic: false}
}

// Chunker splits document text into ChunkRecords.
type Chunker struct {
	cfg Config
}

// New returns a Chunker, applying defaults for zero-valued fields.
func New(cfg Config) *Chunker {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.Overlap <= 0 || cfg.Overlap >= cfg.Size {
		cfg.Overlap = DefaultOverlap
	}
	return &Chunker{cfg: cfg}
}

// Split splits text extracted from sourceURI into ordered ChunkRecords, with
// ChunkIndex/TotalChunks set but ID/VectorDigest left zero for the caller's
// store to assign.
func (c *Chunker) Split(sourceURI, sourceType, text string) []chunkstore.ChunkRecord {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var pieces []string
	if c.cfg.Semantic {
		pieces = c.splitSemantic(text)
	} else {
		pieces = splitFixed(text, c.cfg.Size, c.cfg.Overlap)
	}

	now := time.Now()
	records := make([]chunkstore.ChunkRecord, len(pieces))
	for i, p := range pieces {
		records[i] = chunkstore.ChunkRecord{
			Content:     p,
			SourceURI:   sourceURI,
			SourceType:  sourceType,
			ChunkIndex:  i,
			TotalChunks: len(pieces),
			CreatedAt:   now,
		}
	}
	return records
}

// splitFixed splits text into fixed-width, overlapping pieces on rune
// boundaries. step = size - overlap; the final piece may be shorter than
// size.
func splitFixed(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := size - overlap
	if step <= 0 {
		step = size
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

var headingPattern = regexp.MustCompile(`(?m)^#{1,6}\s+\S`)

// splitSemantic splits on paragraph and heading boundaries, merging
// consecutive paragraphs up to Size and falling back to fixed-width
// splitting for any single paragraph that alone exceeds Size.
func (c *Chunker) splitSemantic(text string) []string {
	paragraphs := splitParagraphs(text)

	var out []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		piece := strings.TrimSpace(cur.String())
		if piece != "" {
			out = append(out, piece)
		}
		cur.Reset()
	}

	for _, p := range paragraphs {
		if len([]rune(p)) > c.cfg.Size {
			flush()
			out = append(out, splitFixed(p, c.cfg.Size, c.cfg.Overlap)...)
			continue
		}

		if cur.Len() > 0 && len([]rune(cur.String()))+2+len([]rune(p)) > c.cfg.Size {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(p)
	}
	flush()

	return out
}

// splitParagraphs breaks text on blank lines, additionally starting a new
// paragraph at each Markdown-style heading line so headings never merge
// into the body text that precedes them.
func splitParagraphs(text string) []string {
	lines := strings.Split(text, "\n")

	var paragraphs []string
	var cur strings.Builder

	flush := func() {
		p := strings.TrimSpace(cur.String())
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
		cur.Reset()
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if headingPattern.MatchString(line) && cur.Len() > 0 {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n")
		}
		cur.WriteString(line)
	}
	flush()

	return paragraphs
}
