// Package writer implements C6: the atomic cross-store append that keeps
// the chunk store, vector index, and lexical index in identifier lockstep.
package writer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ragcore/ragcore/internal/chunkstore"
	"github.com/ragcore/ragcore/internal/lexicon"
	"github.com/ragcore/ragcore/internal/ragerr"
	"github.com/ragcore/ragcore/internal/vectorindex"
)

// Record is one chunk queued for a single add_batch call, carrying its
// already-computed embedding.
type Record struct {
	Content     string
	SourceURI   string
	SourceType  string
	ChunkIndex  int
	TotalChunks int
	Vector      []float32
}

// Paths locates the three on-disk stores a Writer owns end to end,
// including through Reset.
type Paths struct {
	ChunkStorePath   string
	VectorIndexPath  string
	LexiconBasePath  string
	LexiconBackend   lexicon.Backend
	VectorVariant    vectorindex.Variant
	LexiconStopWords []string
}

// Writer is the single entry point for cross-store writes. All methods are
// safe for concurrent use; add_batch is internally serialized since its
// ordering discipline spans three stores.
type Writer struct {
	mu        sync.Mutex
	paths     Paths
	dimension int

	chunks  chunkstore.ChunkStore
	vectors vectorindex.Index
	lex     lexicon.Lexicon
}

// Option configures a Writer at construction.
type Option func(*Writer)

// WithChunkStore overrides the chunk store backend (otherwise opened from
// Paths.ChunkStorePath).
func WithChunkStore(s chunkstore.ChunkStore) Option {
	return func(w *Writer) { w.chunks = s }
}

// WithVectorIndex overrides the vector index backend (otherwise opened from
// Paths.VectorIndexPath/VectorVariant).
func WithVectorIndex(idx vectorindex.Index) Option {
	return func(w *Writer) { w.vectors = idx }
}

// WithLexicon overrides the lexical index backend (otherwise opened from
// Paths.LexiconBasePath/LexiconBackend).
func WithLexicon(lex lexicon.Lexicon) Option {
	return func(w *Writer) { w.lex = lex }
}

// New opens (or creates) all three stores at the configured paths, unless an
// Option already supplied one.
func New(paths Paths, dimension int, opts ...Option) (*Writer, error) {
	w := &Writer{paths: paths, dimension: dimension}
	for _, opt := range opts {
		opt(w)
	}

	var err error
	if w.chunks == nil {
		if w.chunks, err = chunkstore.NewSQLite(paths.ChunkStorePath); err != nil {
			return nil, err
		}
	}
	if w.vectors == nil {
		if w.vectors, err = vectorindex.Open(paths.VectorIndexPath, dimension, paths.VectorVariant); err != nil {
			return nil, err
		}
	}
	if w.lex == nil {
		if w.lex, err = lexicon.Open(paths.LexiconBasePath, paths.LexiconBackend, paths.LexiconStopWords); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// AddBatch inserts records into the chunk store, vector index, and lexical
// index in strict sequence: chunk-store insert first (so identifiers are
// materialized and their order is fixed), then the vector index using those
// identifiers, then the lexical index, committed at the end. Returns the
// assigned identifiers in input order.
func (w *Writer) AddBatch(ctx context.Context, records []Record) ([]int64, error) {
	if len(records) == 0 {
		return nil, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	chunkRecords := make([]chunkstore.ChunkRecord, len(records))
	for i, r := range records {
		chunkRecords[i] = chunkstore.ChunkRecord{
			Content:     r.Content,
			SourceURI:   r.SourceURI,
			SourceType:  r.SourceType,
			ChunkIndex:  r.ChunkIndex,
			TotalChunks: r.TotalChunks,
			CreatedAt:   time.Now(),
		}
	}

	ids, err := w.chunks.Insert(ctx, chunkRecords)
	if err != nil {
		return nil, fmt.Errorf("chunk store insert: %w", err)
	}

	vectors := make([][]float32, len(records))
	for i, r := range records {
		vectors[i] = r.Vector
	}
	if err := w.vectors.AddWithIDs(vectors, ids); err != nil {
		return nil, fmt.Errorf("vector index add: %w", err)
	}

	docs := make([]lexicon.Document, len(records))
	for i, r := range records {
		docs[i] = lexicon.Document{ID: ids[i], Text: r.Content}
	}
	if err := w.lex.AddDocuments(ctx, docs); err != nil {
		return nil, fmt.Errorf("lexical index add: %w", err)
	}
	if err := w.lex.Commit(); err != nil {
		return nil, fmt.Errorf("lexical index commit: %w", err)
	}

	return ids, nil
}

// SaveVectorIndex persists the vector index to disk. Call once at the end
// of an ingest session, after every add_batch has committed.
func (w *Writer) SaveVectorIndex() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.vectors.Save(w.paths.VectorIndexPath)
}

// LoadVectorIndex replaces the in-memory vector index with the one on disk
// at Paths.VectorIndexPath.
func (w *Writer) LoadVectorIndex() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.vectors.Load(w.paths.VectorIndexPath)
}

// Size returns the chunk store's record count, the authoritative count
// across all three stores when they are consistent.
func (w *Writer) Size(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chunks.Count(ctx)
}

// Reset deletes the chunk-store file, the vector-index file, and the
// lexical-index directory/file, then reinitializes empty stores in their
// place. A failure partway leaves the writer unusable for the current
// session; the next session opens whatever survived on disk.
func (w *Writer) Reset(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.chunks.Close(); err != nil {
		return fmt.Errorf("close chunk store: %w", err)
	}
	if err := w.lex.Close(); err != nil {
		return fmt.Errorf("close lexicon: %w", err)
	}
	if err := w.vectors.Dispose(); err != nil {
		return fmt.Errorf("dispose vector index: %w", err)
	}

	if w.paths.ChunkStorePath != "" {
		if err := os.Remove(w.paths.ChunkStorePath); err != nil && !os.IsNotExist(err) {
			return ragerr.TransientIO("ERR_WRITER_RESET", "failed to remove chunk store file", err)
		}
	}
	if w.paths.VectorIndexPath != "" {
		if err := os.Remove(w.paths.VectorIndexPath); err != nil && !os.IsNotExist(err) {
			return ragerr.TransientIO("ERR_WRITER_RESET", "failed to remove vector index file", err)
		}
		_ = os.Remove(w.paths.VectorIndexPath + ".meta")
	}
	if w.paths.LexiconBasePath != "" {
		_ = os.RemoveAll(w.paths.LexiconBasePath + ".db")
		_ = os.RemoveAll(w.paths.LexiconBasePath + ".db-wal")
		_ = os.RemoveAll(w.paths.LexiconBasePath + ".db-shm")
		_ = os.RemoveAll(w.paths.LexiconBasePath + ".bleve")
	}

	var err error
	if w.chunks, err = chunkstore.NewSQLite(w.paths.ChunkStorePath); err != nil {
		return fmt.Errorf("reinitialize chunk store: %w", err)
	}
	if w.vectors, err = vectorindex.Open(w.paths.VectorIndexPath, w.dimension, w.paths.VectorVariant); err != nil {
		return fmt.Errorf("reinitialize vector index: %w", err)
	}
	if w.lex, err = lexicon.Open(w.paths.LexiconBasePath, w.paths.LexiconBackend, w.paths.LexiconStopWords); err != nil {
		return fmt.Errorf("reinitialize lexicon: %w", err)
	}
	return nil
}

// Close releases all three store handles without deleting anything on disk.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	if err := w.chunks.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.lex.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.vectors.Dispose(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
