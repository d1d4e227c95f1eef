package lexicon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/ragcore/ragcore/internal/ragerr"
)

// bleveDocument is the stored shape indexed into Bleve; content is analyzed
// by Bleve's own standard analyzer (unicode tokenization, lowercase,
// stopwords), kept as the index mapping's default.
type bleveDocument struct {
	Content string `json:"content"`
}

// Bleve implements Lexicon over a Bleve full-text index using its built-in
// BM25-backed scorer and standard analyzer.
type Bleve struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ Lexicon = (*Bleve)(nil)

// NewBleve opens or creates a Bleve index at path. An empty path creates an
// in-memory index. A corrupted on-disk index is detected, cleared, and
// rebuilt rather than left unusable.
func NewBleve(path string) (*Bleve, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, ragerr.Configuration("ERR_LEX_MAPPING", "failed to build lexicon index mapping", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil && isCorruptionError(err) {
			slog.Warn("lexicon_bleve_corrupted", slog.String("path", path), slog.String("error", err.Error()))
			if rmErr := os.RemoveAll(path); rmErr != nil {
				return nil, ragerr.DataIntegrity("ERR_LEX_CORRUPT",
					fmt.Sprintf("lexicon at %q is corrupted and could not be removed", path), rmErr)
			}
			slog.Info("lexicon_bleve_cleared", slog.String("path", path))
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, ragerr.Resource("ERR_LEX_OPEN", fmt.Sprintf("failed to create/open lexicon at %q", path), err)
	}

	return &Bleve{index: idx, path: path}, nil
}

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "standard"
	return indexMapping, nil
}

func isCorruptionError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"corrupt", "invalid file", "unexpected eof", "checksum"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (b *Bleve) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ragerr.Configuration("ERR_LEX_CLOSED", "lexicon is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(docKey(doc.ID), bleveDocument{Content: doc.Text}); err != nil {
			return ragerr.TransientIO("ERR_LEX_INDEX", fmt.Sprintf("failed to index document %d", doc.ID), err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return ragerr.TransientIO("ERR_LEX_INDEX", "failed to execute lexicon batch", err)
	}
	return nil
}

func (b *Bleve) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ragerr.Configuration("ERR_LEX_CLOSED", "lexicon is closed", nil)
	}

	if strings.TrimSpace(query) == "" {
		return []Result{}, nil
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = topK

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, ragerr.TransientIO("ERR_LEX_SEARCH", "lexicon search failed", err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := keyToID(hit.ID)
		if err != nil {
			return nil, ragerr.DataIntegrity("ERR_LEX_KEY", fmt.Sprintf("unparseable lexicon key %q", hit.ID), err)
		}
		results = append(results, Result{ID: id, Score: hit.Score})
	}
	return results, nil
}

func (b *Bleve) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ragerr.Configuration("ERR_LEX_CLOSED", "lexicon is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(docKey(id))
	}
	if err := b.index.Batch(batch); err != nil {
		return ragerr.TransientIO("ERR_LEX_DELETE", "failed to delete lexicon documents", err)
	}
	return nil
}

func (b *Bleve) AllIDs(ctx context.Context) ([]int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ragerr.Configuration("ERR_LEX_CLOSED", "lexicon is closed", nil)
	}

	docCount, _ := b.index.DocCount()
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(docCount)
	req.Fields = []string{}

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, ragerr.TransientIO("ERR_LEX_ALLIDS", "failed to list lexicon ids", err)
	}

	ids := make([]int64, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := keyToID(hit.ID)
		if err != nil {
			return nil, ragerr.DataIntegrity("ERR_LEX_KEY", fmt.Sprintf("unparseable lexicon key %q", hit.ID), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Commit is a no-op: Bleve persists each successful Batch call immediately.
func (b *Bleve) Commit() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ragerr.Configuration("ERR_LEX_CLOSED", "lexicon is closed", nil)
	}
	return nil
}

func (b *Bleve) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}

func docKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func keyToID(key string) (int64, error) {
	return strconv.ParseInt(key, 10, 64)
}
