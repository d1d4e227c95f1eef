// Package retriever implements C7: hybrid search over the vector and
// lexical indexes, fused by Reciprocal Rank Fusion, materialized into
// ChunkRecords via the chunk store.
package retriever

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ragcore/ragcore/internal/chunkstore"
	"github.com/ragcore/ragcore/internal/lexicon"
	"github.com/ragcore/ragcore/internal/vectorindex"
)

// RRFConstant is the fixed smoothing constant k in the Reciprocal Rank
// Fusion formula.
const RRFConstant = 60

// DefaultHybridWeight is alpha, the default weight favoring semantic
// results over lexical ones in fusion.
const DefaultHybridWeight = 0.7

// Config configures one Retriever.
type Config struct {
	// HybridEnabled toggles fusion; when false, Search performs vector-only
	// search.
	HybridEnabled bool
	// HybridWeight is alpha in the RRF formula, the weight given to vector
	// results (1-alpha goes to lexical results). Ignored when
	// HybridEnabled is false.
	HybridWeight float64
}

// DefaultConfig returns hybrid search enabled at the default weight.
func DefaultConfig() Config {
	return Config{HybridEnabled: true, HybridWeight: DefaultHybridWeight}
}

// Retriever is the capability set C9's query pipeline depends on.
type Retriever struct {
	vectors vectorindex.Index
	lex     lexicon.Lexicon
	chunks  chunkstore.ChunkStore
	config  Config
}

// New builds a Retriever over the three C3/C4/C5 stores.
func New(vectors vectorindex.Index, lex lexicon.Lexicon, chunks chunkstore.ChunkStore, config Config) *Retriever {
	return &Retriever{vectors: vectors, lex: lex, chunks: chunks, config: config}
}

// Search returns up to topK chunk records for the given query, ranked by
// descending relevance. vectorQuery must already be embedded (C2 runs
// upstream in the query pipeline); queryText is the raw query used for
// lexical search.
func (r *Retriever) Search(ctx context.Context, vectorQuery []float32, queryText string, topK int) ([]chunkstore.ChunkRecord, error) {
	if !r.config.HybridEnabled {
		ids, err := r.vectorSearch(vectorQuery, topK)
		if err != nil {
			return nil, err
		}
		return r.materialize(ctx, ids)
	}
	return r.hybridSearch(ctx, vectorQuery, queryText, topK)
}

func (r *Retriever) hybridSearch(ctx context.Context, vectorQuery []float32, queryText string, topK int) ([]chunkstore.ChunkRecord, error) {
	candidateLimit := 2 * topK

	var vectorRanked, lexicalRanked []int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := r.vectorSearch(vectorQuery, candidateLimit)
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		vectorRanked = ids
		return nil
	})
	g.Go(func() error {
		results, err := r.lex.Search(gctx, queryText, candidateLimit)
		if err != nil {
			return fmt.Errorf("lexical search: %w", err)
		}
		ids := make([]int64, len(results))
		for i, res := range results {
			ids[i] = res.ID
		}
		lexicalRanked = ids
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fusedIDs := fuse(vectorRanked, lexicalRanked, r.config.HybridWeight, topK)
	return r.materialize(ctx, fusedIDs)
}

// vectorSearch runs a single-query vector search and returns candidate ids
// in ranked order, skipping the sentinel MissingID.
func (r *Retriever) vectorSearch(vectorQuery []float32, topK int) ([]int64, error) {
	_, ids, err := r.vectors.Search([][]float32{vectorQuery}, topK)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(ids[0]))
	for _, id := range ids[0] {
		if id == vectorindex.MissingID {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// fuse applies Reciprocal Rank Fusion: s(i) = alpha/(k+rank_v+1) +
// (1-alpha)/(k+rank_l+1), accumulating over whichever lists contain i. The
// union is ordered by descending score, ties broken by first occurrence
// across vector then lexical (matches Go's stable sort over the
// fusion-order insertion index).
func fuse(vectorRanked, lexicalRanked []int64, alpha float64, topK int) []int64 {
	type accum struct {
		id    int64
		score float64
		order int
	}
	scores := make(map[int64]*accum)
	order := 0

	for rank, id := range vectorRanked {
		rrf := alpha / float64(RRFConstant+rank+1)
		if a, ok := scores[id]; ok {
			a.score += rrf
		} else {
			scores[id] = &accum{id: id, score: rrf, order: order}
			order++
		}
	}
	for rank, id := range lexicalRanked {
		rrf := (1 - alpha) / float64(RRFConstant+rank+1)
		if a, ok := scores[id]; ok {
			a.score += rrf
		} else {
			scores[id] = &accum{id: id, score: rrf, order: order}
			order++
		}
	}

	all := make([]*accum, 0, len(scores))
	for _, a := range scores {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].order < all[j].order
	})

	if len(all) > topK {
		all = all[:topK]
	}
	out := make([]int64, len(all))
	for i, a := range all {
		out[i] = a.id
	}
	return out
}

// materialize resolves ids to ChunkRecords via the chunk store, silently
// skipping identifiers deleted between retrieval and materialization.
func (r *Retriever) materialize(ctx context.Context, ids []int64) ([]chunkstore.ChunkRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.chunks.GetMany(ctx, ids)
}
