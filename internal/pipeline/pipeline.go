// Package pipeline implements C9: the end-to-end query pipeline stitching
// query expansion, per-variant hybrid retrieval, union/dedupe, reranking,
// and context assembly together.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ragcore/ragcore/internal/chunkstore"
	"github.com/ragcore/ragcore/internal/embedder"
	"github.com/ragcore/ragcore/internal/llmclient"
	"github.com/ragcore/ragcore/internal/reranker"
	"github.com/ragcore/ragcore/internal/retriever"
)

// DefaultExpansionCount is the default number of additional LLM-generated
// phrasings requested alongside the original query.
const DefaultExpansionCount = 3

// DefaultRerankTopK is the number of candidates retrieved per variant before
// reranking.
const DefaultRerankTopK = 20

// DefaultUserTopK is the number of chunks surfaced to the caller after
// reranking.
const DefaultUserTopK = 7

// Config configures one Pipeline run.
type Config struct {
	ExpansionEnabled bool
	ExpansionCount   int // additional phrasings requested, beyond the original
	RerankTopK       int
	UserTopK         int
	MaxParallelism   int
}

// DefaultConfig returns query expansion enabled at the spec defaults.
func DefaultConfig() Config {
	return Config{
		ExpansionEnabled: true,
		ExpansionCount:   DefaultExpansionCount,
		RerankTopK:       DefaultRerankTopK,
		UserTopK:         DefaultUserTopK,
		MaxParallelism:   4,
	}
}

// Result is the outcome of one pipeline run.
type Result struct {
	Variants []string
	Chunks   []chunkstore.ChunkRecord
	Context  string
	Answer   string
}

// Pipeline wires C2 (embed), C7 (retrieve), C8 (rerank), and the LLM
// collaborator together per the query contract.
type Pipeline struct {
	embedder  embedder.Embedder
	retriever *retriever.Retriever
	reranker  reranker.Reranker
	llm       *llmclient.Client
	config    Config
}

// New builds a Pipeline over the given components.
func New(emb embedder.Embedder, ret *retriever.Retriever, rr reranker.Reranker, llm *llmclient.Client, config Config) *Pipeline {
	if config.ExpansionCount <= 0 {
		config.ExpansionCount = DefaultExpansionCount
	}
	if config.RerankTopK <= 0 {
		config.RerankTopK = DefaultRerankTopK
	}
	if config.UserTopK <= 0 {
		config.UserTopK = DefaultUserTopK
	}
	if config.MaxParallelism <= 0 {
		config.MaxParallelism = 4
	}
	return &Pipeline{embedder: emb, retriever: ret, reranker: rr, llm: llm, config: config}
}

// Run executes the full pipeline for one question: expand, retrieve per
// variant, union, rerank, slice, assemble context, and generate an answer.
func (p *Pipeline) Run(ctx context.Context, question string) (*Result, error) {
	variants := p.expand(ctx, question)

	records := p.retrieveVariants(ctx, variants)
	union := dedupeByID(records)

	reranked, err := p.reranker.Rerank(ctx, question, union)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	if len(reranked) > p.config.UserTopK {
		reranked = reranked[:p.config.UserTopK]
	}

	context_ := assembleContext(reranked)

	answer, err := p.llm.Generate(ctx, buildPrompt(context_, question))
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	return &Result{Variants: variants, Chunks: reranked, Context: context_, Answer: answer}, nil
}

// expand asks the LLM collaborator for up to ExpansionCount additional
// phrasings of question. Only lines containing a question mark are
// accepted; variants identical to the original (exact string equality) are
// dropped. Any LLM failure falls through to just the original question.
func (p *Pipeline) expand(ctx context.Context, question string) []string {
	variants := []string{question}
	if !p.config.ExpansionEnabled || p.config.ExpansionCount < 1 {
		return variants
	}

	prompt := fmt.Sprintf(
		"Rewrite the following question as %d alternative phrasings, one per line, each ending in a question mark. Question: %s",
		p.config.ExpansionCount, question)

	raw, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		slog.Warn("query_expansion_failed", slog.String("error", err.Error()))
		return variants
	}

	seen := map[string]struct{}{question: {}}
	want := 1 + p.config.ExpansionCount
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "?") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		variants = append(variants, line)
		if len(variants) >= want {
			break
		}
	}
	return variants
}

// retrieveVariants embeds and retrieves each variant concurrently, bounded
// by MaxParallelism. A variant whose embedding or retrieval fails
// contributes no records rather than failing the whole run; results keep
// variant order so union/dedupe stays deterministic.
func (p *Pipeline) retrieveVariants(ctx context.Context, variants []string) [][]chunkstore.ChunkRecord {
	results := make([][]chunkstore.ChunkRecord, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, p.config.MaxParallelism)
	var mu sync.Mutex

	for i, variant := range variants {
		i, variant := i, variant
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			recs, err := p.retrieveOne(gctx, variant)
			if err != nil {
				slog.Warn("variant_retrieval_failed",
					slog.String("variant", variant), slog.String("error", err.Error()))
				mu.Lock()
				results[i] = nil
				mu.Unlock()
				return nil
			}
			mu.Lock()
			results[i] = recs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("variant_retrieval_cancelled", slog.String("error", err.Error()))
	}
	return results
}

func (p *Pipeline) retrieveOne(ctx context.Context, variant string) ([]chunkstore.ChunkRecord, error) {
	vec, err := p.embedder.Embed(ctx, variant)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return p.retriever.Search(ctx, vec, variant, p.config.RerankTopK)
}

// dedupeByID flattens per-variant record slices in order, keeping only the
// first occurrence of each chunk identifier.
func dedupeByID(perVariant [][]chunkstore.ChunkRecord) []chunkstore.ChunkRecord {
	seen := make(map[int64]struct{})
	var out []chunkstore.ChunkRecord
	for _, recs := range perVariant {
		for _, rec := range recs {
			if _, ok := seen[rec.ID]; ok {
				continue
			}
			seen[rec.ID] = struct{}{}
			out = append(out, rec)
		}
	}
	return out
}

// assembleContext renders the kept chunks into the numbered context block
// passed to the LLM collaborator alongside the original question.
func assembleContext(records []chunkstore.ChunkRecord) string {
	var b strings.Builder
	for i, rec := range records {
		fmt.Fprintf(&b, "[Document %d]\n%s\nSource: %s\n\n", i+1, rec.Content, filepath.Base(rec.SourceURI))
	}
	return b.String()
}

func buildPrompt(contextBlock, question string) string {
	return fmt.Sprintf("Context:\n%s\nQuestion: %s\nAnswer:", contextBlock, question)
}
