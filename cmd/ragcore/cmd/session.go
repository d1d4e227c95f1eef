package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ragcore/ragcore/internal/chunking"
	"github.com/ragcore/ragcore/internal/chunkstore"
	"github.com/ragcore/ragcore/internal/config"
	"github.com/ragcore/ragcore/internal/embedder"
	"github.com/ragcore/ragcore/internal/execpolicy"
	"github.com/ragcore/ragcore/internal/lexicon"
	"github.com/ragcore/ragcore/internal/llmclient"
	"github.com/ragcore/ragcore/internal/modelfetch"
	"github.com/ragcore/ragcore/internal/pipeline"
	"github.com/ragcore/ragcore/internal/reranker"
	"github.com/ragcore/ragcore/internal/retriever"
	"github.com/ragcore/ragcore/internal/vectorindex"
	"github.com/ragcore/ragcore/internal/writer"
)

// defaultEmbeddingModel and defaultRerankerModel describe the ONNX model
// files fetched into embedding_model_path/reranker_model_path on first run
// when the directory does not already contain them.
var (
	defaultEmbeddingModel = modelfetch.Spec{
		Name:     "embedding model",
		FileName: "model.onnx",
		URL:      "https://huggingface.co/sentence-transformers/all-MiniLM-L6-v2/resolve/main/onnx/model.onnx",
	}
	defaultRerankerModel = modelfetch.Spec{
		Name:     "reranker model",
		FileName: "model.onnx",
		URL:      "https://huggingface.co/cross-encoder/ms-marco-MiniLM-L-6-v2/resolve/main/onnx/model.onnx",
	}
	defaultVocab = modelfetch.Spec{
		Name:     "vocabulary",
		FileName: "vocab.txt",
		URL:      "https://huggingface.co/bert-base-uncased/resolve/main/vocab.txt",
	}
)

// session bundles every component a CLI command needs, wired from a loaded
// Config.
type session struct {
	cfg       *config.Config
	embedder  embedder.Embedder
	reranker  reranker.Reranker
	chunks    chunkstore.ChunkStore
	vectors   vectorindex.Index
	lex       lexicon.Lexicon
	writer    *writer.Writer
	retriever *retriever.Retriever
	llm       *llmclient.Client
	pipeline  *pipeline.Pipeline
	chunker   *chunking.Chunker
}

// openSession loads configuration rooted at dir and constructs every
// component needed to ingest or query. The returned close func must be
// called to release store/session handles.
func openSession(ctx context.Context, dir string) (*session, func(), error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	exec, err := execpolicy.Resolve(execpolicy.Preference(cfg.ExecutionProviderPreference), cfg.GPUDeviceID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve execution provider: %w", err)
	}
	slog.Info("execution_provider_resolved",
		slog.String("provider", exec.Provider),
		slog.Bool("fallback_to_cpu", exec.FallbackToCPU))

	if err := ensureModelFiles(ctx, cfg); err != nil {
		return nil, nil, err
	}

	emb, err := embedder.New(embedder.Config{
		ModelPath:     filepath.Join(cfg.EmbeddingModelPath, defaultEmbeddingModel.FileName),
		VocabPath:     filepath.Join(cfg.EmbeddingModelPath, defaultVocab.FileName),
		SettingsPath:  filepath.Join(cfg.EmbeddingModelPath, "tokenizer_config.json"),
		WordPieceMeta: filepath.Join(cfg.EmbeddingModelPath, "wordpiece_model.json"),
		Dimension:     cfg.EmbeddingDimension,
		BatchSize:     cfg.EmbeddingBatchSize,
		ModelName:     "ragcore-embedder",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init embedder: %w", err)
	}

	var rr reranker.Reranker
	if cfg.EnableReranking {
		rr, err = reranker.New(reranker.Config{
			ModelPath:     filepath.Join(cfg.RerankerModelPath, defaultRerankerModel.FileName),
			VocabPath:     filepath.Join(cfg.RerankerModelPath, defaultVocab.FileName),
			SettingsPath:  filepath.Join(cfg.RerankerModelPath, "tokenizer_config.json"),
			WordPieceMeta: filepath.Join(cfg.RerankerModelPath, "wordpiece_model.json"),
		})
		if err != nil {
			_ = emb.Close()
			return nil, nil, fmt.Errorf("init reranker: %w", err)
		}
	} else {
		rr = reranker.NoOp{}
	}

	chunkStorePath := resolvePath(dir, cfg.ChunkStorePath)
	chunks, err := chunkstore.NewSQLite(chunkStorePath)
	if err != nil {
		_ = emb.Close()
		_ = rr.Close()
		return nil, nil, fmt.Errorf("open chunk store: %w", err)
	}

	vectorIndexPath := resolvePath(dir, cfg.VectorIndexPath)
	vectors, err := vectorindex.Open(vectorIndexPath, cfg.EmbeddingDimension, vectorindex.VariantNative)
	if err != nil {
		_ = emb.Close()
		_ = rr.Close()
		_ = chunks.Close()
		return nil, nil, fmt.Errorf("load vector index: %w", err)
	}

	lexiconBasePath := resolvePath(dir, cfg.LexicalIndexPath)
	lex, err := lexicon.Open(lexiconBasePath, lexicon.BackendSQLite, lexicon.DefaultStopWords)
	if err != nil {
		_ = emb.Close()
		_ = rr.Close()
		_ = chunks.Close()
		return nil, nil, fmt.Errorf("open lexical index: %w", err)
	}

	wr, err := writer.New(writer.Paths{
		ChunkStorePath:   chunkStorePath,
		VectorIndexPath:  vectorIndexPath,
		LexiconBasePath:  lexiconBasePath,
		LexiconBackend:   lexicon.BackendSQLite,
		VectorVariant:    vectorindex.VariantNative,
		LexiconStopWords: lexicon.DefaultStopWords,
	}, cfg.EmbeddingDimension,
		writer.WithChunkStore(chunks),
		writer.WithVectorIndex(vectors),
		writer.WithLexicon(lex),
	)
	if err != nil {
		_ = emb.Close()
		_ = rr.Close()
		_ = chunks.Close()
		_ = lex.Close()
		return nil, nil, fmt.Errorf("init writer: %w", err)
	}

	ret := retriever.New(vectors, lex, chunks, retriever.Config{
		HybridEnabled: cfg.EnableHybridSearch,
		HybridWeight:  cfg.HybridAlpha,
	})

	llm := llmclient.New(llmclient.Config{
		Endpoint:    cfg.LLMEndpoint,
		Model:       cfg.LLMModel,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		MaxTokens:   cfg.MaxTokens,
	})

	pl := pipeline.New(emb, ret, rr, llm, pipeline.Config{
		ExpansionEnabled: cfg.EnableQueryExpansion,
		ExpansionCount:   cfg.QueryExpansionCount,
		RerankTopK:       cfg.RerankTopK,
		UserTopK:         cfg.DefaultTopK,
		MaxParallelism:   4,
	})

	chunker := chunking.New(chunking.Config{
		Size:     cfg.ChunkSize,
		Overlap:  cfg.ChunkOverlap,
		Semantic: cfg.EnableSemanticChunking,
	})

	s := &session{
		cfg:       cfg,
		embedder:  emb,
		reranker:  rr,
		chunks:    chunks,
		vectors:   vectors,
		lex:       lex,
		writer:    wr,
		retriever: ret,
		llm:       llm,
		pipeline:  pl,
		chunker:   chunker,
	}

	closeFn := func() {
		_ = wr.Close()
		_ = llm.Close()
		_ = rr.Close()
		_ = emb.Close()
	}
	return s, closeFn, nil
}

// ensureModelFiles downloads the embedding/reranker model and the shared
// vocabulary file into their configured directories if missing. The
// tokenizer_config.json and wordpiece_model.json sidecars are not fetched;
// tokenizer construction fails when they are absent.
func ensureModelFiles(ctx context.Context, cfg *config.Config) error {
	embedMgr := modelfetch.New(cfg.EmbeddingModelPath)
	if _, err := embedMgr.Ensure(ctx, defaultEmbeddingModel, nil); err != nil {
		return fmt.Errorf("ensure embedding model: %w", err)
	}
	if _, err := embedMgr.Ensure(ctx, defaultVocab, nil); err != nil {
		return fmt.Errorf("ensure embedding vocabulary: %w", err)
	}

	if cfg.EnableReranking {
		rerankMgr := modelfetch.New(cfg.RerankerModelPath)
		if _, err := rerankMgr.Ensure(ctx, defaultRerankerModel, nil); err != nil {
			return fmt.Errorf("ensure reranker model: %w", err)
		}
		if _, err := rerankMgr.Ensure(ctx, defaultVocab, nil); err != nil {
			return fmt.Errorf("ensure reranker vocabulary: %w", err)
		}
	}
	return nil
}

func resolvePath(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
