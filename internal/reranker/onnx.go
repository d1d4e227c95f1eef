package reranker

import (
	"context"
	"os"
	"sort"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/ragcore/ragcore/internal/chunkstore"
	"github.com/ragcore/ragcore/internal/ragerr"
	"github.com/ragcore/ragcore/internal/tokenizer"
)

var envOnce sync.Once
var envErr error

// ensureEnvironment initializes the shared ONNX Runtime environment exactly
// once per process; the embedder may already have done this, in which case
// InitializeEnvironment's second call is a harmless no-op.
func ensureEnvironment() error {
	envOnce.Do(func() {
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// ONNX is a cross-encoder reranker backed by an ONNX Runtime session. Each
// candidate is scored with its own single-example inference call: the
// tokenizer's pair encoding distinguishes query and chunk segments via
// token-type ids, and the session's scalar logit at [0, 0] is the score.
type ONNX struct {
	mu        sync.Mutex
	session   *ort.DynamicAdvancedSession
	tokenizer *tokenizer.Tokenizer
	maxSeqLen int
}

// Config configures an ONNX reranker.
type Config struct {
	ModelPath     string
	VocabPath     string
	SettingsPath  string
	WordPieceMeta string
}

// New loads the tokenizer sidecars and opens an ONNX inference session for
// the cross-encoder model.
func New(cfg Config) (*ONNX, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, ragerr.Resource("ERR_RERANK_MODEL_MISSING",
			"reranker model not found", err)
	}

	tok, err := tokenizer.New(cfg.VocabPath, cfg.SettingsPath, cfg.WordPieceMeta)
	if err != nil {
		return nil, err
	}

	if err := ensureEnvironment(); err != nil {
		return nil, ragerr.Resource("ERR_RERANK_ORT_INIT", "failed to initialize ONNX Runtime", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"logits"},
		nil,
	)
	if err != nil {
		return nil, ragerr.Resource("ERR_RERANK_SESSION", "failed to create ONNX session for reranker model", err)
	}

	return &ONNX{
		session:   session,
		tokenizer: tok,
		maxSeqLen: tok.MaxSeqLen(),
	}, nil
}

// Close destroys the ONNX session.
func (r *ONNX) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		_ = r.session.Destroy()
		r.session = nil
	}
	return nil
}

// Rerank scores every (query, record.Content) pair and returns records
// sorted by descending score. Ties keep the input's relative order.
func (r *ONNX) Rerank(ctx context.Context, query string, records []chunkstore.ChunkRecord) ([]chunkstore.ChunkRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}

	scores := make([]float32, len(records))
	for i, rec := range records {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		score, err := ragerr.DoWithResult(ctx, ragerr.InternalRetryPolicy, func() (float32, error) {
			return r.scorePair(query, rec.Content)
		})
		if err != nil {
			return nil, err
		}
		scores[i] = score
	}

	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	out := make([]chunkstore.ChunkRecord, len(records))
	for i, idx := range order {
		out[i] = records[idx]
	}
	return out, nil
}

// scorePair runs a single-example inference for one (query, passage) pair
// and returns the scalar logit at output position [0, 0].
func (r *ONNX) scorePair(query, passage string) (float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	enc := r.tokenizer.EncodePair(query, passage)
	seqLen := r.maxSeqLen

	inputIDs := make([]int64, seqLen)
	attentionMask := make([]int64, seqLen)
	tokenTypeIDs := make([]int64, seqLen)
	for t := 0; t < seqLen; t++ {
		inputIDs[t] = int64(enc.InputIDs[t])
		attentionMask[t] = int64(enc.AttentionMask[t])
		tokenTypeIDs[t] = int64(enc.TokenTypeIDs[t])
	}

	inputShape := ort.NewShape(1, int64(seqLen))
	idsTensor, err := ort.NewTensor(inputShape, inputIDs)
	if err != nil {
		return 0, ragerr.TransientIO("ERR_RERANK_TENSOR", "failed to build input_ids tensor", err)
	}
	defer idsTensor.Destroy()

	maskTensor, err := ort.NewTensor(inputShape, attentionMask)
	if err != nil {
		return 0, ragerr.TransientIO("ERR_RERANK_TENSOR", "failed to build attention_mask tensor", err)
	}
	defer maskTensor.Destroy()

	typeTensor, err := ort.NewTensor(inputShape, tokenTypeIDs)
	if err != nil {
		return 0, ragerr.TransientIO("ERR_RERANK_TENSOR", "failed to build token_type_ids tensor", err)
	}
	defer typeTensor.Destroy()

	outputShape := ort.NewShape(1, 1)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		return 0, ragerr.TransientIO("ERR_RERANK_TENSOR", "failed to build logits output tensor", err)
	}
	defer outputTensor.Destroy()

	err = r.session.Run(
		[]ort.ArbitraryTensor{idsTensor, maskTensor, typeTensor},
		[]ort.ArbitraryTensor{outputTensor},
	)
	if err != nil {
		return 0, ragerr.TransientIO("ERR_RERANK_INFERENCE", "ONNX inference run failed", err)
	}

	return outputTensor.GetData()[0], nil
}

var _ Reranker = (*ONNX)(nil)
