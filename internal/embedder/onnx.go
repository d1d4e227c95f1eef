package embedder

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/ragcore/ragcore/internal/ragerr"
	"github.com/ragcore/ragcore/internal/tokenizer"
)

// l2Epsilon is the floor applied to the norm before division, matching a
// masked-mean output of all zeros (empty attention mask) passing through
// unnormalized rather than producing NaN.
const l2Epsilon = 1e-9

var envOnce sync.Once
var envErr error

func ensureEnvironment() error {
	envOnce.Do(func() {
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// ONNXEmbedder runs a sentence-transformer ONNX model and pools its
// last-hidden-state output into a single sentence embedding per input.
type ONNXEmbedder struct {
	mu        sync.Mutex
	session   *ort.DynamicAdvancedSession
	tokenizer *tokenizer.Tokenizer
	modelName string
	dimension int
	maxSeqLen int
	batchSize int
}

// Config configures an ONNXEmbedder.
type Config struct {
	ModelPath     string
	VocabPath     string
	SettingsPath  string
	WordPieceMeta string
	Dimension     int
	BatchSize     int
	ModelName     string
}

// New loads the tokenizer sidecars and opens an ONNX inference session for
// the embedding model.
func New(cfg Config) (*ONNXEmbedder, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, ragerr.Resource("ERR_EMBED_MODEL_MISSING",
			fmt.Sprintf("embedding model %q not found", cfg.ModelPath), err)
	}

	tok, err := tokenizer.New(cfg.VocabPath, cfg.SettingsPath, cfg.WordPieceMeta)
	if err != nil {
		return nil, err
	}

	if err := ensureEnvironment(); err != nil {
		return nil, ragerr.Resource("ERR_EMBED_ORT_INIT", "failed to initialize ONNX Runtime", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, ragerr.Resource("ERR_EMBED_SESSION", "failed to create ONNX session for embedding model", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	modelName := cfg.ModelName
	if modelName == "" {
		modelName = "onnx-sentence-embedder"
	}

	return &ONNXEmbedder{
		session:   session,
		tokenizer: tok,
		modelName: modelName,
		dimension: cfg.Dimension,
		maxSeqLen: tok.MaxSeqLen(),
		batchSize: batchSize,
	}, nil
}

func (e *ONNXEmbedder) Dimensions() int   { return e.dimension }
func (e *ONNXEmbedder) ModelName() string { return e.modelName }

func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		_ = e.session.Destroy()
		e.session = nil
	}
	return nil
}

// Embed embeds a single text under the internal retry policy.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch splits texts into fixed-size batches and runs each under the
// internal retry policy, concatenating results in input order.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vecs, err := ragerr.DoWithResult(ctx, ragerr.InternalRetryPolicy, func() ([][]float32, error) {
			return e.runBatch(batch)
		})
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *ONNXEmbedder) runBatch(texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(texts)
	seqLen := e.maxSeqLen

	inputIDs := make([]int64, n*seqLen)
	attentionMask := make([]int64, n*seqLen)
	tokenTypeIDs := make([]int64, n*seqLen)
	masks := make([][]int32, n)

	for i, text := range texts {
		enc := e.tokenizer.Encode(text)
		masks[i] = enc.AttentionMask
		for t := 0; t < seqLen; t++ {
			inputIDs[i*seqLen+t] = int64(enc.InputIDs[t])
			attentionMask[i*seqLen+t] = int64(enc.AttentionMask[t])
			tokenTypeIDs[i*seqLen+t] = int64(enc.TokenTypeIDs[t])
		}
	}

	inputShape := ort.NewShape(int64(n), int64(seqLen))
	idsTensor, err := ort.NewTensor(inputShape, inputIDs)
	if err != nil {
		return nil, ragerr.TransientIO("ERR_EMBED_TENSOR", "failed to build input_ids tensor", err)
	}
	defer idsTensor.Destroy()

	maskTensor, err := ort.NewTensor(inputShape, attentionMask)
	if err != nil {
		return nil, ragerr.TransientIO("ERR_EMBED_TENSOR", "failed to build attention_mask tensor", err)
	}
	defer maskTensor.Destroy()

	typeTensor, err := ort.NewTensor(inputShape, tokenTypeIDs)
	if err != nil {
		return nil, ragerr.TransientIO("ERR_EMBED_TENSOR", "failed to build token_type_ids tensor", err)
	}
	defer typeTensor.Destroy()

	hiddenDim := e.dimension
	outputShape := ort.NewShape(int64(n), int64(seqLen), int64(hiddenDim))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		return nil, ragerr.TransientIO("ERR_EMBED_TENSOR", "failed to build last_hidden_state output tensor", err)
	}
	defer outputTensor.Destroy()

	err = e.session.Run(
		[]ort.ArbitraryTensor{idsTensor, maskTensor, typeTensor},
		[]ort.ArbitraryTensor{outputTensor},
	)
	if err != nil {
		return nil, ragerr.TransientIO("ERR_EMBED_INFERENCE", "ONNX inference run failed", err)
	}

	data := outputTensor.GetData()
	results := make([][]float32, n)
	for i := 0; i < n; i++ {
		results[i] = meanPool(data, masks[i], i, seqLen, hiddenDim)
	}
	return results, nil
}

// meanPool computes the masked mean over the token axis for sequence i of a
// [n, seqLen, hiddenDim] hidden-state buffer, then L2-normalizes the result.
// A fully-zero mask yields the zero vector without dividing by zero.
func meanPool(data []float32, mask []int32, seqIdx, seqLen, hiddenDim int) []float32 {
	sum := make([]float32, hiddenDim)
	var count int32
	base := seqIdx * seqLen * hiddenDim
	for t := 0; t < seqLen; t++ {
		if mask[t] == 0 {
			continue
		}
		count++
		off := base + t*hiddenDim
		for d := 0; d < hiddenDim; d++ {
			sum[d] += data[off+d]
		}
	}
	if count == 0 {
		return make([]float32, hiddenDim)
	}
	denom := float32(count)
	for d := range sum {
		sum[d] /= denom
	}
	return normalizeL2(sum, l2Epsilon)
}
