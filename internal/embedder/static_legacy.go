package embedder

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// LegacyDimension is the output dimension of the hash-based fallback
// embedder. It is never wire-compatible with the ONNX model's dimension, so
// switching between the two requires a full index rebuild like switching
// vector-index variants does.
const LegacyDimension = 256

const (
	legacyTokenWeight = 0.7
	legacyNgramWeight = 0.3
	legacyNgramSize   = 3
)

// Static is a dependency-free hash-based embedder. It never calls into ONNX
// Runtime and exists only as a fallback for environments where no onnx model
// is configured; the query pipeline and writer never select it on their own.
type Static struct{}

// NewStatic constructs a Static embedder.
func NewStatic() *Static { return &Static{} }

func (e *Static) Embed(_ context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, LegacyDimension), nil
	}
	return normalizeL2(e.vector(trimmed), l2Epsilon), nil
}

func (e *Static) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *Static) Dimensions() int   { return LegacyDimension }
func (e *Static) ModelName() string { return "static-hash-legacy" }
func (e *Static) Close() error      { return nil }

func (e *Static) vector(text string) []float32 {
	vec := make([]float32, LegacyDimension)
	for _, tok := range tokenizeWords(text) {
		vec[hashIndex(tok, LegacyDimension)] += legacyTokenWeight
	}
	for _, gram := range ngrams(normalizeForNgrams(text), legacyNgramSize) {
		vec[hashIndex(gram, LegacyDimension)] += legacyNgramWeight
	}
	return vec
}

func tokenizeWords(text string) []string {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, strings.ToLower(current.String()))
			current.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func normalizeForNgrams(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func ngrams(text string, n int) []string {
	if len(text) < n {
		return nil
	}
	out := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		out = append(out, text[i:i+n])
	}
	return out
}

func hashIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}
