package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func charVocab() map[string]int32 {
	return map[string]int32{
		"[PAD]": 0,
		"[UNK]": 1,
		"[CLS]": 2,
		"[SEP]": 3,
		"a":     4,
		"b":     5,
		"c":     6,
	}
}

func TestEncodePair_LiteralScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSeqLen = 6
	cfg.DoLowerCase = false
	cfg.TokenizeCJK = false
	tok, err := NewFromVocab(charVocab(), cfg)
	require.NoError(t, err)

	enc := tok.EncodePair("a", "b")

	assert.Equal(t, []int32{2, 4, 3, 5, 3, 0}, enc.InputIDs)
	assert.Equal(t, []int32{1, 1, 1, 1, 1, 0}, enc.AttentionMask)
	assert.Equal(t, []int32{0, 0, 0, 1, 1, 0}, enc.TokenTypeIDs)
	assert.Equal(t, 5, enc.EffectiveLength)
}

func TestEncode_MaxSeqLenTwo_OnlyClsSep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSeqLen = 2
	tok, err := NewFromVocab(charVocab(), cfg)
	require.NoError(t, err)

	enc := tok.Encode("a b c")

	assert.Equal(t, []int32{2, 3}, enc.InputIDs)
	assert.Equal(t, []int32{1, 1}, enc.AttentionMask)
	assert.Equal(t, 2, enc.EffectiveLength)
}

func TestEncode_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSeqLen = 16
	tok, err := NewFromVocab(charVocab(), cfg)
	require.NoError(t, err)

	e1 := tok.Encode("a b")
	e2 := tok.Encode("a b")
	assert.Equal(t, e1, e2)
}

func TestNewFromVocab_RejectsMissingSpecialTokens(t *testing.T) {
	vocab := map[string]int32{"[PAD]": 0, "[UNK]": 1, "[CLS]": 2}
	_, err := NewFromVocab(vocab, DefaultConfig())
	require.Error(t, err)
}

func TestNewFromVocab_RejectsTinyMaxSeqLen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSeqLen = 1
	_, err := NewFromVocab(charVocab(), cfg)
	require.Error(t, err)
}

func TestWordpiece_ContinuingSubwordPrefix(t *testing.T) {
	vocab := map[string]int32{
		"[PAD]": 0, "[UNK]": 1, "[CLS]": 2, "[SEP]": 3,
		"un":   4,
		"##aff": 5,
		"##able": 6,
	}
	cfg := DefaultConfig()
	cfg.MaxSeqLen = 16
	tok, err := NewFromVocab(vocab, cfg)
	require.NoError(t, err)

	enc := tok.Encode("unaffable")
	// [CLS] un ##aff ##able [SEP] + padding
	assert.Equal(t, int32(2), enc.InputIDs[0])
	assert.Equal(t, int32(4), enc.InputIDs[1])
	assert.Equal(t, int32(5), enc.InputIDs[2])
	assert.Equal(t, int32(6), enc.InputIDs[3])
	assert.Equal(t, int32(3), enc.InputIDs[4])
}

func TestWordpiece_UnknownWhenNoPrefixMatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSeqLen = 16
	tok, err := NewFromVocab(charVocab(), cfg)
	require.NoError(t, err)

	enc := tok.Encode("xyz")
	assert.Equal(t, int32(1), enc.InputIDs[1]) // [UNK]
}

func TestCJKIsolation_EachCharacterOwnToken(t *testing.T) {
	vocab := map[string]int32{
		"[PAD]": 0, "[UNK]": 1, "[CLS]": 2, "[SEP]": 3, "中": 4, "文": 5,
	}
	cfg := DefaultConfig()
	cfg.MaxSeqLen = 16
	cfg.DoLowerCase = false
	tok, err := NewFromVocab(vocab, cfg)
	require.NoError(t, err)

	enc := tok.Encode("中文")
	assert.Equal(t, []int32{2, 4, 5, 3}, enc.InputIDs[:4])
}

func TestPunctuationSplit_EmittedAsOwnToken(t *testing.T) {
	vocab := map[string]int32{
		"[PAD]": 0, "[UNK]": 1, "[CLS]": 2, "[SEP]": 3, "a": 4, ".": 5,
	}
	cfg := DefaultConfig()
	cfg.MaxSeqLen = 16
	tok, err := NewFromVocab(vocab, cfg)
	require.NoError(t, err)

	enc := tok.Encode("a.")
	assert.Equal(t, []int32{2, 4, 5, 3}, enc.InputIDs[:4])
}
