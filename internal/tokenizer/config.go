// Package tokenizer implements the deterministic WordPiece encoder: clean,
// CJK isolation, basic split, greedy longest-match subword matching, and
// CLS/SEP assembly with truncation and padding.
package tokenizer

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ragcore/ragcore/internal/ragerr"
)

// Config is the resolved tokenizer configuration, loaded at construction
// from the settings and model sidecar files.
type Config struct {
	DoLowerCase bool
	TokenizeCJK bool
	// StripAccents is nil to mean "follow DoLowerCase", matching the
	// teacher vocabulary's convention for uncased models.
	StripAccents *bool
	MaxSeqLen    int

	UnkToken string
	ClsToken string
	SepToken string
	PadToken string

	ContinuingSubwordPrefix string
	MaxInputCharsPerWord    int
	PadTokenTypeID          int32
}

// DefaultConfig mirrors a standard uncased BERT-family WordPiece setup.
func DefaultConfig() Config {
	return Config{
		DoLowerCase:             true,
		TokenizeCJK:             true,
		MaxSeqLen:               256,
		UnkToken:                "[UNK]",
		ClsToken:                "[CLS]",
		SepToken:                "[SEP]",
		PadToken:                "[PAD]",
		ContinuingSubwordPrefix: "##",
		MaxInputCharsPerWord:    100,
		PadTokenTypeID:          0,
	}
}

// settingsFile is the on-disk shape of the tokenizer settings sidecar file.
type settingsFile struct {
	DoLowerCase  bool  `json:"do_lower_case"`
	TokenizeCJK  bool  `json:"tokenize_chinese_chars"`
	StripAccents *bool `json:"strip_accents"`
	MaxSeqLen    int   `json:"max_seq_len"`
}

// modelFile is the on-disk shape of the WordPiece model metadata sidecar.
type modelFile struct {
	UnkToken                string `json:"unk_token"`
	ClsToken                string `json:"cls_token"`
	SepToken                string `json:"sep_token"`
	PadToken                string `json:"pad_token"`
	ContinuingSubwordPrefix string `json:"continuing_subword_prefix"`
	MaxInputCharsPerWord    int    `json:"max_input_chars_per_word"`
}

func loadConfig(settingsPath, modelPath string) (Config, error) {
	cfg := DefaultConfig()

	sdata, err := os.ReadFile(settingsPath)
	if err != nil {
		return Config{}, ragerr.Configuration("ERR_TOK_SETTINGS_MISSING",
			fmt.Sprintf("tokenizer settings file %q not found", settingsPath), err)
	}
	var sf settingsFile
	if err := json.Unmarshal(sdata, &sf); err != nil {
		return Config{}, ragerr.Configuration("ERR_TOK_SETTINGS_INVALID",
			fmt.Sprintf("tokenizer settings file %q is not valid JSON", settingsPath), err)
	}
	cfg.DoLowerCase = sf.DoLowerCase
	cfg.TokenizeCJK = sf.TokenizeCJK
	cfg.StripAccents = sf.StripAccents
	if sf.MaxSeqLen > 0 {
		cfg.MaxSeqLen = sf.MaxSeqLen
	}

	mdata, err := os.ReadFile(modelPath)
	if err != nil {
		return Config{}, ragerr.Configuration("ERR_TOK_MODEL_MISSING",
			fmt.Sprintf("WordPiece model metadata file %q not found", modelPath), err)
	}
	var mf modelFile
	if err := json.Unmarshal(mdata, &mf); err != nil {
		return Config{}, ragerr.Configuration("ERR_TOK_MODEL_INVALID",
			fmt.Sprintf("WordPiece model metadata file %q is not valid JSON", modelPath), err)
	}
	if mf.UnkToken != "" {
		cfg.UnkToken = mf.UnkToken
	}
	if mf.ClsToken != "" {
		cfg.ClsToken = mf.ClsToken
	}
	if mf.SepToken != "" {
		cfg.SepToken = mf.SepToken
	}
	if mf.PadToken != "" {
		cfg.PadToken = mf.PadToken
	}
	if mf.ContinuingSubwordPrefix != "" {
		cfg.ContinuingSubwordPrefix = mf.ContinuingSubwordPrefix
	}
	if mf.MaxInputCharsPerWord > 0 {
		cfg.MaxInputCharsPerWord = mf.MaxInputCharsPerWord
	}

	return cfg, nil
}
