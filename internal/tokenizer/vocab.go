package tokenizer

import (
	"bufio"
	"fmt"
	"os"

	"github.com/ragcore/ragcore/internal/ragerr"
)

// Tokenizer produces deterministic WordPiece encodings bit-compatible with
// the vocabulary and configuration it was constructed with. It is stateless
// after construction and safe for concurrent read-only use.
type Tokenizer struct {
	vocab map[string]int32
	cfg   Config

	unkID int32
	clsID int32
	sepID int32
	padID int32
}

// New constructs a Tokenizer from three sidecar files: a newline-delimited
// vocabulary list (index = line number), a JSON settings file, and a JSON
// WordPiece model metadata file. Any missing sidecar file is fatal.
func New(vocabPath, settingsPath, modelPath string) (*Tokenizer, error) {
	cfg, err := loadConfig(settingsPath, modelPath)
	if err != nil {
		return nil, err
	}

	vocab, err := loadVocab(vocabPath)
	if err != nil {
		return nil, err
	}

	return NewFromVocab(vocab, cfg)
}

// NewFromVocab constructs a Tokenizer directly from an in-memory vocabulary,
// useful for tests and for embedding small vocabularies at compile time.
func NewFromVocab(vocab map[string]int32, cfg Config) (*Tokenizer, error) {
	if cfg.MaxSeqLen < 2 {
		return nil, ragerr.Configuration("ERR_TOK_MAX_SEQ_LEN",
			fmt.Sprintf("max_seq_len must be >= 2, got %d", cfg.MaxSeqLen), nil)
	}

	t := &Tokenizer{vocab: vocab, cfg: cfg}

	var ok bool
	if t.unkID, ok = lookup(vocab, cfg.UnkToken); !ok {
		return nil, missingSpecialToken(cfg.UnkToken)
	}
	if t.clsID, ok = lookup(vocab, cfg.ClsToken); !ok {
		return nil, missingSpecialToken(cfg.ClsToken)
	}
	if t.sepID, ok = lookup(vocab, cfg.SepToken); !ok {
		return nil, missingSpecialToken(cfg.SepToken)
	}
	if t.padID, ok = lookup(vocab, cfg.PadToken); !ok {
		return nil, missingSpecialToken(cfg.PadToken)
	}

	return t, nil
}

// MaxSeqLen returns the fixed sequence length every Encoding is padded to.
func (t *Tokenizer) MaxSeqLen() int {
	return t.cfg.MaxSeqLen
}

func missingSpecialToken(tok string) error {
	return ragerr.Configuration("ERR_TOK_VOCAB_MISSING_SPECIAL",
		fmt.Sprintf("vocabulary is missing required special token %q", tok), nil)
}

func lookup(vocab map[string]int32, token string) (int32, bool) {
	id, ok := vocab[token]
	return id, ok
}

func loadVocab(path string) (map[string]int32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ragerr.Configuration("ERR_TOK_VOCAB_MISSING",
			fmt.Sprintf("vocabulary file %q not found", path), err)
	}
	defer f.Close()

	vocab := make(map[string]int32)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var idx int32
	for scanner.Scan() {
		vocab[scanner.Text()] = idx
		idx++
	}
	if err := scanner.Err(); err != nil {
		return nil, ragerr.Configuration("ERR_TOK_VOCAB_INVALID",
			fmt.Sprintf("failed to read vocabulary file %q", path), err)
	}
	return vocab, nil
}
