package tokenizer

import "unicode"

// Encoding is the parallel-array output of the tokenizer: length is always
// exactly MaxSeqLen, with EffectiveLength giving the pre-padding token count.
type Encoding struct {
	InputIDs        []int32
	AttentionMask   []int32
	TokenTypeIDs    []int32
	EffectiveLength int
}

// Encode tokenizes a single text.
func (t *Tokenizer) Encode(text string) Encoding {
	return t.encodePair(text, "", false)
}

// EncodePair tokenizes a (query, passage) pair for a cross-encoder input.
func (t *Tokenizer) EncodePair(a, b string) Encoding {
	return t.encodePair(a, b, true)
}

func (t *Tokenizer) encodePair(a, b string, paired bool) Encoding {
	primary := t.basicTokenIDs(a)
	var secondary []int32
	if paired {
		secondary = t.basicTokenIDs(b)
	}

	reserved := 2
	if paired {
		reserved = 3
	}
	primary, secondary = truncatePair(primary, secondary, t.cfg.MaxSeqLen-reserved)

	ids := make([]int32, 0, t.cfg.MaxSeqLen)
	types := make([]int32, 0, t.cfg.MaxSeqLen)

	ids = append(ids, t.clsID)
	types = append(types, 0)
	ids = append(ids, primary...)
	for range primary {
		types = append(types, 0)
	}
	ids = append(ids, t.sepID)
	types = append(types, 0)

	if paired {
		ids = append(ids, secondary...)
		for range secondary {
			types = append(types, 1)
		}
		ids = append(ids, t.sepID)
		types = append(types, 1)
	}

	effective := len(ids)

	mask := make([]int32, effective, t.cfg.MaxSeqLen)
	for i := range mask {
		mask[i] = 1
	}

	for len(ids) < t.cfg.MaxSeqLen {
		ids = append(ids, t.padID)
		mask = append(mask, 0)
		types = append(types, t.cfg.PadTokenTypeID)
	}

	return Encoding{InputIDs: ids, AttentionMask: mask, TokenTypeIDs: types, EffectiveLength: effective}
}

// truncatePair trims the longer segment one token at a time (ties favor
// trimming the primary segment) until the combined length fits within
// budget.
func truncatePair(primary, secondary []int32, budget int) ([]int32, []int32) {
	if budget < 0 {
		budget = 0
	}
	for len(primary)+len(secondary) > budget {
		if len(primary) >= len(secondary) && len(primary) > 0 {
			primary = primary[:len(primary)-1]
		} else if len(secondary) > 0 {
			secondary = secondary[:len(secondary)-1]
		} else {
			break
		}
	}
	return primary, secondary
}

// basicTokenIDs runs clean -> CJK isolation -> basic split -> WordPiece over
// one input string and returns the resulting token ids (no special tokens).
func (t *Tokenizer) basicTokenIDs(text string) []int32 {
	if text == "" {
		return nil
	}

	s := clean(text)
	if t.cfg.TokenizeCJK {
		s = isolateCJK(s)
	}

	var ids []int32
	for _, preToken := range splitOnSpace(s) {
		for _, basic := range t.basicSplit(preToken) {
			ids = append(ids, t.wordpieceIDs(basic)...)
		}
	}
	return ids
}

func splitOnSpace(s string) []string {
	var tokens []string
	start := -1
	runes := []rune(s)
	for i, r := range runes {
		if r == ' ' {
			if start >= 0 {
				tokens = append(tokens, string(runes[start:i]))
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, string(runes[start:]))
	}
	return tokens
}

// basicSplit applies lowercasing, accent stripping, and punctuation
// splitting to a single whitespace-delimited pre-token.
func (t *Tokenizer) basicSplit(preToken string) []string {
	if t.cfg.DoLowerCase {
		preToken = toLower(preToken)
	}

	strip := t.cfg.DoLowerCase
	if t.cfg.StripAccents != nil {
		strip = *t.cfg.StripAccents
	}
	if strip {
		preToken = stripAccents(preToken)
	}

	var tokens []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			tokens = append(tokens, string(current))
			current = current[:0]
		}
	}
	for _, r := range preToken {
		if isPunctuation(r) {
			flush()
			tokens = append(tokens, string(r))
			continue
		}
		current = append(current, r)
	}
	flush()
	return tokens
}

func toLower(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}

// wordpieceIDs performs the greedy longest-match-first subword split,
// returning vocabulary ids.
func (t *Tokenizer) wordpieceIDs(word string) []int32 {
	runes := []rune(word)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) > t.cfg.MaxInputCharsPerWord {
		return []int32{t.unkID}
	}

	var ids []int32
	start := 0
	for start < len(runes) {
		end := len(runes)
		var matchID int32
		found := false
		for end > start {
			candidate := string(runes[start:end])
			if start > 0 {
				candidate = t.cfg.ContinuingSubwordPrefix + candidate
			}
			if id, ok := t.vocab[candidate]; ok {
				matchID = id
				found = true
				break
			}
			end--
		}
		if !found {
			return []int32{t.unkID}
		}
		ids = append(ids, matchID)
		start = end
	}
	return ids
}
