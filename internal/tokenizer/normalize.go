package tokenizer

import "unicode"

// cjkRange is a closed codepoint interval treated as CJK for isolation
// purposes.
type cjkRange struct{ lo, hi rune }

var cjkRanges = []cjkRange{
	{0x4E00, 0x9FFF},
	{0x3400, 0x4DBF},
	{0x20000, 0x2A6DF},
	{0x2A700, 0x2B73F},
	{0x2B740, 0x2B81F},
	{0x2B820, 0x2CEAF},
	{0xF900, 0xFAFF},
	{0x2F800, 0x2FA1F},
}

func isCJK(r rune) bool {
	for _, rg := range cjkRanges {
		if r >= rg.lo && r <= rg.hi {
			return true
		}
	}
	return false
}

// clean drops NUL, the replacement character, and control characters
// (other than tab/newline/CR), and maps every whitespace rune, tab/newline/CR
// included, to ASCII space.
func clean(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r == 0 || r == 0xFFFD:
			continue
		case r == '\t' || r == '\n' || r == '\r':
			out = append(out, ' ')
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			out = append(out, ' ')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// isolateCJK pads every CJK codepoint with spaces so it becomes its own
// pre-token.
func isolateCJK(s string) string {
	out := make([]rune, 0, len(s)*2)
	for _, r := range s {
		if isCJK(r) {
			out = append(out, ' ', r, ' ')
		} else {
			out = append(out, r)
		}
	}
	return string(out)
}

// isPunctuation treats a rune as punctuation when its Unicode general
// category is one of {connector, dash, open, close, initial-quote,
// final-quote, other} punctuation, or its codepoint falls in the listed
// ASCII ranges (matching a standard BERT-style _is_punctuation check, which
// treats e.g. '$', '+', '^' as punctuation even though their Unicode
// category is not one of the punctuation classes).
func isPunctuation(r rune) bool {
	cp := int(r)
	if (cp >= 33 && cp <= 47) || (cp >= 58 && cp <= 64) || (cp >= 91 && cp <= 96) || (cp >= 123 && cp <= 126) {
		return true
	}
	return unicode.In(r, unicode.Pc, unicode.Pd, unicode.Ps, unicode.Pe, unicode.Pi, unicode.Pf, unicode.Po)
}

// stripAccents drops combining marks after a best-effort canonical
// decomposition. No retrieved example repo imports a Unicode normalization
// library, so decomposition is limited to the Latin-1 Supplement and Latin
// Extended-A blocks (U+00C0-U+017F), the practical range of accented
// characters that occur in WordPiece vocabularies. Characters outside the
// table pass through unchanged, except combining marks (category Mn), which
// are dropped wherever they occur.
func stripAccents(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if base, ok := accentFold[r]; ok {
			out = append(out, base)
			continue
		}
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// accentFold maps common accented Latin letters to their unaccented base,
// standing in for NFD decomposition + combining-mark removal.
var accentFold = map[rune]rune{
	'À': 'A', 'Á': 'A', 'Â': 'A', 'Ã': 'A', 'Ä': 'A', 'Å': 'A',
	'à': 'a', 'á': 'a', 'â': 'a', 'ã': 'a', 'ä': 'a', 'å': 'a',
	'È': 'E', 'É': 'E', 'Ê': 'E', 'Ë': 'E',
	'è': 'e', 'é': 'e', 'ê': 'e', 'ë': 'e',
	'Ì': 'I', 'Í': 'I', 'Î': 'I', 'Ï': 'I',
	'ì': 'i', 'í': 'i', 'î': 'i', 'ï': 'i',
	'Ò': 'O', 'Ó': 'O', 'Ô': 'O', 'Õ': 'O', 'Ö': 'O',
	'ò': 'o', 'ó': 'o', 'ô': 'o', 'õ': 'o', 'ö': 'o',
	'Ù': 'U', 'Ú': 'U', 'Û': 'U', 'Ü': 'U',
	'ù': 'u', 'ú': 'u', 'û': 'u', 'ü': 'u',
	'Ý': 'Y', 'ý': 'y', 'ÿ': 'y',
	'Ñ': 'N', 'ñ': 'n',
	'Ç': 'C', 'ç': 'c',
	'Ā': 'A', 'ā': 'a', 'Ă': 'A', 'ă': 'a', 'Ą': 'A', 'ą': 'a',
	'Ć': 'C', 'ć': 'c', 'Ĉ': 'C', 'ĉ': 'c', 'Ċ': 'C', 'ċ': 'c', 'Č': 'C', 'č': 'c',
	'Ē': 'E', 'ē': 'e', 'Ĕ': 'E', 'ĕ': 'e', 'Ė': 'E', 'ė': 'e', 'Ę': 'E', 'ę': 'e', 'Ě': 'E', 'ě': 'e',
	'Ĝ': 'G', 'ĝ': 'g', 'Ğ': 'G', 'ğ': 'g', 'Ġ': 'G', 'ġ': 'g', 'Ģ': 'G', 'ģ': 'g',
	'Ĥ': 'H', 'ĥ': 'h',
	'Ĩ': 'I', 'ĩ': 'i', 'Ī': 'I', 'ī': 'i', 'Ĭ': 'I', 'ĭ': 'i', 'Į': 'I', 'į': 'i',
	'Ĵ': 'J', 'ĵ': 'j',
	'Ķ': 'K', 'ķ': 'k',
	'Ĺ': 'L', 'ĺ': 'l', 'Ļ': 'L', 'ļ': 'l', 'Ľ': 'L', 'ľ': 'l',
	'Ń': 'N', 'ń': 'n', 'Ņ': 'N', 'ņ': 'n', 'Ň': 'N', 'ň': 'n',
	'Ō': 'O', 'ō': 'o', 'Ŏ': 'O', 'ŏ': 'o', 'Ő': 'O', 'ő': 'o',
	'Ŕ': 'R', 'ŕ': 'r', 'Ŗ': 'R', 'ŗ': 'r', 'Ř': 'R', 'ř': 'r',
	'Ś': 'S', 'ś': 's', 'Ŝ': 'S', 'ŝ': 's', 'Ş': 'S', 'ş': 's', 'Š': 'S', 'š': 's',
	'Ţ': 'T', 'ţ': 't', 'Ť': 'T', 'ť': 't',
	'Ũ': 'U', 'ũ': 'u', 'Ū': 'U', 'ū': 'u', 'Ŭ': 'U', 'ŭ': 'u', 'Ů': 'U', 'ů': 'u', 'Ű': 'U', 'ű': 'u', 'Ų': 'U', 'ų': 'u',
	'Ŵ': 'W', 'ŵ': 'w',
	'Ŷ': 'Y', 'ŷ': 'y', 'Ÿ': 'Y',
	'Ź': 'Z', 'ź': 'z', 'Ż': 'Z', 'ż': 'z', 'Ž': 'Z', 'ž': 'z',
}
