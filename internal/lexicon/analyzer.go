package lexicon

import (
	"strings"
	"unicode"
)

// DefaultStopWords is a typical English stopword list for general document
// text, unlike a code-search analyzer's keyword/identifier-shaped list.
var DefaultStopWords = []string{
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to",
	"of", "in", "on", "at", "by", "with", "from", "as", "is", "are", "was",
	"were", "be", "been", "being", "it", "its", "this", "that", "these",
	"those", "he", "she", "they", "them", "his", "her", "their", "i", "you",
	"we", "do", "does", "did", "not", "no", "so", "up", "out", "about",
	"into", "over", "after", "before", "than", "too", "very", "can",
	"will", "just",
}

func buildStopWordMap(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}

// tokenizeUnicode splits on runs of non-letter/non-digit characters, the
// "unicode61" FTS5 tokenizer's behavior and a reasonable approximation of
// Bleve's unicode tokenizer.
func tokenizeUnicode(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func filterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, stop := stopWords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// analyzeText applies the lexicon's analyzer (tokenize, lowercase, drop
// stopwords) and rejoins the result for storage or query matching.
func analyzeText(text string, stopWords map[string]struct{}) string {
	tokens := tokenizeUnicode(text)
	tokens = filterStopWords(tokens, stopWords)
	return strings.Join(tokens, " ")
}
