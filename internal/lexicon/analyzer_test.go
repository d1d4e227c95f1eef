package lexicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeUnicode_SplitsOnPunctuationAndLowercases(t *testing.T) {
	assert.Equal(t, []string{"the", "quick", "fox"}, tokenizeUnicode("The quick, fox!"))
}

func TestTokenizeUnicode_KeepsDigits(t *testing.T) {
	assert.Equal(t, []string{"rfc", "7231"}, tokenizeUnicode("RFC-7231"))
}

func TestFilterStopWords_DropsKnownWords(t *testing.T) {
	sw := buildStopWordMap(DefaultStopWords)
	got := filterStopWords([]string{"the", "quick", "fox", "and", "dog"}, sw)
	assert.Equal(t, []string{"quick", "fox", "dog"}, got)
}

func TestAnalyzeText_EmptyAfterStopwordsYieldsEmptyString(t *testing.T) {
	sw := buildStopWordMap(DefaultStopWords)
	assert.Equal(t, "", analyzeText("the and of", sw))
}
