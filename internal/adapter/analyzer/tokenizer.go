// Package analyzer holds the word-splitting and stop-word primitives
// shared by the keyword extractor (C2) and the query engine (C8).
package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer splits text into lowercase alphanumeric tokens and can filter
// out the fixed English stop-word list. Stemming is out of scope, so
// there is no stemming step here.
type Tokenizer struct {
	stopwords     map[string]struct{}
	dropStopwords bool
}

// NewTokenizer builds a Tokenizer. When dropStopwords is false, only
// lowercasing and word-splitting are applied — this is the mode the query
// engine uses at query time.
func NewTokenizer(dropStopwords bool) *Tokenizer {
	return &Tokenizer{
		stopwords:     englishStopwords(),
		dropStopwords: dropStopwords,
	}
}

// Tokenize splits text on non-alphanumeric runes, lowercases, and
// optionally drops stop-words.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if len(word) < 1 {
			continue
		}
		if t.dropStopwords {
			if _, isStop := t.stopwords[word]; isStop {
				continue
			}
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// IsStopword reports whether word is in the fixed English stop list.
func (t *Tokenizer) IsStopword(word string) bool {
	_, ok := t.stopwords[strings.ToLower(word)]
	return ok
}

// splitWords splits text into runs of unicode letters and digits.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

// englishStopwords returns the fixed English stop-word list RAKE uses to
// split candidate phrases.
func englishStopwords() map[string]struct{} {
	stops := []string{
		"a", "about", "above", "after", "again", "against", "all", "am", "an",
		"and", "any", "are", "as", "at", "be", "because", "been", "before",
		"being", "below", "between", "both", "but", "by", "can", "could",
		"did", "do", "does", "doing", "down", "during", "each", "few", "for",
		"from", "further", "had", "has", "have", "having", "he", "her",
		"here", "hers", "herself", "him", "himself", "his", "how", "i", "if",
		"in", "into", "is", "it", "its", "itself", "just", "me", "might",
		"more", "most", "must", "my", "myself", "no", "nor", "not", "now",
		"of", "off", "on", "once", "only", "or", "other", "our", "ours",
		"ourselves", "out", "over", "own", "same", "shall", "she", "should",
		"so", "some", "such", "than", "that", "the", "their", "theirs",
		"them", "themselves", "then", "there", "these", "they", "this",
		"those", "through", "to", "too", "under", "until", "up", "very",
		"was", "we", "were", "what", "when", "where", "which", "while",
		"who", "whom", "why", "will", "with", "would", "you", "your",
		"yours", "yourself", "yourselves",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
