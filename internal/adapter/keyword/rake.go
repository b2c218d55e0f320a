// Package keyword implements the keyword extractor (C2): RAKE-scored
// keyphrase contributions per document, tier-weighted across the
// metadata, title, and body sources. Title words are indexed individually
// rather than run through RAKE's phrase grouping, so a title stays matchable
// word-by-word.
package keyword

import (
	"strings"
	"unicode"

	"github.com/hypnagonia/docfind/internal/domain"
)

// wordSplitter is the seam RAKE needs beyond port.Tokenizer: it must know
// which words are stop-words to split candidate phrases at them, not just
// drop them.
type wordSplitter interface {
	Tokenize(text string) []string
	IsStopword(word string) bool
}

// TierWeights are the base weights RAKE contributions are scaled by,
// resolved from config.ScoringConfig.
type TierWeights struct {
	Metadata float64
	Title    float64
	Body     float64
}

// RakeExtractor implements port.Extractor with the RAKE algorithm over the
// {metadata, title, body} tiers, plus the supplemented explicit keywords
// field.
type RakeExtractor struct {
	tokenizer       wordSplitter
	weights         TierWeights
	maxPhraseTokens int
}

func NewRakeExtractor(tokenizer wordSplitter, weights TierWeights, maxPhraseTokens int) *RakeExtractor {
	return &RakeExtractor{tokenizer: tokenizer, weights: weights, maxPhraseTokens: maxPhraseTokens}
}

type tierSource struct {
	tier   domain.Tier
	text   string
	weight float64
}

type candidate struct {
	tier   domain.Tier
	phrase string
	score  float64
	weight float64
}

// Extract runs RAKE independently over category and body, then normalizes
// every surviving phrase's raw RAKE score against the document-wide maximum
// so the top-scoring phrase in the document earns exactly its tier's base
// weight. Title words bypass RAKE entirely and are indexed at their full
// tier weight (see titleWords). Extraction is deterministic: it never
// consults map iteration order for anything but the unordered set of
// emitted contributions, which the aggregator (C3) re-sorts.
func (e *RakeExtractor) Extract(doc domain.Document) ([]domain.Contribution, error) {
	sources := []tierSource{
		{domain.TierMetadata, doc.Category, e.weights.Metadata},
		{domain.TierBody, doc.Body, e.weights.Body},
	}

	var candidates []candidate
	maxScore := 0.0

	for _, src := range sources {
		for phrase, score := range e.rake(src.text) {
			if !validPhrase(phrase, e.maxPhraseTokens) {
				continue
			}
			candidates = append(candidates, candidate{tier: src.tier, phrase: phrase, score: score, weight: src.weight})
			if score > maxScore {
				maxScore = score
			}
		}
	}

	contributions := make([]domain.Contribution, 0, len(candidates)+len(doc.Keywords))
	for _, c := range candidates {
		norm := 0.0
		if maxScore > 0 {
			norm = c.score / maxScore
			if norm > 1 {
				norm = 1
			}
		}
		weight := c.weight * norm
		if weight <= 0 {
			continue
		}
		contributions = append(contributions, domain.Contribution{
			Phrase: c.phrase,
			DocID:  uint32(doc.ID),
			Tier:   c.tier,
			Weight: float32(weight),
		})
	}

	for _, w := range e.titleWords(doc.Title) {
		if !validPhrase(w, e.maxPhraseTokens) {
			continue
		}
		contributions = append(contributions, domain.Contribution{
			Phrase: w,
			DocID:  uint32(doc.ID),
			Tier:   domain.TierTitle,
			Weight: float32(e.weights.Title),
		})
	}

	for _, kw := range dedupeLower(doc.Keywords) {
		if !validPhrase(kw, e.maxPhraseTokens) {
			continue
		}
		contributions = append(contributions, domain.Contribution{
			Phrase: kw,
			DocID:  uint32(doc.ID),
			Tier:   domain.TierMetadata,
			Weight: float32(e.weights.Metadata),
		})
	}

	return contributions, nil
}

// titleWords splits the title into its individual content words instead of
// RAKE-grouping it into multi-word phrases. A title is short enough that
// every word is worth its own keyword slot, so a single-word query against
// "Getting Started" can match "getting" or "started" directly rather than
// only ever comparing against the merged two-word phrase key.
func (e *RakeExtractor) titleWords(title string) []string {
	words := e.tokenizer.Tokenize(title)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if e.tokenizer.IsStopword(w) {
			continue
		}
		kept = append(kept, w)
	}
	return dedupeLower(kept)
}

// rake runs the RAKE algorithm over a single tier's text and returns each
// candidate phrase's raw score, keyed by the phrase itself.
func (e *RakeExtractor) rake(text string) map[string]float64 {
	phrases := e.candidatePhrases(text)
	if len(phrases) == 0 {
		return nil
	}

	freq := make(map[string]int)
	degree := make(map[string]int)
	for _, phrase := range phrases {
		words := strings.Fields(phrase)
		l := len(words)
		for _, w := range words {
			freq[w]++
			degree[w] += l - 1
		}
	}

	wordScore := make(map[string]float64, len(freq))
	for w, f := range freq {
		wordScore[w] = float64(degree[w]+f) / float64(f)
	}

	phraseScore := make(map[string]float64, len(phrases))
	for _, phrase := range phrases {
		words := strings.Fields(phrase)
		var score float64
		for _, w := range words {
			score += wordScore[w]
		}
		if score > phraseScore[phrase] {
			phraseScore[phrase] = score
		}
	}
	return phraseScore
}

// candidatePhrases splits text into stop-word-delimited runs of content
// words, the classic RAKE phrase extraction step.
func (e *RakeExtractor) candidatePhrases(text string) []string {
	words := e.tokenizer.Tokenize(text)

	var phrases []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			phrases = append(phrases, strings.Join(current, " "))
			current = nil
		}
	}
	for _, w := range words {
		if e.tokenizer.IsStopword(w) {
			flush()
			continue
		}
		current = append(current, w)
	}
	flush()
	return phrases
}

func validPhrase(phrase string, maxTokens int) bool {
	phrase = strings.TrimSpace(phrase)
	if len(phrase) < 2 {
		return false
	}
	if len(strings.Fields(phrase)) > maxTokens {
		return false
	}
	if isDigitsOnly(phrase) {
		return false
	}
	return true
}

func isDigitsOnly(phrase string) bool {
	seenDigit := false
	for _, r := range phrase {
		if unicode.IsSpace(r) {
			continue
		}
		if !unicode.IsDigit(r) {
			return false
		}
		seenDigit = true
	}
	return seenDigit
}

func dedupeLower(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
