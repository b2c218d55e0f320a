// Package aggregate implements the posting aggregator (C3): grouping
// per-document keyphrase contributions into the sorted, unique keyword
// table the FST builder requires.
package aggregate

import (
	"sort"

	"github.com/hypnagonia/docfind/internal/domain"
)

// Aggregate groups contributions by phrase, sums contributions that share
// a (phrase, doc_id) pair, sorts each phrase's postings by doc_id
// ascending, and returns the phrases sorted by byte-lex order. A
// duplicate phrase surviving the grouping step is a programmer error, not
// a data error, and panics with domain.ErrBuilderInvariant.
func Aggregate(contributions []domain.Contribution) []domain.KeywordPostings {
	byPhrase := make(map[string]map[uint32]float32)

	for _, c := range contributions {
		docs, ok := byPhrase[c.Phrase]
		if !ok {
			docs = make(map[uint32]float32)
			byPhrase[c.Phrase] = docs
		}
		docs[c.DocID] += c.Weight
	}

	phrases := make([]string, 0, len(byPhrase))
	for phrase := range byPhrase {
		phrases = append(phrases, phrase)
	}
	sort.Strings(phrases)

	result := make([]domain.KeywordPostings, 0, len(phrases))
	for i, phrase := range phrases {
		if i > 0 && phrases[i-1] == phrase {
			panic(domain.ErrBuilderInvariant)
		}

		docScores := byPhrase[phrase]
		postings := make([]domain.Posting, 0, len(docScores))
		for docID, score := range docScores {
			postings = append(postings, domain.Posting{DocID: docID, Score: score})
		}
		sort.Slice(postings, func(a, b int) bool { return postings[a].DocID < postings[b].DocID })

		result = append(result, domain.KeywordPostings{Keyword: phrase, Postings: postings})
	}

	return result
}
