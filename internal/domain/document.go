// Package domain holds the types shared across the build pipeline and the
// query runtime: input documents, keyphrase contributions, postings, and the
// serialized index image.
package domain

import "strings"

// Tier is the fixed source classification a keyphrase contribution came
// from. Tiers carry different base weights (Metadata > Title > Body).
type Tier int

const (
	TierMetadata Tier = iota
	TierTitle
	TierBody
)

func (t Tier) String() string {
	switch t {
	case TierMetadata:
		return "metadata"
	case TierTitle:
		return "title"
	case TierBody:
		return "body"
	default:
		return "unknown"
	}
}

// RawDocument is a single input record as read from the corpus. Category
// may be supplied as a string or an array of strings; NormalizedCategory
// joins the array form with a single space.
type RawDocument struct {
	Title    string
	Category []string
	Href     string
	Body     string
	Keywords []string
}

// NormalizedCategory returns the category fields joined with a single space.
func (d RawDocument) NormalizedCategory() string {
	return strings.Join(d.Category, " ")
}

// Document is a RawDocument assigned a stable, zero-based ID by ingestion
// order. It is the unit C2 extracts keyphrases from and C4/C5 store.
type Document struct {
	ID       int
	Title    string
	Category string
	Href     string
	Body     string
	Keywords []string
}

// Posting attaches a relevance score to a document for one keyword.
type Posting struct {
	DocID uint32
	Score float32
}

// KeywordPostings is one row of the aggregated keyword table: a phrase and
// its postings, sorted by DocID ascending.
type KeywordPostings struct {
	Keyword  string
	Postings []Posting
}

// Contribution is a single (phrase, doc, tier, weight) fact produced by the
// keyword extractor, before aggregation groups and sums it.
type Contribution struct {
	Phrase string
	DocID  uint32
	Tier   Tier
	Weight float32
}

// DocRecord is the stored, string-interned form of a Document: every
// textual field is replaced by a string_id into the compressed string
// table. StringID 0 is the reserved sentinel for an empty string.
type DocRecord struct {
	Title    uint32
	Category uint32
	Href     uint32
	Body     uint32
}

// SearchResult is a single ranked, decompressed hit returned to the host.
type SearchResult struct {
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Href     string  `json:"href"`
	Body     string  `json:"body"`
	Score    float32 `json:"score"`
}
