package queryengine

import (
	"testing"

	"github.com/hypnagonia/docfind/internal/adapter/analyzer"
	"github.com/hypnagonia/docfind/internal/adapter/keyword"
	"github.com/hypnagonia/docfind/internal/codec"
	"github.com/hypnagonia/docfind/internal/domain"
	"github.com/hypnagonia/docfind/internal/index"
)

func buildTestImageBytes(t *testing.T, docs []domain.Document) []byte {
	t.Helper()
	extractor := keyword.NewRakeExtractor(analyzer.NewTokenizer(false), keyword.TierWeights{Metadata: 3.0, Title: 2.0, Body: 1.0}, 4)
	builder := index.NewBuilder(extractor, 16<<20, nil, nil, false)

	img, err := builder.Build(docs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	data, err := codec.Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

func sampleDocs() []domain.Document {
	return []domain.Document{
		{ID: 0, Title: "Getting Started", Href: "/a", Body: "intro guide"},
		{ID: 1, Title: "API Reference", Href: "/b", Body: "search functions"},
	}
}

func TestSearch_ExactMatchRanksFirst(t *testing.T) {
	raw := buildTestImageBytes(t, sampleDocs())
	e := New()

	results, err := e.Search(raw, "getting", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].Href != "/a" {
		t.Fatalf("expected /a to rank first, got %+v", results)
	}
}

func TestSearch_OneEditFuzzyMatch(t *testing.T) {
	raw := buildTestImageBytes(t, sampleDocs())
	e := New()

	results, err := e.Search(raw, "gettng", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].Href != "/a" {
		t.Fatalf("expected fuzzy match to still surface /a, got %+v", results)
	}
}

func TestSearch_NoMatch(t *testing.T) {
	raw := buildTestImageBytes(t, sampleDocs())
	e := New()

	results, err := e.Search(raw, "xyz", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %+v", results)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	raw := buildTestImageBytes(t, sampleDocs())
	e := New()

	results, err := e.Search(raw, "   !!! ", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for a query with zero effective tokens, got %+v", results)
	}
}

func TestSearch_MaxResultsClampedAndZeroed(t *testing.T) {
	raw := buildTestImageBytes(t, sampleDocs())

	e1 := New()
	results, err := e1.Search(raw, "search", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected max_results=0 to yield no results, got %+v", results)
	}

	e2 := New()
	results, err = e2.Search(raw, "search", 5000)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) > 1000 {
		t.Errorf("expected results clamped to 1000, got %d", len(results))
	}
}

// TestSearch_MaxResultsZeroReturnsNoneEvenWithMatches guards the API
// boundary directly: an explicit max_results=0 must yield [] even though
// the query genuinely matches, not because the query happens to match
// nothing.
func TestSearch_MaxResultsZeroReturnsNoneEvenWithMatches(t *testing.T) {
	raw := buildTestImageBytes(t, sampleDocs())
	e := New()

	results, err := e.Search(raw, "getting", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected max_results=0 to yield no results despite a real match, got %+v", results)
	}
}

// TestSearch_SubstringOfMultiWordTitleMatches exercises the concrete
// scenario where a single-word query must reach a document whose title is a
// stopword-free multi-word phrase: "getting" must not need to match the
// full "getting started" phrase key to surface /a.
func TestSearch_SubstringOfMultiWordTitleMatches(t *testing.T) {
	raw := buildTestImageBytes(t, sampleDocs())
	e := New()

	results, err := e.Search(raw, "getting", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].Href != "/a" {
		t.Fatalf("expected /a to rank first for a query matching one word of its title, got %+v", results)
	}
	for _, r := range results {
		if r.Href == "/b" {
			t.Errorf("expected /b to not match a query only present in /a's title, got %+v", results)
		}
	}
}

func TestSearch_EmptyCorpus(t *testing.T) {
	raw := buildTestImageBytes(t, nil)
	e := New()

	results, err := e.Search(raw, "anything", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results for an empty corpus, got %+v", results)
	}
}

func TestSearch_CorruptImagePoisonsEngine(t *testing.T) {
	raw := buildTestImageBytes(t, sampleDocs())
	corrupt := append([]byte(nil), raw...)
	corrupt[10] ^= 0xFF // flip a byte inside the envelope body

	e := New()
	_, err := e.Search(corrupt, "getting", 10)
	if err == nil {
		t.Fatal("expected the first query against a corrupt image to fail")
	}
	if e.State() != StatePoisoned {
		t.Errorf("expected engine state Poisoned, got %v", e.State())
	}

	_, err2 := e.Search(raw, "getting", 10) // raw is ignored after the first call
	if err2 == nil {
		t.Fatal("expected subsequent queries to also fail once poisoned")
	}
}

func TestEditBudget_Thresholds(t *testing.T) {
	cases := []struct {
		length int
		want   uint8
	}{
		{1, 0}, {3, 0}, {4, 1}, {7, 1}, {8, 2}, {20, 2},
	}
	for _, c := range cases {
		if got := editBudget(c.length); got != c.want {
			t.Errorf("editBudget(%d) = %d, want %d", c.length, got, c.want)
		}
	}
}
