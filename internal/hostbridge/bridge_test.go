package hostbridge

import (
	"encoding/json"
	"testing"

	"github.com/hypnagonia/docfind/internal/adapter/analyzer"
	"github.com/hypnagonia/docfind/internal/adapter/keyword"
	"github.com/hypnagonia/docfind/internal/codec"
	"github.com/hypnagonia/docfind/internal/domain"
	"github.com/hypnagonia/docfind/internal/index"
	"github.com/hypnagonia/docfind/internal/queryengine"
)

func buildArena(t *testing.T) []byte {
	t.Helper()
	docs := []domain.Document{
		{ID: 0, Title: "Getting Started", Href: "/a", Body: "intro guide"},
	}
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

func TestBridge_SearchJSON(t *testing.T) {
	arena := buildArena(t)
	calls := 0
	b := New(func() []byte {
		calls++
		return arena
	})

	data, err := b.SearchJSON("getting", 10)
	if err != nil {
		t.Fatalf("SearchJSON: %v", err)
	}
	var results []domain.SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(results) == 0 || results[0].Href != "/a" {
		t.Fatalf("unexpected results: %+v", results)
	}

	if _, err := b.SearchJSON("guide", 10); err != nil {
		t.Fatalf("SearchJSON second call: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected the arena reader called once per Search call, got %d", calls)
	}
	if b.State() != queryengine.StateReady {
		t.Errorf("expected engine Ready after first call, got %v", b.State())
	}
}

func TestBridge_PoisonedOnCorruptArena(t *testing.T) {
	b := New(func() []byte { return []byte("not a valid image") })

	_, err := b.Search("anything", 10)
	if err == nil {
		t.Fatal("expected an error for a corrupt arena")
	}
	if b.State() != queryengine.StatePoisoned {
		t.Errorf("expected Poisoned state, got %v", b.State())
	}
}
