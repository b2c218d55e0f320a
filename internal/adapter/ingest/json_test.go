package ingest

import (
	"errors"
	"testing"

	"github.com/hypnagonia/docfind/internal/domain"
)

func TestIngest_Basic(t *testing.T) {
	data := []byte(`[
		{"title":"Getting Started","href":"/a","body":"intro guide"},
		{"title":"API Reference","href":"/b","body":"search functions"}
	]`)

	docs, err := NewJSONIngestor().Ingest(data)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].ID != 0 || docs[1].ID != 1 {
		t.Errorf("expected doc_ids assigned by ingestion order, got %d, %d", docs[0].ID, docs[1].ID)
	}
	if docs[0].Href != "/a" {
		t.Errorf("expected href=/a, got %q", docs[0].Href)
	}
}

func TestIngest_EmptyArray(t *testing.T) {
	docs, err := NewJSONIngestor().Ingest([]byte(`[]`))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected empty result, got %d docs", len(docs))
	}
}

func TestIngest_NonArrayInput(t *testing.T) {
	_, err := NewJSONIngestor().Ingest([]byte(`{"title":"nope"}`))
	if !errors.Is(err, domain.ErrInputMalformed) {
		t.Errorf("expected ErrInputMalformed, got %v", err)
	}
}

func TestIngest_NotJSON(t *testing.T) {
	_, err := NewJSONIngestor().Ingest([]byte(`not json at all`))
	if !errors.Is(err, domain.ErrInputMalformed) {
		t.Errorf("expected ErrInputMalformed, got %v", err)
	}
}

func TestIngest_RecordMissingAllFields(t *testing.T) {
	_, err := NewJSONIngestor().Ingest([]byte(`[{}]`))
	if !errors.Is(err, domain.ErrInputMalformed) {
		t.Errorf("expected ErrInputMalformed, got %v", err)
	}
}

func TestIngest_MissingHrefRejected(t *testing.T) {
	_, err := NewJSONIngestor().Ingest([]byte(`[{"title":"x"}]`))
	if !errors.Is(err, domain.ErrInputMalformed) {
		t.Errorf("expected ErrInputMalformed for a record with no href, got %v", err)
	}
}

func TestIngest_EmptyHrefRejected(t *testing.T) {
	_, err := NewJSONIngestor().Ingest([]byte(`[{"title":"x","href":"","body":"y"}]`))
	if !errors.Is(err, domain.ErrInputMalformed) {
		t.Errorf("expected ErrInputMalformed for an empty href, got %v", err)
	}
}

func TestIngest_NonStringFieldRejected(t *testing.T) {
	_, err := NewJSONIngestor().Ingest([]byte(`[{"title": 42, "href":"/a"}]`))
	if !errors.Is(err, domain.ErrInputMalformed) {
		t.Errorf("expected ErrInputMalformed, got %v", err)
	}
}

func TestIngest_CategoryAsArray(t *testing.T) {
	docs, err := NewJSONIngestor().Ingest([]byte(`[{"href":"/a","category":["docs","guides"]}]`))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if docs[0].Category != "docs guides" {
		t.Errorf("expected space-joined category, got %q", docs[0].Category)
	}
}

func TestIngest_CategoryAsString(t *testing.T) {
	docs, err := NewJSONIngestor().Ingest([]byte(`[{"href":"/a","category":"docs"}]`))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if docs[0].Category != "docs" {
		t.Errorf("expected category=docs, got %q", docs[0].Category)
	}
}

func TestIngest_UnknownFieldsIgnored(t *testing.T) {
	docs, err := NewJSONIngestor().Ingest([]byte(`[{"href":"/a","nonsense":123}]`))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
}

func TestIngest_HrefOnlyDocumentHasZeroKeywords(t *testing.T) {
	docs, err := NewJSONIngestor().Ingest([]byte(`[{"href":"/only"}]`))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(docs) != 1 || docs[0].Href != "/only" {
		t.Fatalf("unexpected result: %+v", docs)
	}
}

func TestIngest_ExplicitKeywordsField(t *testing.T) {
	docs, err := NewJSONIngestor().Ingest([]byte(`[{"href":"/a","keywords":["alpha","beta"]}]`))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(docs[0].Keywords) != 2 || docs[0].Keywords[0] != "alpha" {
		t.Errorf("unexpected keywords: %v", docs[0].Keywords)
	}
}
