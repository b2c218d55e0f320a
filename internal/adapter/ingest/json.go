// Package ingest implements the document ingestor (C1): parsing the input
// corpus into ordered domain.Document values. JSONIngestor handles the
// canonical array-of-objects form; DirIngestor (dir.go) supplements it with
// directory-mode ingestion.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hypnagonia/docfind/internal/domain"
)

// rawRecord mirrors the JSON input shape before normalization. Category is
// left as json.RawMessage because it may be a string or an array of
// strings; Keywords is an optional explicit per-document field, distinct
// from whatever phrases extraction discovers on its own.
type rawRecord struct {
	Title    *json.RawMessage `json:"title"`
	Category *json.RawMessage `json:"category"`
	Href     *json.RawMessage `json:"href"`
	Body     *json.RawMessage `json:"body"`
	Keywords *json.RawMessage `json:"keywords"`
}

// JSONIngestor parses a UTF-8 JSON array of document records. Field
// values are stored original-cased; lowercasing for extraction happens
// downstream in the keyword extractor.
type JSONIngestor struct{}

func NewJSONIngestor() *JSONIngestor {
	return &JSONIngestor{}
}

// Ingest parses data as a JSON array of records. Non-array input, and
// records with a non-string/non-array-of-strings field, fail with
// domain.ErrInputMalformed carrying the byte offset json.Decoder reports.
func (JSONIngestor) Ingest(data []byte) ([]domain.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, malformed(0, "input is not valid JSON: %v", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '[' {
		return nil, malformed(dec.InputOffset(), "top-level input must be a JSON array")
	}

	var docs []domain.Document
	id := 0
	for dec.More() {
		var raw rawRecord
		offsetBefore := dec.InputOffset()
		if err := dec.Decode(&raw); err != nil {
			return nil, malformed(offsetBefore, "malformed record: %v", err)
		}

		doc, err := normalizeRecord(id, raw)
		if err != nil {
			return nil, malformed(offsetBefore, "%v", err)
		}
		docs = append(docs, doc)
		id++
	}

	if _, err := dec.Token(); err != nil {
		return nil, malformed(dec.InputOffset(), "malformed closing bracket: %v", err)
	}

	return docs, nil
}

func normalizeRecord(id int, raw rawRecord) (domain.Document, error) {
	title, err := stringField(raw.Title, "title")
	if err != nil {
		return domain.Document{}, err
	}
	href, err := stringField(raw.Href, "href")
	if err != nil {
		return domain.Document{}, err
	}
	body, err := stringField(raw.Body, "body")
	if err != nil {
		return domain.Document{}, err
	}
	categories, err := stringOrArrayField(raw.Category, "category")
	if err != nil {
		return domain.Document{}, err
	}
	keywords, err := stringOrArrayField(raw.Keywords, "keywords")
	if err != nil {
		return domain.Document{}, err
	}

	if href == "" {
		return domain.Document{}, fmt.Errorf("record is missing required field %q", "href")
	}

	rawDoc := domain.RawDocument{
		Title:    title,
		Category: categories,
		Href:     href,
		Body:     body,
		Keywords: keywords,
	}

	return domain.Document{
		ID:       id,
		Title:    rawDoc.Title,
		Category: rawDoc.NormalizedCategory(),
		Href:     rawDoc.Href,
		Body:     rawDoc.Body,
		Keywords: rawDoc.Keywords,
	}, nil
}

func stringField(raw *json.RawMessage, name string) (string, error) {
	if raw == nil {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(*raw, &s); err != nil {
		return "", fmt.Errorf("field %q must be a string", name)
	}
	return s, nil
}

// stringOrArrayField accepts either a JSON string or an array of strings
// for fields that may be supplied either way.
func stringOrArrayField(raw *json.RawMessage, name string) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(*raw, &s); err == nil {
		if s == "" {
			return nil, nil
		}
		return []string{s}, nil
	}
	var arr []string
	if err := json.Unmarshal(*raw, &arr); err == nil {
		return arr, nil
	}
	return nil, fmt.Errorf("field %q must be a string or an array of strings", name)
}

func malformed(offset int64, format string, args ...any) error {
	return fmt.Errorf("%w: byte offset %d: %s", domain.ErrInputMalformed, offset, fmt.Sprintf(format, args...))
}
