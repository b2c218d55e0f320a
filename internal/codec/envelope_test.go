package codec

import (
	"errors"
	"testing"

	"github.com/hypnagonia/docfind/internal/domain"
)

func sampleImage() *domain.Image {
	return &domain.Image{
		Version:        domain.CurrentImageVersion,
		FSTBytes:       []byte{1, 2, 3},
		Postings:       [][]domain.Posting{{{DocID: 0, Score: 3.0}}, {{DocID: 1, Score: 1.5}, {DocID: 0, Score: 0.5}}},
		CompressorBlob: []byte{9, 9, 9},
		Strings:        [][]byte{[]byte("hello"), []byte("world")},
		Docs: []domain.DocRecord{
			{Title: 1, Category: 0, Href: 0, Body: 2},
			{Title: 2, Category: 0, Href: 0, Body: 1},
		},
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	img := sampleImage()
	data, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.Version != img.Version {
		t.Errorf("version mismatch: %d != %d", got.Version, img.Version)
	}
	if len(got.Postings) != len(img.Postings) || got.Postings[1][0].DocID != 1 {
		t.Errorf("postings mismatch: %+v", got.Postings)
	}
	if len(got.Strings) != 2 || string(got.Strings[0]) != "hello" {
		t.Errorf("strings mismatch: %+v", got.Strings)
	}
	if got.Docs[0].Title != 1 || got.Docs[1].Body != 1 {
		t.Errorf("docs mismatch: %+v", got.Docs)
	}
}

func TestEncode_DeterministicBytes(t *testing.T) {
	img := sampleImage()
	a, _ := Encode(img)
	b, _ := Encode(img)
	if string(a) != string(b) {
		t.Error("expected two encodes of the same image to be byte-identical")
	}
}

func TestDecode_EmptyImageValid(t *testing.T) {
	img := &domain.Image{Version: domain.CurrentImageVersion}
	data, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode empty image: %v", err)
	}
	if len(got.Docs) != 0 || len(got.Postings) != 0 {
		t.Errorf("expected an empty but valid image, got %+v", got)
	}
}

func TestDecode_BadMagic(t *testing.T) {
	_, err := Decode([]byte("XXXX\x01\x00\x00\x00"))
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Errorf("expected ErrIndexCorrupt, got %v", err)
	}
}

func TestDecode_VersionMismatch(t *testing.T) {
	img := sampleImage()
	img.Version = 9999
	data, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = Decode(data)
	if !errors.Is(err, domain.ErrIndexVersionMismatch) {
		t.Errorf("expected ErrIndexVersionMismatch, got %v", err)
	}
}

func TestDecode_TruncatedInputIsCorrupt(t *testing.T) {
	img := sampleImage()
	data, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = Decode(data[:len(data)-5])
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Errorf("expected ErrIndexCorrupt for truncated input, got %v", err)
	}
}

func TestDecode_CorruptPostingFailsValidation(t *testing.T) {
	img := sampleImage()
	img.Postings[0][0].DocID = 999 // out of range for len(Docs)
	data, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = Decode(data)
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Errorf("expected ErrIndexCorrupt for out-of-range doc_id, got %v", err)
	}
}
