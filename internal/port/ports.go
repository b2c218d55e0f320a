// Package port declares the seams between the build pipeline stages
// (C1-C7) and between the query runtime and its dependencies (C8-C9),
// implemented by internal/adapter.
package port

import "github.com/hypnagonia/docfind/internal/domain"

// Ingestor turns raw corpus bytes into ordered documents (C1).
type Ingestor interface {
	Ingest(data []byte) ([]domain.Document, error)
}

// Tokenizer splits text into normalized tokens. Both the keyword extractor
// and the query engine depend on this seam so they tokenize consistently.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Extractor produces scored keyphrase contributions for one document (C2).
type Extractor interface {
	Extract(doc domain.Document) ([]domain.Contribution, error)
}

// TextCompressor is a trained, static symbol-table compressor (C4). Train
// must be called once before Compress/Decompress are used; Blob/LoadBlob
// round-trip the trained table through the binary envelope.
type TextCompressor interface {
	Train(samples [][]byte)
	Compress(s []byte) []byte
	Decompress(c []byte) []byte
	Blob() []byte
	LoadBlob(b []byte) error
}

// FileWalker discovers files under a root directory using include/exclude
// glob patterns, for directory-mode ingestion.
type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

// FileInfo describes one file found by a FileWalker.
type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}
