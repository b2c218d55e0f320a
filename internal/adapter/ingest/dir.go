package ingest

import (
	"path/filepath"
	"strings"

	"github.com/hypnagonia/docfind/internal/domain"
	"github.com/hypnagonia/docfind/internal/port"
)

// DirIngestor builds one domain.Document per file discovered by a
// port.FileWalker: a directory-mode ingestion path alongside the
// canonical JSON-array form. The file's path (relative to root) becomes
// href, its content becomes body, its base name with the extension
// stripped becomes title, and its immediate parent directory's name
// becomes category.
type DirIngestor struct {
	walker  port.FileWalker
	readAll func(path string) (string, error)
}

func NewDirIngestor(walker port.FileWalker, readAll func(path string) (string, error)) *DirIngestor {
	return &DirIngestor{walker: walker, readAll: readAll}
}

// IngestDir walks root and returns one Document per matched file, assigned
// doc_ids in the walker's traversal order.
func (d *DirIngestor) IngestDir(root string) ([]domain.Document, error) {
	files, err := d.walker.Walk(root)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(files))
	for id, f := range files {
		body, err := d.readAll(f.Path)
		if err != nil {
			return nil, err
		}

		rel, err := filepath.Rel(root, f.Path)
		if err != nil {
			rel = f.Path
		}

		base := filepath.Base(f.Path)
		title := strings.TrimSuffix(base, filepath.Ext(base))
		category := filepath.Base(filepath.Dir(rel))
		if category == "." || category == string(filepath.Separator) {
			category = ""
		}

		docs = append(docs, domain.Document{
			ID:       id,
			Title:    title,
			Category: category,
			Href:     filepath.ToSlash(rel),
			Body:     body,
		})
	}

	return docs, nil
}
