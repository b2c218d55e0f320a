package ingest

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/hypnagonia/docfind/internal/port"
)

// fakeWalker returns a fixed file list without touching the filesystem.
type fakeWalker struct {
	files []port.FileInfo
}

func (w fakeWalker) Walk(root string) ([]port.FileInfo, error) {
	return w.files, nil
}

func fakeReadAll(contents map[string]string) func(string) (string, error) {
	return func(path string) (string, error) {
		body, ok := contents[path]
		if !ok {
			return "", fmt.Errorf("no fake content for %s", path)
		}
		return body, nil
	}
}

func TestIngestDir_PopulatesCategoryFromParentDir(t *testing.T) {
	root := filepath.FromSlash("/corpus")
	guidePath := filepath.Join(root, "guides", "getting-started.md")

	walker := fakeWalker{files: []port.FileInfo{{Path: guidePath}}}
	readAll := fakeReadAll(map[string]string{guidePath: "intro text"})

	docs, err := NewDirIngestor(walker, readAll).IngestDir(root)
	if err != nil {
		t.Fatalf("IngestDir: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
	if docs[0].Category != "guides" {
		t.Errorf("expected category=guides, got %q", docs[0].Category)
	}
	if docs[0].Title != "getting-started" {
		t.Errorf("expected title=getting-started, got %q", docs[0].Title)
	}
	if docs[0].Href != "guides/getting-started.md" {
		t.Errorf("expected href=guides/getting-started.md, got %q", docs[0].Href)
	}
	if docs[0].Body != "intro text" {
		t.Errorf("expected body=intro text, got %q", docs[0].Body)
	}
}

func TestIngestDir_RootLevelFileHasEmptyCategory(t *testing.T) {
	root := filepath.FromSlash("/corpus")
	filePath := filepath.Join(root, "index.md")

	walker := fakeWalker{files: []port.FileInfo{{Path: filePath}}}
	readAll := fakeReadAll(map[string]string{filePath: "root doc"})

	docs, err := NewDirIngestor(walker, readAll).IngestDir(root)
	if err != nil {
		t.Fatalf("IngestDir: %v", err)
	}
	if docs[0].Category != "" {
		t.Errorf("expected empty category for a root-level file, got %q", docs[0].Category)
	}
}

func TestIngestDir_AssignsDocIDsInWalkOrder(t *testing.T) {
	root := filepath.FromSlash("/corpus")
	pathA := filepath.Join(root, "a.md")
	pathB := filepath.Join(root, "b.md")

	walker := fakeWalker{files: []port.FileInfo{{Path: pathA}, {Path: pathB}}}
	readAll := fakeReadAll(map[string]string{pathA: "a", pathB: "b"})

	docs, err := NewDirIngestor(walker, readAll).IngestDir(root)
	if err != nil {
		t.Fatalf("IngestDir: %v", err)
	}
	if docs[0].ID != 0 || docs[1].ID != 1 {
		t.Errorf("expected sequential doc_ids, got %d, %d", docs[0].ID, docs[1].ID)
	}
}
