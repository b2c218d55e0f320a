// Package fs discovers candidate document files on disk for docfind's
// directory-mode ingestion using glob include/exclude patterns.
package fs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"

	"github.com/hypnagonia/docfind/internal/port"
)

// Walker finds files matching include patterns and not matching exclude
// patterns under a root directory. Symlinks are never followed (a docs
// tree symlinked into itself would otherwise walk forever) and dotfiles
// and dot-directories are skipped by default, matching how static-site
// generators typically treat a corpus root: an explicit include pattern
// is the only way to pull a dotfile back in.
type Walker struct {
	includes []string
	excludes []string
	log      *logrus.Entry
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
}

// WithLogger returns a Walker that reports skipped symlinks through log
// instead of the standard logger.
func (w *Walker) WithLogger(log *logrus.Entry) *Walker {
	w.log = log
	return w
}

func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	var files []port.FileInfo

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		if entry.Type()&os.ModeSymlink != 0 {
			w.log.WithField("path", relPath).Warn("skipping symlink in directory-mode ingestion")
			return nil
		}

		if relPath != "." && isDotEntry(entry.Name()) && !w.namesDotEntry(dirSuffixed(relPath, entry.IsDir())) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			if w.shouldExclude(relPath + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if w.shouldInclude(relPath) && !w.shouldExclude(relPath) {
			info, err := entry.Info()
			if err != nil {
				return err
			}
			files = append(files, port.FileInfo{
				Path:    path,
				ModTime: info.ModTime().Unix(),
				Size:    info.Size(),
			})
		}

		return nil
	})

	return files, err
}

func isDotEntry(name string) bool {
	return strings.HasPrefix(name, ".")
}

func dirSuffixed(path string, isDir bool) string {
	if isDir {
		return path + "/"
	}
	return path
}

func (w *Walker) shouldInclude(path string) bool {
	for _, pattern := range w.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// namesDotEntry reports whether path is matched by an include pattern that
// itself spells out a dot-prefixed segment; broad patterns such as
// "**/*.md" do not pull dotfiles back in.
func (w *Walker) namesDotEntry(path string) bool {
	for _, pattern := range w.includes {
		if !strings.HasPrefix(pattern, ".") && !strings.Contains(pattern, "/.") {
			continue
		}
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
