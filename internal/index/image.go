// Package index orchestrates the build pipeline (C2-C5): running the
// keyword extractor and text compressor in parallel over documents and
// strings, then assembling and validating the finished index image.
// Serializing the image is left to the codec package.
package index

import "strings"

// stringInterner assigns content-addressed string_ids in deterministic
// first-occurrence order, needed for parallel-build determinism: by
// doc_id, then field index within the doc (title, category, href, body).
// string_id 0 is the reserved empty-string sentinel and is never stored.
type stringInterner struct {
	order []string
	ids   map[string]uint32
}

func newStringInterner() *stringInterner {
	return &stringInterner{ids: make(map[string]uint32)}
}

func (si *stringInterner) intern(s string) uint32 {
	if s == "" {
		return 0
	}
	if id, ok := si.ids[s]; ok {
		return id
	}
	si.order = append(si.order, s)
	id := uint32(len(si.order))
	si.ids[s] = id
	return id
}

// docContentKey concatenates a document's text fields with NUL separators
// to form a stable content-addressing key for the build cache.
func docContentKey(title, category, href, body string, keywords []string) []byte {
	return []byte(strings.Join([]string{title, category, href, body, strings.Join(keywords, "\x1f")}, "\x00"))
}
