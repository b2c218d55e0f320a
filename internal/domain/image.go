package domain

// Image is the fully assembled, serializable search index: an FST mapping
// keywords to postings-list slots, the postings themselves, the trained
// text compressor, the compressed string table, and the per-document
// string_id records.
//
// Image owns everything the query engine needs; once serialized it is
// immutable for the lifetime of the artifact.
type Image struct {
	Version         uint16
	FSTBytes        []byte
	Postings        [][]Posting
	CompressorBlob  []byte
	Strings         [][]byte
	Docs            []DocRecord
}

// CurrentImageVersion is bumped whenever the binary envelope or the
// postings encoding changes in a way that breaks older readers.
const CurrentImageVersion uint16 = 1

// Validate checks the structural invariants: every posting references an
// existing document, string_ids stay in range, and scores are finite and
// strictly positive. It does not check FST key ordering or FST slot
// bounds; key ordering is enforced at construction time by the FST
// builder itself.
func (img *Image) Validate() error {
	for slot, postings := range img.Postings {
		_ = slot
		for _, p := range postings {
			if int(p.DocID) >= len(img.Docs) {
				return ErrIndexCorrupt
			}
			if p.Score <= 0 || isNonFinite(p.Score) {
				return ErrIndexCorrupt
			}
		}
	}
	for _, d := range img.Docs {
		n := uint32(len(img.Strings))
		if d.Title > n || d.Category > n || d.Href > n || d.Body > n {
			return ErrIndexCorrupt
		}
	}
	return nil
}

func isNonFinite(f float32) bool {
	return f != f || f > 3.4e38 || f < -3.4e38
}
