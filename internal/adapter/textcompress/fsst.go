// Package textcompress implements the text compressor (C4): a static
// symbol-table compressor in the FSST family, trained once over a sample
// of the corpus and then used to compress/decompress individual strings
// at near-memcpy cost. This has no third-party Go equivalent, so it is
// hand-rolled directly from the FSST algorithm.
package textcompress

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/hypnagonia/docfind/internal/domain"
)

const (
	minSymbolLen = 2
	maxSymbolLen = 8
	maxSymbols   = 255 // codes 0..254; 0xFF is reserved as the literal-byte escape
	escapeCode   = 0xFF
	blobVersion  = 1
)

type symbolEntry struct {
	bytes []byte
	code  byte
}

// Compressor is a trained static symbol-table text compressor. The zero
// value is untrained: Compress/Decompress fall back to pure escape-coding
// (every byte round-trips, just without any compression) until Train or
// LoadBlob populates the symbol table.
type Compressor struct {
	symbols     []symbolEntry   // indexed by code
	byFirstByte map[byte][]symbolEntry
}

func NewCompressor() *Compressor {
	return &Compressor{byFirstByte: make(map[byte][]symbolEntry)}
}

// Train builds the symbol table from a byte-length-substring frequency
// count over samples, greedily keeping the substrings with the highest
// (frequency * bytes saved) score, ties broken lexicographically for
// determinism.
func (c *Compressor) Train(samples [][]byte) {
	counts := make(map[string]int)
	for _, s := range samples {
		n := len(s)
		for i := 0; i < n; i++ {
			limit := maxSymbolLen
			if i+limit > n {
				limit = n - i
			}
			for l := minSymbolLen; l <= limit; l++ {
				counts[string(s[i:i+l])]++
			}
		}
	}

	type candidate struct {
		sub   string
		score int
	}
	candidates := make([]candidate, 0, len(counts))
	for sub, cnt := range counts {
		candidates = append(candidates, candidate{sub: sub, score: cnt * (len(sub) - 1)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].sub < candidates[j].sub
	})

	n := maxSymbols
	if len(candidates) < n {
		n = len(candidates)
	}

	symbols := make([]symbolEntry, n)
	for i := 0; i < n; i++ {
		symbols[i] = symbolEntry{bytes: []byte(candidates[i].sub), code: byte(i)}
	}
	c.symbols = symbols
	c.rebuildIndex()
}

func (c *Compressor) rebuildIndex() {
	c.byFirstByte = make(map[byte][]symbolEntry)
	for _, sym := range c.symbols {
		first := sym.bytes[0]
		c.byFirstByte[first] = append(c.byFirstByte[first], sym)
	}
	for first := range c.byFirstByte {
		entries := c.byFirstByte[first]
		sort.Slice(entries, func(i, j int) bool { return len(entries[i].bytes) > len(entries[j].bytes) })
		c.byFirstByte[first] = entries
	}
}

// Compress greedily replaces the longest matching trained symbol at each
// position with its one-byte code; unmatched bytes are escape-coded as
// 0xFF followed by the literal byte, so every byte value round-trips
// regardless of training coverage.
func (c *Compressor) Compress(s []byte) []byte {
	out := make([]byte, 0, len(s))
	i := 0
	for i < len(s) {
		if cands, ok := c.byFirstByte[s[i]]; ok {
			matched := false
			for _, cand := range cands {
				l := len(cand.bytes)
				if i+l <= len(s) && bytes.Equal(s[i:i+l], cand.bytes) {
					out = append(out, cand.code)
					i += l
					matched = true
					break
				}
			}
			if matched {
				continue
			}
		}
		out = append(out, escapeCode, s[i])
		i++
	}
	return out
}

// Decompress reverses Compress: escape-coded bytes are copied literally,
// every other byte is expanded through the symbol table by code.
func (c *Compressor) Decompress(comp []byte) []byte {
	out := make([]byte, 0, len(comp)*2)
	i := 0
	for i < len(comp) {
		b := comp[i]
		if b == escapeCode {
			if i+1 >= len(comp) {
				break
			}
			out = append(out, comp[i+1])
			i += 2
			continue
		}
		if int(b) < len(c.symbols) {
			out = append(out, c.symbols[b].bytes...)
		}
		i++
	}
	return out
}

// Blob serializes the trained symbol table: version byte, u16 symbol
// count, then each symbol as a length byte followed by its bytes.
func (c *Compressor) Blob() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(blobVersion)
	binary.Write(buf, binary.LittleEndian, uint16(len(c.symbols)))
	for _, sym := range c.symbols {
		buf.WriteByte(byte(len(sym.bytes)))
		buf.Write(sym.bytes)
	}
	return buf.Bytes()
}

// LoadBlob restores a symbol table previously produced by Blob.
func (c *Compressor) LoadBlob(b []byte) error {
	if len(b) < 3 {
		return fmt.Errorf("%w: compressor blob too short", domain.ErrIndexCorrupt)
	}
	if b[0] != blobVersion {
		return fmt.Errorf("%w: unknown compressor blob version %d", domain.ErrIndexVersionMismatch, b[0])
	}
	count := binary.LittleEndian.Uint16(b[1:3])
	offset := 3
	symbols := make([]symbolEntry, 0, count)
	for i := 0; i < int(count); i++ {
		if offset >= len(b) {
			return fmt.Errorf("%w: compressor blob truncated", domain.ErrIndexCorrupt)
		}
		l := int(b[offset])
		offset++
		if offset+l > len(b) {
			return fmt.Errorf("%w: compressor blob truncated", domain.ErrIndexCorrupt)
		}
		symbols = append(symbols, symbolEntry{bytes: append([]byte(nil), b[offset:offset+l]...), code: byte(i)})
		offset += l
	}
	c.symbols = symbols
	c.rebuildIndex()
	return nil
}
