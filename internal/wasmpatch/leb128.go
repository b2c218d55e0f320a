// Package wasmpatch implements the WebAssembly embedder (C7): parsing a
// pre-built template module section-by-section and mechanically rewriting
// its memory, global, and data sections to carry the serialized index
// image. No Go library performs this kind of low-level WASM binary
// surgery (the closest packages are full runtimes, not encoders), so the
// section-patching logic here is hand-rolled directly against the
// WebAssembly binary format.
package wasmpatch

import "fmt"

// decodeULEB128 decodes an unsigned LEB128 integer from the start of b,
// returning the value and the number of bytes consumed.
func decodeULEB128(b []byte) (uint64, int, error) {
	var result uint64
	var shift uint
	for i, by := range b {
		if shift >= 64 {
			return 0, 0, fmt.Errorf("uleb128 too long")
		}
		result |= uint64(by&0x7f) << shift
		if by&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("uleb128 truncated")
}

// decodeSLEB128 decodes a signed LEB128 integer from the start of b.
func decodeSLEB128(b []byte) (int64, int, error) {
	var result int64
	var shift uint
	var by byte
	i := 0
	for {
		if i >= len(b) {
			return 0, 0, fmt.Errorf("sleb128 truncated")
		}
		by = b[i]
		result |= int64(by&0x7f) << shift
		shift += 7
		i++
		if by&0x80 == 0 {
			break
		}
	}
	if shift < 64 && by&0x40 != 0 {
		result |= -1 << shift
	}
	return result, i, nil
}

func appendULEB128(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			buf = append(buf, b|0x80)
		} else {
			buf = append(buf, b)
			return buf
		}
	}
}

func appendSLEB128(buf []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			buf = append(buf, b)
			return buf
		}
		buf = append(buf, b|0x80)
	}
}
