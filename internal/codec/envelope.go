// Package codec implements the image serializer (C6): encoding and
// decoding domain.Image to and from a byte-pinned binary envelope. The
// layout is fixed down to field order and prefix width, so it is
// hand-encoded with encoding/binary rather than a general-purpose
// serialization library.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hypnagonia/docfind/internal/domain"
)

var magic = [4]byte{'D', 'F', 'N', 'D'}

// Encode serializes img into the little-endian binary envelope.
func Encode(img *domain.Image) ([]byte, error) {
	buf := new(bytes.Buffer)

	buf.Write(magic[:])
	writeU16(buf, img.Version)
	writeU16(buf, 0) // reserved

	writeBytesSection(buf, img.FSTBytes)

	writeU32(buf, uint32(len(img.Postings)))
	for _, list := range img.Postings {
		writeU32(buf, uint32(len(list)))
		for _, p := range list {
			writeU32(buf, p.DocID)
			writeU32(buf, math.Float32bits(p.Score))
		}
	}

	writeBytesSection(buf, img.CompressorBlob)

	writeU32(buf, uint32(len(img.Strings)))
	for _, s := range img.Strings {
		writeBytesSection(buf, s)
	}

	writeU32(buf, uint32(len(img.Docs)))
	for _, d := range img.Docs {
		writeU32(buf, d.Title)
		writeU32(buf, d.Category)
		writeU32(buf, d.Href)
		writeU32(buf, d.Body)
	}

	return buf.Bytes(), nil
}

// Decode parses the binary envelope back into a domain.Image, validating
// the version and structural invariants before returning.
func Decode(data []byte) (*domain.Image, error) {
	r := bytes.NewReader(data)

	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil || gotMagic != magic {
		return nil, fmt.Errorf("%w: bad magic", domain.ErrIndexCorrupt)
	}

	version, err := readU16(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}
	if _, err := readU16(r); err != nil { // reserved
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}
	if version != domain.CurrentImageVersion {
		return nil, fmt.Errorf("%w: got version %d, want %d", domain.ErrIndexVersionMismatch, version, domain.CurrentImageVersion)
	}

	fstBytes, err := readBytesSection(r)
	if err != nil {
		return nil, corrupt(err)
	}

	postingsCount, err := readU32(r)
	if err != nil {
		return nil, corrupt(err)
	}
	postings := make([][]domain.Posting, postingsCount)
	for i := range postings {
		n, err := readU32(r)
		if err != nil {
			return nil, corrupt(err)
		}
		list := make([]domain.Posting, n)
		for j := range list {
			docID, err := readU32(r)
			if err != nil {
				return nil, corrupt(err)
			}
			scoreBits, err := readU32(r)
			if err != nil {
				return nil, corrupt(err)
			}
			list[j] = domain.Posting{DocID: docID, Score: math.Float32frombits(scoreBits)}
		}
		postings[i] = list
	}

	compressorBlob, err := readBytesSection(r)
	if err != nil {
		return nil, corrupt(err)
	}

	stringsCount, err := readU32(r)
	if err != nil {
		return nil, corrupt(err)
	}
	strings := make([][]byte, stringsCount)
	for i := range strings {
		s, err := readBytesSection(r)
		if err != nil {
			return nil, corrupt(err)
		}
		strings[i] = s
	}

	docsCount, err := readU32(r)
	if err != nil {
		return nil, corrupt(err)
	}
	docs := make([]domain.DocRecord, docsCount)
	for i := range docs {
		title, err := readU32(r)
		if err != nil {
			return nil, corrupt(err)
		}
		category, err := readU32(r)
		if err != nil {
			return nil, corrupt(err)
		}
		href, err := readU32(r)
		if err != nil {
			return nil, corrupt(err)
		}
		body, err := readU32(r)
		if err != nil {
			return nil, corrupt(err)
		}
		docs[i] = domain.DocRecord{Title: title, Category: category, Href: href, Body: body}
	}

	img := &domain.Image{
		Version:        version,
		FSTBytes:       fstBytes,
		Postings:       postings,
		CompressorBlob: compressorBlob,
		Strings:        strings,
		Docs:           docs,
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return img, nil
}

func corrupt(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeBytesSection(buf *bytes.Buffer, b []byte) {
	writeU32(buf, uint32(len(b)))
	buf.Write(b)
}

func readU16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readBytesSection(r *bytes.Reader) ([]byte, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}
