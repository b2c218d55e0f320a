package wasmpatch

import (
	"bytes"
	"fmt"

	"github.com/hypnagonia/docfind/internal/domain"
)

const (
	sectionMemory    = 5
	sectionGlobal    = 6
	sectionExport    = 7
	sectionData      = 11
	sectionDataCount = 12

	pageSize = 65536
)

var wasmHeader = []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}

// rawSection is a section as encountered on disk: an id byte and its
// content, uninterpreted until a specific patch step needs it.
type rawSection struct {
	id      byte
	content []byte
}

// module is the template parsed into an ordered list of sections. The
// embedder never reorders sections it does not rewrite.
type module struct {
	sections []rawSection
}

// parseModule splits data into its section list without interpreting any
// section's content.
func parseModule(data []byte) (*module, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], wasmHeader) {
		return nil, fmt.Errorf("%w: bad module header", domain.ErrTemplateMalformed)
	}
	pos := 8
	var sections []rawSection
	for pos < len(data) {
		id := data[pos]
		pos++
		size, n, err := decodeULEB128(data[pos:])
		if err != nil {
			return nil, fmt.Errorf("%w: section size at offset %d: %v", domain.ErrTemplateMalformed, pos, err)
		}
		pos += n
		end := pos + int(size)
		if end > len(data) {
			return nil, fmt.Errorf("%w: section at offset %d overruns module", domain.ErrTemplateMalformed, pos)
		}
		sections = append(sections, rawSection{id: id, content: data[pos:end]})
		pos = end
	}
	return &module{sections: sections}, nil
}

func (m *module) emit() []byte {
	out := append([]byte(nil), wasmHeader...)
	for _, s := range m.sections {
		out = append(out, s.id)
		out = appendULEB128(out, uint64(len(s.content)))
		out = append(out, s.content...)
	}
	return out
}

func (m *module) find(id byte) (int, *rawSection) {
	for i := range m.sections {
		if m.sections[i].id == id {
			return i, &m.sections[i]
		}
	}
	return -1, nil
}

// upsert replaces the content of the first section with the given id, or
// inserts a new section of that id in WASM's canonical section ordering
// (by numeric id) if none is present. Custom sections (id 0) are never
// touched by this path.
func (m *module) upsert(id byte, content []byte) {
	if i, _ := m.find(id); i >= 0 {
		m.sections[i].content = content
		return
	}
	insertAt := len(m.sections)
	for i, s := range m.sections {
		if s.id != 0 && s.id > id {
			insertAt = i
			break
		}
	}
	m.sections = append(m.sections, rawSection{})
	copy(m.sections[insertAt+1:], m.sections[insertAt:])
	m.sections[insertAt] = rawSection{id: id, content: content}
}

// limits is a WASM resizable limits pair (used by the memory section).
type limits struct {
	min    uint32
	max    uint32
	hasMax bool
}

func parseMemorySection(content []byte) ([]limits, error) {
	count, n, err := decodeULEB128(content)
	if err != nil {
		return nil, fmt.Errorf("%w: memory section count: %v", domain.ErrTemplateMalformed, err)
	}
	pos := n
	mems := make([]limits, 0, count)
	for i := uint64(0); i < count; i++ {
		l, consumed, err := parseLimits(content[pos:])
		if err != nil {
			return nil, err
		}
		pos += consumed
		mems = append(mems, l)
	}
	return mems, nil
}

func parseLimits(b []byte) (limits, int, error) {
	if len(b) < 1 {
		return limits{}, 0, fmt.Errorf("%w: truncated limits", domain.ErrTemplateMalformed)
	}
	flag := b[0]
	pos := 1
	min, n, err := decodeULEB128(b[pos:])
	if err != nil {
		return limits{}, 0, fmt.Errorf("%w: limits min: %v", domain.ErrTemplateMalformed, err)
	}
	pos += n
	l := limits{min: uint32(min)}
	if flag == 1 {
		max, n, err := decodeULEB128(b[pos:])
		if err != nil {
			return limits{}, 0, fmt.Errorf("%w: limits max: %v", domain.ErrTemplateMalformed, err)
		}
		pos += n
		l.max = uint32(max)
		l.hasMax = true
	}
	return l, pos, nil
}

func encodeMemorySection(mems []limits) []byte {
	buf := appendULEB128(nil, uint64(len(mems)))
	for _, l := range mems {
		buf = append(buf, encodeLimits(l)...)
	}
	return buf
}

func encodeLimits(l limits) []byte {
	var buf []byte
	if l.hasMax {
		buf = append(buf, 1)
		buf = appendULEB128(buf, uint64(l.min))
		buf = appendULEB128(buf, uint64(l.max))
	} else {
		buf = append(buf, 0)
		buf = appendULEB128(buf, uint64(l.min))
	}
	return buf
}

// exportEntry is one entry of the export section.
type exportEntry struct {
	name string
	kind byte
	idx  uint32
}

const exportKindGlobal = 3

func parseExportSection(content []byte) ([]exportEntry, error) {
	count, n, err := decodeULEB128(content)
	if err != nil {
		return nil, fmt.Errorf("%w: export section count: %v", domain.ErrTemplateMalformed, err)
	}
	pos := n
	exports := make([]exportEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		nameLen, n, err := decodeULEB128(content[pos:])
		if err != nil {
			return nil, fmt.Errorf("%w: export name length: %v", domain.ErrTemplateMalformed, err)
		}
		pos += n
		if pos+int(nameLen) > len(content) {
			return nil, fmt.Errorf("%w: export name overruns section", domain.ErrTemplateMalformed)
		}
		name := string(content[pos : pos+int(nameLen)])
		pos += int(nameLen)

		if pos >= len(content) {
			return nil, fmt.Errorf("%w: truncated export entry", domain.ErrTemplateMalformed)
		}
		kind := content[pos]
		pos++

		idx, n, err := decodeULEB128(content[pos:])
		if err != nil {
			return nil, fmt.Errorf("%w: export index: %v", domain.ErrTemplateMalformed, err)
		}
		pos += n

		exports = append(exports, exportEntry{name: name, kind: kind, idx: uint32(idx)})
	}
	return exports, nil
}

func findGlobalExport(exports []exportEntry, name string) (uint32, bool) {
	for _, e := range exports {
		if e.kind == exportKindGlobal && e.name == name {
			return e.idx, true
		}
	}
	return 0, false
}

// globalDef is one locally-defined entry of the global section: its value
// type, mutability, and init expression (opcode bytes up to and including
// the terminating 0x0B).
type globalDef struct {
	valType byte
	mutable byte
	initExp []byte
}

const (
	opI32Const = 0x41
	opEnd      = 0x0B
)

func parseGlobalSection(content []byte) ([]globalDef, error) {
	count, n, err := decodeULEB128(content)
	if err != nil {
		return nil, fmt.Errorf("%w: global section count: %v", domain.ErrTemplateMalformed, err)
	}
	pos := n
	globals := make([]globalDef, 0, count)
	for i := uint64(0); i < count; i++ {
		if pos+2 > len(content) {
			return nil, fmt.Errorf("%w: truncated global entry", domain.ErrTemplateMalformed)
		}
		valType := content[pos]
		mutable := content[pos+1]
		pos += 2

		start := pos
		for pos < len(content) && content[pos] != opEnd {
			pos++
		}
		if pos >= len(content) {
			return nil, fmt.Errorf("%w: unterminated global init expr", domain.ErrTemplateMalformed)
		}
		pos++ // consume the 0x0B
		globals = append(globals, globalDef{valType: valType, mutable: mutable, initExp: append([]byte(nil), content[start:pos]...)})
	}
	return globals, nil
}

func encodeGlobalSection(globals []globalDef) []byte {
	buf := appendULEB128(nil, uint64(len(globals)))
	for _, g := range globals {
		buf = append(buf, g.valType, g.mutable)
		buf = append(buf, g.initExp...)
	}
	return buf
}

// setI32ConstGlobal rewrites global idx's init expression to
// `i32.const value` `end`, failing if idx is out of range or the global
// is not an i32 (the export contract requires 32-bit globals).
func setI32ConstGlobal(globals []globalDef, idx uint32, value int32) error {
	if int(idx) >= len(globals) {
		return fmt.Errorf("%w: exported global index %d out of range", domain.ErrTemplateMissingGlobal, idx)
	}
	const i32ValType = 0x7F
	if globals[idx].valType != i32ValType {
		return fmt.Errorf("%w: exported global %d is not i32", domain.ErrTemplateMissingGlobal, idx)
	}
	var expr []byte
	expr = append(expr, opI32Const)
	expr = appendSLEB128(expr, int64(value))
	expr = append(expr, opEnd)
	globals[idx].initExp = expr
	return nil
}

// dataSegment is one active data segment targeting memory 0.
type dataSegment struct {
	offset uint32
	data   []byte
}

func parseDataSection(content []byte) ([]dataSegment, error) {
	count, n, err := decodeULEB128(content)
	if err != nil {
		return nil, fmt.Errorf("%w: data section count: %v", domain.ErrTemplateMalformed, err)
	}
	pos := n
	segs := make([]dataSegment, 0, count)
	for i := uint64(0); i < count; i++ {
		flag, n, err := decodeULEB128(content[pos:])
		if err != nil {
			return nil, fmt.Errorf("%w: data segment flag: %v", domain.ErrTemplateMalformed, err)
		}
		pos += n

		var offset uint32
		switch flag {
		case 0: // active, memory index implicit 0
			off, n, err := readI32ConstExpr(content[pos:])
			if err != nil {
				return nil, err
			}
			pos += n
			offset = uint32(off)
		case 1: // passive
			offset = 0
		case 2: // active, explicit memory index
			_, n, err := decodeULEB128(content[pos:])
			if err != nil {
				return nil, fmt.Errorf("%w: data segment memidx: %v", domain.ErrTemplateMalformed, err)
			}
			pos += n
			off, n, err := readI32ConstExpr(content[pos:])
			if err != nil {
				return nil, err
			}
			pos += n
			offset = uint32(off)
		default:
			return nil, fmt.Errorf("%w: unsupported data segment flag %d", domain.ErrTemplateMalformed, flag)
		}

		dataLen, n, err := decodeULEB128(content[pos:])
		if err != nil {
			return nil, fmt.Errorf("%w: data segment length: %v", domain.ErrTemplateMalformed, err)
		}
		pos += n
		if pos+int(dataLen) > len(content) {
			return nil, fmt.Errorf("%w: data segment overruns section", domain.ErrTemplateMalformed)
		}
		segs = append(segs, dataSegment{offset: offset, data: content[pos : pos+int(dataLen)]})
		pos += int(dataLen)
	}
	return segs, nil
}

func readI32ConstExpr(b []byte) (int64, int, error) {
	if len(b) < 1 || b[0] != opI32Const {
		return 0, 0, fmt.Errorf("%w: expected i32.const offset expression", domain.ErrTemplateMalformed)
	}
	val, n, err := decodeSLEB128(b[1:])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: i32.const operand: %v", domain.ErrTemplateMalformed, err)
	}
	pos := 1 + n
	if pos >= len(b) || b[pos] != opEnd {
		return 0, 0, fmt.Errorf("%w: unterminated offset expression", domain.ErrTemplateMalformed)
	}
	return val, pos + 1, nil
}

func encodeDataSection(segs []dataSegment) []byte {
	buf := appendULEB128(nil, uint64(len(segs)))
	for _, s := range segs {
		buf = appendULEB128(buf, 0) // flag: active, memory 0
		buf = append(buf, opI32Const)
		buf = appendSLEB128(buf, int64(int32(s.offset)))
		buf = append(buf, opEnd)
		buf = appendULEB128(buf, uint64(len(s.data)))
		buf = append(buf, s.data...)
	}
	return buf
}

func parseDataCountSection(content []byte) (uint32, error) {
	count, _, err := decodeULEB128(content)
	if err != nil {
		return 0, fmt.Errorf("%w: data count section: %v", domain.ErrTemplateMalformed, err)
	}
	return uint32(count), nil
}

func encodeDataCountSection(count uint32) []byte {
	return appendULEB128(nil, uint64(count))
}

// Result describes a completed embed: the patched module bytes and the
// (base, len) pair written into the two exported globals.
type Result struct {
	Wasm        []byte
	ImageOffset uint32
	ImageLen    uint32
}

// Embed patches template to carry image: it grows memory as needed,
// rewrites the INDEX_BASE/INDEX_LEN globals, and appends a new active
// data segment. Two successive embeds of the same inputs produce
// byte-identical output, since every step here is a pure function of
// (template, image).
func Embed(template, image []byte) (*Result, error) {
	mod, err := parseModule(template)
	if err != nil {
		return nil, err
	}

	_, memSec := mod.find(sectionMemory)
	if memSec == nil {
		return nil, fmt.Errorf("%w: template declares no memory section", domain.ErrTemplateNoMemory)
	}
	mems, err := parseMemorySection(memSec.content)
	if err != nil {
		return nil, err
	}
	if len(mems) == 0 {
		return nil, fmt.Errorf("%w: template's memory section is empty", domain.ErrTemplateNoMemory)
	}

	_, exportSec := mod.find(sectionExport)
	if exportSec == nil {
		return nil, fmt.Errorf("%w: template has no export section", domain.ErrTemplateMissingGlobal)
	}
	exports, err := parseExportSection(exportSec.content)
	if err != nil {
		return nil, err
	}
	baseIdx, ok := findGlobalExport(exports, "INDEX_BASE")
	if !ok {
		return nil, fmt.Errorf("%w: no exported global named INDEX_BASE", domain.ErrTemplateMissingGlobal)
	}
	lenIdx, ok := findGlobalExport(exports, "INDEX_LEN")
	if !ok {
		return nil, fmt.Errorf("%w: no exported global named INDEX_LEN", domain.ErrTemplateMissingGlobal)
	}

	staticHigh := staticDataHighWaterMark(mod)
	imageOffset := alignUp(staticHigh, pageSize)
	imageLen := uint32(len(image))
	needed := pagesNeeded(imageOffset, imageLen)

	mem := &mems[0]
	if needed > mem.min {
		mem.min = needed
	}
	if mem.hasMax && needed > mem.max {
		mem.max = needed
	}
	mod.upsert(sectionMemory, encodeMemorySection(mems))

	_, globalSec := mod.find(sectionGlobal)
	if globalSec == nil {
		return nil, fmt.Errorf("%w: template has no global section", domain.ErrTemplateMissingGlobal)
	}
	globals, err := parseGlobalSection(globalSec.content)
	if err != nil {
		return nil, err
	}
	if err := setI32ConstGlobal(globals, baseIdx, int32(imageOffset)); err != nil {
		return nil, err
	}
	if err := setI32ConstGlobal(globals, lenIdx, int32(imageLen)); err != nil {
		return nil, err
	}
	mod.upsert(sectionGlobal, encodeGlobalSection(globals))

	var segs []dataSegment
	if _, dataSec := mod.find(sectionData); dataSec != nil {
		segs, err = parseDataSection(dataSec.content)
		if err != nil {
			return nil, err
		}
	}
	segs = append(segs, dataSegment{offset: imageOffset, data: image})
	mod.upsert(sectionData, encodeDataSection(segs))

	// A DataCount section, when present, declares the segment count up
	// front for bulk-memory validation; it must track the appended segment
	// or the module fails to validate.
	if _, dataCountSec := mod.find(sectionDataCount); dataCountSec != nil {
		count, err := parseDataCountSection(dataCountSec.content)
		if err != nil {
			return nil, err
		}
		mod.upsert(sectionDataCount, encodeDataCountSection(count+1))
	}

	return &Result{Wasm: mod.emit(), ImageOffset: imageOffset, ImageLen: imageLen}, nil
}

func staticDataHighWaterMark(mod *module) uint32 {
	_, dataSec := mod.find(sectionData)
	if dataSec == nil {
		return 0
	}
	segs, err := parseDataSection(dataSec.content)
	if err != nil {
		return 0
	}
	var high uint32
	for _, s := range segs {
		end := s.offset + uint32(len(s.data))
		if end > high {
			high = end
		}
	}
	return high
}

func alignUp(v, align uint32) uint32 {
	if v%align == 0 {
		return v
	}
	return v + (align - v%align)
}

func pagesNeeded(offset, length uint32) uint32 {
	total := uint64(offset) + uint64(length)
	return uint32((total + pageSize - 1) / pageSize)
}
