package wasmpatch

import (
	"bytes"
	"errors"
	"testing"

	"github.com/hypnagonia/docfind/internal/domain"
)

// buildSyntheticTemplate constructs a minimal, valid module satisfying the
// template contract: one memory of initial pages P0, two mutable i32
// globals initialized to zero and exported as INDEX_BASE and INDEX_LEN,
// and no data section.
func buildSyntheticTemplate(t *testing.T, initialPages uint32) []byte {
	t.Helper()

	memContent := encodeMemorySection([]limits{{min: initialPages}})

	globals := []globalDef{
		{valType: 0x7F, mutable: 1, initExp: []byte{opI32Const, 0x00, opEnd}},
		{valType: 0x7F, mutable: 1, initExp: []byte{opI32Const, 0x00, opEnd}},
	}
	globalContent := encodeGlobalSection(globals)

	var exportContent []byte
	exportContent = appendULEB128(exportContent, 2)
	exportContent = appendExport(exportContent, "INDEX_BASE", exportKindGlobal, 0)
	exportContent = appendExport(exportContent, "INDEX_LEN", exportKindGlobal, 1)

	mod := &module{sections: []rawSection{
		{id: sectionMemory, content: memContent},
		{id: sectionGlobal, content: globalContent},
		{id: sectionExport, content: exportContent},
	}}
	return mod.emit()
}

func appendExport(buf []byte, name string, kind byte, idx uint32) []byte {
	buf = appendULEB128(buf, uint64(len(name)))
	buf = append(buf, name...)
	buf = append(buf, kind)
	buf = appendULEB128(buf, uint64(idx))
	return buf
}

func TestEmbed_PatchesGlobalsAndData(t *testing.T) {
	template := buildSyntheticTemplate(t, 1)
	image := bytes.Repeat([]byte{0xAB}, 700*1024)

	result, err := Embed(template, image)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if result.ImageOffset%pageSize != 0 {
		t.Errorf("expected page-aligned image offset, got %d", result.ImageOffset)
	}
	if result.ImageLen != uint32(len(image)) {
		t.Errorf("expected ImageLen=%d, got %d", len(image), result.ImageLen)
	}

	// Re-parse the patched module and confirm the globals and data agree.
	mod, err := parseModule(result.Wasm)
	if err != nil {
		t.Fatalf("re-parse patched module: %v", err)
	}

	_, memSec := mod.find(sectionMemory)
	mems, err := parseMemorySection(memSec.content)
	if err != nil {
		t.Fatalf("parse patched memory section: %v", err)
	}
	wantPages := pagesNeeded(result.ImageOffset, result.ImageLen)
	if mems[0].min != wantPages {
		t.Errorf("expected memory initial=%d, got %d", wantPages, mems[0].min)
	}

	_, globalSec := mod.find(sectionGlobal)
	globals, err := parseGlobalSection(globalSec.content)
	if err != nil {
		t.Fatalf("parse patched global section: %v", err)
	}
	baseVal, _, err := decodeSLEB128(globals[0].initExp[1:])
	if err != nil {
		t.Fatalf("decode base global: %v", err)
	}
	if uint32(baseVal) != result.ImageOffset {
		t.Errorf("expected INDEX_BASE=%d, got %d", result.ImageOffset, baseVal)
	}
	lenVal, _, err := decodeSLEB128(globals[1].initExp[1:])
	if err != nil {
		t.Fatalf("decode len global: %v", err)
	}
	if uint32(lenVal) != result.ImageLen {
		t.Errorf("expected INDEX_LEN=%d, got %d", result.ImageLen, lenVal)
	}

	_, dataSec := mod.find(sectionData)
	segs, err := parseDataSection(dataSec.content)
	if err != nil {
		t.Fatalf("parse patched data section: %v", err)
	}
	if len(segs) != 1 || segs[0].offset != result.ImageOffset || !bytes.Equal(segs[0].data, image) {
		t.Errorf("unexpected data segment: %+v", segs)
	}
}

func TestEmbed_Deterministic(t *testing.T) {
	template := buildSyntheticTemplate(t, 1)
	image := []byte("some serialized index image")

	a, err := Embed(template, image)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := Embed(template, image)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if !bytes.Equal(a.Wasm, b.Wasm) {
		t.Error("expected two embeds of the same inputs to be byte-identical")
	}
}

func TestEmbed_MissingMemoryFails(t *testing.T) {
	mod := &module{sections: []rawSection{{id: sectionExport, content: nil}}}
	_, err := Embed(mod.emit(), []byte("x"))
	if !errors.Is(err, domain.ErrTemplateNoMemory) {
		t.Errorf("expected ErrTemplateNoMemory, got %v", err)
	}
}

func TestEmbed_MissingGlobalExportFails(t *testing.T) {
	memContent := encodeMemorySection([]limits{{min: 1}})
	mod := &module{sections: []rawSection{
		{id: sectionMemory, content: memContent},
		{id: sectionExport, content: appendULEB128(nil, 0)},
	}}
	_, err := Embed(mod.emit(), []byte("x"))
	if !errors.Is(err, domain.ErrTemplateMissingGlobal) {
		t.Errorf("expected ErrTemplateMissingGlobal, got %v", err)
	}
}

func TestEmbed_IncrementsDataCountSection(t *testing.T) {
	template := buildSyntheticTemplate(t, 1)
	mod, _ := parseModule(template)

	existingSegs := []dataSegment{{offset: 0, data: []byte("preexisting")}}
	mod.sections = append(mod.sections, rawSection{id: sectionData, content: encodeDataSection(existingSegs)})
	mod.sections = append(mod.sections, rawSection{id: sectionDataCount, content: encodeDataCountSection(1)})
	template = mod.emit()

	result, err := Embed(template, []byte("image"))
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	patched, err := parseModule(result.Wasm)
	if err != nil {
		t.Fatalf("re-parse patched module: %v", err)
	}

	_, dataCountSec := patched.find(sectionDataCount)
	if dataCountSec == nil {
		t.Fatal("expected DataCount section to survive patching")
	}
	count, err := parseDataCountSection(dataCountSec.content)
	if err != nil {
		t.Fatalf("parse patched data count section: %v", err)
	}
	if count != 2 {
		t.Errorf("expected DataCount to be incremented to 2, got %d", count)
	}

	_, dataSec := patched.find(sectionData)
	segs, err := parseDataSection(dataSec.content)
	if err != nil {
		t.Fatalf("parse patched data section: %v", err)
	}
	if len(segs) != 2 {
		t.Errorf("expected 2 data segments after patching, got %d", len(segs))
	}
}

func TestEmbed_PreservesUnrelatedSections(t *testing.T) {
	template := buildSyntheticTemplate(t, 1)
	mod, _ := parseModule(template)
	customContent := []byte{0x01, 'x', 'y', 'z'}
	mod.sections = append(mod.sections, rawSection{id: 0, content: customContent})
	template = mod.emit()

	result, err := Embed(template, []byte("image"))
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	patched, err := parseModule(result.Wasm)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	found := false
	for _, s := range patched.sections {
		if s.id == 0 && bytes.Equal(s.content, customContent) {
			found = true
		}
	}
	if !found {
		t.Error("expected the untouched custom section to survive patching")
	}
}
