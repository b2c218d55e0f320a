// Package queryengine implements the query engine (C8): lazy one-shot
// deserialization of the embedded image, bounded-edit fuzzy FST lookup,
// per-document score accumulation, and ranked, decompressed results. It
// is a pure, host-independent Go package exercised directly by tests
// rather than compiled to js/wasm itself — the actual WebAssembly
// template C7 patches expects a raw linear-memory/exported-global ABI
// that Go's own js/wasm target cannot reproduce, so this package is the
// engine's entire testable surface (see DESIGN.md).
package queryengine

import (
	"sort"
	"sync"

	"github.com/hypnagonia/docfind/internal/adapter/analyzer"
	"github.com/hypnagonia/docfind/internal/adapter/fstindex"
	"github.com/hypnagonia/docfind/internal/adapter/textcompress"
	"github.com/hypnagonia/docfind/internal/codec"
	"github.com/hypnagonia/docfind/internal/domain"
)

// State is the query engine's lifecycle:
// Uninit -> Loading -> Ready (terminal), or -> Poisoned (terminal) on
// deserialization failure.
type State int32

const (
	StateUninit State = iota
	StateLoading
	StateReady
	StatePoisoned
)

const (
	// DefaultMaxResults is the result count callers should substitute when
	// the host omits max_results entirely. Search itself never applies
	// this: an explicit 0 reaching Search means exactly zero results.
	DefaultMaxResults = 10
	maxResultsCap     = 1000
)

// String renders the state for logging and for the wasmquery dev binary's
// docfindState() export.
func (s State) String() string {
	switch s {
	case StateUninit:
		return "uninit"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePoisoned:
		return "poisoned"
	default:
		return "unknown"
	}
}

// Engine holds the deserialized image once loaded and answers Search
// calls against it. The one-shot initializer uses sync.Once, the standard
// call-once primitive for concurrent first-call racing on multithreaded
// hosts; it makes Loading -> Ready a single observable transition.
type Engine struct {
	once  sync.Once
	mu    sync.RWMutex
	state State

	img        *domain.Image
	fst        *fstindex.FST
	compressor *textcompress.Compressor
	tokenizer  *analyzer.Tokenizer

	loadErr error
}

func New() *Engine {
	return &Engine{tokenizer: analyzer.NewTokenizer(false)}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// ensureLoaded deserializes raw exactly once. Every call after the first
// ignores raw and returns the outcome of that first attempt.
func (e *Engine) ensureLoaded(raw []byte) error {
	e.once.Do(func() {
		e.mu.Lock()
		e.state = StateLoading
		e.mu.Unlock()

		img, err := codec.Decode(raw)
		if err != nil {
			e.poison(err)
			return
		}

		fst, err := fstindex.Load(img.FSTBytes)
		if err != nil {
			e.poison(err)
			return
		}

		compressor := textcompress.NewCompressor()
		if err := compressor.LoadBlob(img.CompressorBlob); err != nil {
			e.poison(err)
			return
		}

		e.mu.Lock()
		e.img = img
		e.fst = fst
		e.compressor = compressor
		e.state = StateReady
		e.mu.Unlock()
	})

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state == StatePoisoned {
		return e.loadErr
	}
	return nil
}

func (e *Engine) poison(err error) {
	e.mu.Lock()
	e.state = StatePoisoned
	e.loadErr = err
	e.mu.Unlock()
}

// Search runs the query algorithm against the image
// deserialized from raw (only consulted on the very first call).
func (e *Engine) Search(raw []byte, needle string, maxResults int) ([]domain.SearchResult, error) {
	if err := e.ensureLoaded(raw); err != nil {
		return nil, domain.ErrIndexCorrupt
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state != StateReady {
		return nil, domain.ErrIndexCorrupt
	}

	// maxResults arrives here already resolved: callers (the CLI's flag
	// default, the wasmquery export's argument-count check) are
	// responsible for substituting DefaultMaxResults when the host omits
	// the parameter. An explicit 0 means exactly zero results, not
	// "unspecified", so it must not be clobbered here.
	if maxResults < 0 {
		maxResults = 0
	}
	if maxResults > maxResultsCap {
		maxResults = maxResultsCap
	}

	tokens := e.tokenizer.Tokenize(needle)
	if len(tokens) == 0 {
		return []domain.SearchResult{}, nil
	}

	acc := make(map[uint32]float32)
	for _, tok := range tokens {
		budget := editBudget(len(tok))
		tokenWeight := float32(1) / float32(1+budget)

		fuzzySlots, err := e.fst.FuzzyMatch(tok, budget)
		if err != nil {
			return nil, domain.ErrIndexCorrupt
		}
		prefixSlots, err := e.fst.PrefixMatch(tok)
		if err != nil {
			return nil, domain.ErrIndexCorrupt
		}

		// A keyword can satisfy both the edit-distance and the prefix
		// automaton (e.g. an exact match satisfies both trivially); union
		// the two slot sets so its postings are only applied once per token.
		slots := make(map[uint64]struct{}, len(fuzzySlots)+len(prefixSlots))
		for _, slot := range fuzzySlots {
			slots[slot] = struct{}{}
		}
		for _, slot := range prefixSlots {
			slots[slot] = struct{}{}
		}
		for slot := range slots {
			if int(slot) >= len(e.img.Postings) {
				continue
			}
			for _, p := range e.img.Postings[slot] {
				acc[p.DocID] += p.Score * tokenWeight
			}
		}
	}

	if len(acc) == 0 {
		return []domain.SearchResult{}, nil
	}

	type scored struct {
		docID uint32
		score float32
	}
	ranked := make([]scored, 0, len(acc))
	for docID, score := range acc {
		ranked = append(ranked, scored{docID: docID, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].docID < ranked[j].docID
	})
	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	results := make([]domain.SearchResult, 0, len(ranked))
	for _, r := range ranked {
		doc := e.img.Docs[r.docID]
		results = append(results, domain.SearchResult{
			Title:    e.resolveString(doc.Title),
			Category: e.resolveString(doc.Category),
			Href:     e.resolveString(doc.Href),
			Body:     e.resolveString(doc.Body),
			Score:    r.score,
		})
	}
	return results, nil
}

// resolveString expands a string_id through the compressor. string_id 0
// is the reserved empty-string sentinel.
func (e *Engine) resolveString(id uint32) string {
	if id == 0 {
		return ""
	}
	idx := int(id) - 1
	if idx < 0 || idx >= len(e.img.Strings) {
		return ""
	}
	return string(e.compressor.Decompress(e.img.Strings[idx]))
}

// editBudget resolves the edit-distance budget for a token of length L:
// 0 at length <=3, 1 at length <=7, else 2.
func editBudget(length int) uint8 {
	switch {
	case length <= 3:
		return 0
	case length <= 7:
		return 1
	default:
		return 2
	}
}
