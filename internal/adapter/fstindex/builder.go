// Package fstindex wraps github.com/couchbase/vellum to build and query
// the keyword→postings-slot finite-state transducer (C5's FST half, and
// the FST-facing half of the query engine, C8). vellum requires keys
// inserted in byte-lex order, matching the order the aggregator (C3)
// already produces.
package fstindex

import (
	"bytes"
	"fmt"

	"github.com/couchbase/vellum"
	"github.com/couchbase/vellum/levenshtein"

	"github.com/hypnagonia/docfind/internal/domain"
)

// Build inserts every keyword in keywords, in order, mapping it to its
// slot index (its position in the slice), and returns the serialized FST
// bytes. keywords MUST already be sorted by byte-lex key order; vellum
// fails loudly (returns an error) otherwise, which this wraps as
// domain.ErrBuilderInvariant.
func Build(keywords []domain.KeywordPostings) ([]byte, error) {
	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, fmt.Errorf("create fst builder: %w", err)
	}

	for slot, kp := range keywords {
		if err := builder.Insert([]byte(kp.Keyword), uint64(slot)); err != nil {
			return nil, fmt.Errorf("%w: fst keys not in byte-lex order: %v", domain.ErrBuilderInvariant, err)
		}
	}

	if err := builder.Close(); err != nil {
		return nil, fmt.Errorf("finalize fst: %w", err)
	}

	return buf.Bytes(), nil
}

// FST is a loaded, queryable finite-state transducer over the keyword
// table.
type FST struct {
	inner *vellum.FST
}

// Load deserializes FST bytes produced by Build.
func Load(fstBytes []byte) (*FST, error) {
	inner, err := vellum.Load(fstBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}
	return &FST{inner: inner}, nil
}

// Get looks up an exact keyword, returning its postings slot.
func (f *FST) Get(keyword string) (slot uint64, ok bool, err error) {
	v, exists, err := f.inner.Get([]byte(keyword))
	if err != nil {
		return 0, false, err
	}
	return v, exists, nil
}

// FuzzyMatch streams the FST through a Levenshtein automaton of the given
// edit distance around term, returning every accepted keyword's postings
// slot.
func (f *FST) FuzzyMatch(term string, editDistance uint8) ([]uint64, error) {
	lab, err := levenshtein.NewLevenshteinAutomatonBuilder(editDistance, false)
	if err != nil {
		return nil, fmt.Errorf("build levenshtein automaton: %w", err)
	}
	automaton, err := lab.BuildDfa(term, editDistance)
	if err != nil {
		return nil, fmt.Errorf("build levenshtein automaton: %w", err)
	}

	itr, err := f.inner.Search(automaton, nil, nil)
	var slots []uint64
	for err == nil {
		_, slot := itr.Current()
		slots = append(slots, slot)
		err = itr.Next()
	}
	if err != nil && err != vellum.ErrIteratorDone {
		return nil, err
	}
	return slots, nil
}

// PrefixMatch returns the postings slot of every keyword beginning with
// prefix. It scans the byte-lex key range [prefix, prefixSuccessor(prefix))
// rather than building a dedicated prefix automaton, since vellum's FST
// keys are already stored in that order.
func (f *FST) PrefixMatch(prefix string) ([]uint64, error) {
	if prefix == "" {
		return nil, nil
	}

	start := []byte(prefix)
	end := prefixSuccessor(start)

	itr, err := f.inner.Iterator(start, end)
	var slots []uint64
	for err == nil {
		_, slot := itr.Current()
		slots = append(slots, slot)
		err = itr.Next()
	}
	if err != nil && err != vellum.ErrIteratorDone {
		return nil, err
	}
	return slots, nil
}

// prefixSuccessor returns the exclusive upper bound of the key range
// covering every string with the given prefix: the smallest byte string
// greater than all of them. Returns nil (unbounded) when prefix is composed
// entirely of 0xFF bytes.
func prefixSuccessor(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
