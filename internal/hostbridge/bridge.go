// Package hostbridge implements the host bridge (C9): the thin seam
// between a host runtime and the query engine, guarding lazy
// deserialization and converting results to the host's native value
// representation. In the browser binding that representation is a
// JSON-object array; SearchJSON produces exactly that so a js/wasm loader
// function has nothing left to do but forward bytes.
package hostbridge

import (
	"encoding/json"

	"github.com/hypnagonia/docfind/internal/domain"
	"github.com/hypnagonia/docfind/internal/queryengine"
)

// ArenaReader returns the current bytes of the region
// [INDEX_BASE, INDEX_BASE+INDEX_LEN) that C7 wrote the image into. It is
// called on every Search call; the engine deserializes only the bytes
// returned on the first call and ignores them afterwards.
type ArenaReader func() []byte

// Bridge owns no mutable state beyond the engine's own initialization
// latch and its deserialized image.
type Bridge struct {
	engine *queryengine.Engine
	arena  ArenaReader
}

func New(arena ArenaReader) *Bridge {
	return &Bridge{engine: queryengine.New(), arena: arena}
}

// Search deserializes the arena on first call and forwards to the query
// engine. On a poisoned engine, every call fails with domain.ErrIndexCorrupt.
func (b *Bridge) Search(needle string, maxResults int) ([]domain.SearchResult, error) {
	return b.engine.Search(b.arena(), needle, maxResults)
}

// SearchJSON is Search with results converted to the host's native value
// representation: a JSON array of result objects.
func (b *Bridge) SearchJSON(needle string, maxResults int) ([]byte, error) {
	results, err := b.Search(needle, maxResults)
	if err != nil {
		return nil, err
	}
	return json.Marshal(results)
}

// State exposes the underlying engine's lifecycle state, mainly for
// diagnostics and the wasmquery dev binary's docfindState() export.
func (b *Bridge) State() queryengine.State {
	return b.engine.State()
}
