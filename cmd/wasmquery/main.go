//go:build js && wasm

// Command wasmquery is a development convenience, not the production
// artifact: it compiles the query engine to js/wasm behind Go's own
// syscall/js calling convention, so the ranking algorithm can be exercised
// from a browser console without the raw-linear-memory ABI the actual
// docfind_bg.wasm template expects. That template is produced by patching
// a pre-built module (C7); it is out of scope for this repo to emit
// directly, since Go cannot target the exported-mutable-globals ABI the
// real template relies on.
package main

import (
	"syscall/js"

	"github.com/hypnagonia/docfind/internal/hostbridge"
	"github.com/hypnagonia/docfind/internal/queryengine"
)

func main() {
	c := make(chan struct{})

	bridge := hostbridge.New(func() []byte {
		arena := js.Global().Get("__docfindArena")
		if arena.IsUndefined() || arena.IsNull() {
			return nil
		}
		buf := make([]byte, arena.Get("length").Int())
		js.CopyBytesToGo(buf, arena)
		return buf
	})

	js.Global().Set("docfindSearch", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 1 {
			return js.ValueOf("[]")
		}
		needle := args[0].String()
		maxResults := queryengine.DefaultMaxResults
		if len(args) > 1 {
			maxResults = args[1].Int()
		}

		data, err := bridge.SearchJSON(needle, maxResults)
		if err != nil {
			return js.ValueOf("[]")
		}
		return js.ValueOf(string(data))
	}))

	js.Global().Set("docfindState", js.FuncOf(func(this js.Value, args []js.Value) any {
		return js.ValueOf(bridge.State().String())
	}))

	<-c
}
