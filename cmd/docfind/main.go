// Command docfind is the native entry point: it builds the search index,
// embeds it into a WebAssembly template, and offers a couple of
// development-only inspection commands.
package main

import (
	"os"

	"github.com/hypnagonia/docfind/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
