package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hypnagonia/docfind/internal/queryengine"
)

// newSearchCmd is a development convenience: it runs the query engine
// directly against a raw serialized image file, bypassing the WebAssembly
// host bridge entirely, so the ranking algorithm can be exercised without
// a browser or a WASM runtime.
func newSearchCmd() *cobra.Command {
	var maxResults int

	cmd := &cobra.Command{
		Use:   "search <image-file> <query>",
		Short: "Query a serialized index image directly, without a WASM host",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], args[1], maxResults)
		},
	}

	cmd.Flags().IntVar(&maxResults, "max-results", queryengine.DefaultMaxResults, "maximum number of results to print")

	return cmd
}

func runSearch(cmd *cobra.Command, imagePath, query string, maxResults int) error {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return exitError(ExitIOError, err)
	}

	engine := queryengine.New()
	results, err := engine.Search(data, query, maxResults)
	if err != nil {
		return exitError(ExitTemplateInvalid, err)
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "no results")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(out, "%2d. [%.4f] %s  %s\n", i+1, r.Score, r.Title, r.Href)
	}

	return nil
}
