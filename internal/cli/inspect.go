package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hypnagonia/docfind/internal/codec"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <image-file>",
		Short: "Decode a serialized index image and print summary statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0])
		},
	}
}

func runInspect(cmd *cobra.Command, imagePath string) error {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return exitError(ExitIOError, err)
	}

	img, err := codec.Decode(data)
	if err != nil {
		return exitError(ExitTemplateInvalid, err)
	}

	keywordCount := len(img.Postings)
	postingCount := 0
	for _, p := range img.Postings {
		postingCount += len(p)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "version:          %d\n", img.Version)
	fmt.Fprintf(out, "documents:        %d\n", len(img.Docs))
	fmt.Fprintf(out, "keywords:         %d\n", keywordCount)
	fmt.Fprintf(out, "postings:         %d\n", postingCount)
	fmt.Fprintf(out, "interned strings: %d\n", len(img.Strings))
	fmt.Fprintf(out, "compressor blob:  %d bytes\n", len(img.CompressorBlob))
	fmt.Fprintf(out, "fst bytes:        %d\n", len(img.FSTBytes))
	fmt.Fprintf(out, "image bytes:      %d\n", len(data))

	return nil
}
