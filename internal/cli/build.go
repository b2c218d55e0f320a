package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hypnagonia/docfind/config"
	"github.com/hypnagonia/docfind/internal/adapter/analyzer"
	"github.com/hypnagonia/docfind/internal/adapter/buildcache"
	"github.com/hypnagonia/docfind/internal/adapter/fs"
	"github.com/hypnagonia/docfind/internal/adapter/ingest"
	"github.com/hypnagonia/docfind/internal/adapter/keyword"
	"github.com/hypnagonia/docfind/internal/codec"
	"github.com/hypnagonia/docfind/internal/domain"
	"github.com/hypnagonia/docfind/internal/index"
	"github.com/hypnagonia/docfind/internal/wasmpatch"
)

func newBuildCmd() *cobra.Command {
	var templatePath string
	var shimPath string

	cmd := &cobra.Command{
		Use:   "build <documents.json|dir> <output_dir>",
		Short: "Build the search index and embed it into a WebAssembly artifact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(args[0], args[1], templatePath, shimPath)
		},
	}

	cmd.Flags().StringVar(&templatePath, "template", "", "path to the pre-built WebAssembly template module (required)")
	cmd.Flags().StringVar(&shimPath, "shim", "", "path to a host shim to copy verbatim (defaults to the bundled docfind.js)")

	return cmd
}

func runBuild(input, outDir, templatePath, shimPath string) error {
	buildID := uuid.New().String()
	buildLog := log.WithField("build_id", buildID)

	if templatePath == "" {
		return exitError(ExitInvalidArgs, errors.New("--template is required"))
	}

	cfg, err := resolveBuildConfig(input)
	if err != nil {
		return exitError(ExitIOError, err)
	}

	docs, err := ingestInput(input, cfg)
	if err != nil {
		if errors.Is(err, domain.ErrInputMalformed) {
			return exitError(ExitInputParseError, err)
		}
		return exitError(ExitIOError, err)
	}
	buildLog.WithField("docs", len(docs)).Info("ingested documents")

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return exitError(ExitIOError, fmt.Errorf("create output directory: %w", err))
	}

	var cache *buildcache.Cache
	if cfg.Cache.Enabled {
		cache, err = buildcache.Open(config.CacheDBPath(outDir, cfg))
		if err != nil {
			return exitError(ExitIOError, fmt.Errorf("open build cache: %w", err))
		}
		defer cache.Close()
		if wiped, reason, err := cache.EnsureFresh(cfg); err == nil && wiped {
			buildLog.WithField("reason", reason).Info("build cache reset")
		}
	}

	extractor := keyword.NewRakeExtractor(
		analyzer.NewTokenizer(false),
		keyword.TierWeights{
			Metadata: cfg.Scoring.TierWeightMetadata,
			Title:    cfg.Scoring.TierWeightTitle,
			Body:     cfg.Scoring.TierWeightBody,
		},
		cfg.Scoring.MaxPhraseTokens,
	)
	builder := index.NewBuilder(extractor, cfg.Scoring.SampleBytes, cache, buildLog, !verbose && os.Getenv("DOCFIND_DEBUG") == "")

	img, err := builder.Build(docs)
	if err != nil {
		return exitError(ExitIOError, err)
	}

	imageBytes, err := codec.Encode(img)
	if err != nil {
		return exitError(ExitIOError, fmt.Errorf("serialize index image: %w", err))
	}
	buildLog.WithField("image_bytes", len(imageBytes)).Info("serialized index image")

	template, err := os.ReadFile(templatePath)
	if err != nil {
		return exitError(ExitIOError, fmt.Errorf("read template: %w", err))
	}

	patched, err := wasmpatch.Embed(template, imageBytes)
	if err != nil {
		if errors.Is(err, domain.ErrTemplateMissingGlobal) || errors.Is(err, domain.ErrTemplateNoMemory) || errors.Is(err, domain.ErrTemplateMalformed) {
			return exitError(ExitTemplateInvalid, err)
		}
		return exitError(ExitIOError, err)
	}
	buildLog.WithFields(map[string]any{
		"image_offset": patched.ImageOffset,
		"image_len":    patched.ImageLen,
	}).Info("embedded index into template")

	wasmPath := filepath.Join(outDir, "docfind_bg.wasm")
	if err := os.WriteFile(wasmPath, patched.Wasm, 0644); err != nil {
		return exitError(ExitIOError, fmt.Errorf("write artifact: %w", err))
	}

	shim := defaultShim
	if shimPath != "" {
		shim, err = os.ReadFile(shimPath)
		if err != nil {
			return exitError(ExitIOError, fmt.Errorf("read shim: %w", err))
		}
	}
	jsPath := filepath.Join(outDir, "docfind.js")
	if err := os.WriteFile(jsPath, shim, 0644); err != nil {
		return exitError(ExitIOError, fmt.Errorf("write shim: %w", err))
	}

	buildLog.WithFields(map[string]any{"wasm": wasmPath, "js": jsPath}).Info("build complete")
	return nil
}

// resolveBuildConfig loads docfind.yaml from the input's directory (or the
// input itself, if it's already a directory) unless --config overrides it.
func resolveBuildConfig(input string) (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	info, err := os.Stat(input)
	if err != nil {
		return config.DefaultConfig(), nil
	}
	dir := input
	if !info.IsDir() {
		dir = filepath.Dir(input)
	}
	return config.LoadFromDir(dir)
}

// ingestInput dispatches to the JSON or directory ingestor depending on
// whether input names a file or a directory.
func ingestInput(input string, cfg *config.Config) ([]domain.Document, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		walker := fs.NewWalker(cfg.Index.Includes, cfg.Index.Excludes).WithLogger(logrus.NewEntry(log))
		dirIngestor := ingest.NewDirIngestor(walker, fs.ReadFile)
		return dirIngestor.IngestDir(input)
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return nil, err
	}
	return ingest.NewJSONIngestor().Ingest(data)
}
