// Package config loads the build-time configuration for docfind: tier
// weights, extraction limits, cache behavior, and logging, expressed as
// typed sub-structs with a DefaultConfig and YAML overrides.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all build-time configuration for docfind.
type Config struct {
	Scoring ScoringConfig `yaml:"scoring"`
	Index   IndexConfig   `yaml:"index"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// ScoringConfig holds the tunable weights: tier base weights and the
// phrase-length/sample-size limits that gate the keyword extractor and
// text compressor.
type ScoringConfig struct {
	TierWeightMetadata float64 `yaml:"tier_weight_metadata"`
	TierWeightTitle    float64 `yaml:"tier_weight_title"`
	TierWeightBody     float64 `yaml:"tier_weight_body"`
	MaxPhraseTokens    int     `yaml:"max_phrase_tokens"`
	SampleBytes        int64   `yaml:"sample_bytes"`
}

// IndexConfig holds directory-mode ingestion settings.
type IndexConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// CacheConfig controls the build cache (C11).
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig controls structured logging verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration: tier weights 3/2/1,
// max phrase length 4 tokens, a 16 MiB compressor training sample cap.
func DefaultConfig() *Config {
	return &Config{
		Scoring: ScoringConfig{
			TierWeightMetadata: 3.0,
			TierWeightTitle:    2.0,
			TierWeightBody:     1.0,
			MaxPhraseTokens:    4,
			SampleBytes:        16 << 20,
		},
		Index: IndexConfig{
			Includes: []string{"**/*.md", "**/*.txt", "**/*.html"},
			Excludes: []string{"**/node_modules/**", "**/.git/**"},
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    ".docfind-cache/build.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults
// when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir looks for docfind.yaml in dir, falling back to defaults.
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docfind.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}
	return DefaultConfig(), nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CacheDBPath resolves the build cache path relative to outDir when the
// configured path is relative.
func CacheDBPath(outDir string, cfg *Config) string {
	if filepath.IsAbs(cfg.Cache.Path) {
		return cfg.Cache.Path
	}
	return filepath.Join(outDir, cfg.Cache.Path)
}
