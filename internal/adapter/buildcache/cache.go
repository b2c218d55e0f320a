// Package buildcache memoizes the expensive, deterministic per-document
// build steps — keyword extraction (C2) and string compression (C4) — in
// a content-addressed bbolt database. This is a build-time speedup only:
// it never touches query-time behavior, so it does not reintroduce the
// incremental-indexing Non-goal.
package buildcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"go.etcd.io/bbolt"

	"github.com/hypnagonia/docfind/config"
	"github.com/hypnagonia/docfind/internal/domain"
)

// CurrentSchemaVersion is bumped whenever the cached record layout changes
// in a way that makes old entries unreadable.
const CurrentSchemaVersion = 1

var (
	bucketExtract  = []byte("extract")
	bucketCompress = []byte("compress")
	bucketMeta     = []byte("meta")

	keySchemaVersion = []byte("schema_version")
	keyConfigHash    = []byte("config_hash")
)

// Cache wraps a bbolt database that memoizes RAKE extraction results and
// FSST-compressed blobs, keyed by the SHA-256 of their input bytes. Stored
// extraction records are zstd-compressed: they are small JSON documents
// repeated across a corpus with heavy structural overlap, which zstd's
// entropy coder shrinks well below the raw JSON size.
type Cache struct {
	db  *bbolt.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens (creating if necessary) the build cache at path.
func Open(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open build cache: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketExtract, bucketCompress, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db, enc: enc, dec: dec}, nil
}

// Close closes the underlying database and releases the zstd codec.
func (c *Cache) Close() error {
	c.enc.Close()
	c.dec.Close()
	return c.db.Close()
}

// HashContent returns the content-address key for a piece of input data.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ComputeConfigHash hashes the scoring knobs that change extraction and
// compression output, so a config edit invalidates stale cache entries
// without requiring the caller to remember to do so.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		TierWeightMetadata float64 `json:"tier_weight_metadata"`
		TierWeightTitle    float64 `json:"tier_weight_title"`
		TierWeightBody     float64 `json:"tier_weight_body"`
		MaxPhraseTokens    int     `json:"max_phrase_tokens"`
		SampleBytes        int64   `json:"sample_bytes"`
	}{
		TierWeightMetadata: cfg.Scoring.TierWeightMetadata,
		TierWeightTitle:    cfg.Scoring.TierWeightTitle,
		TierWeightBody:     cfg.Scoring.TierWeightBody,
		MaxPhraseTokens:    cfg.Scoring.MaxPhraseTokens,
		SampleBytes:        cfg.Scoring.SampleBytes,
	}
	data, _ := json.Marshal(relevant)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// EnsureFresh compares the stored schema version and config hash against
// the running build's, wiping the cache (rather than serving stale
// entries) whenever either has changed.
func (c *Cache) EnsureFresh(cfg *config.Config) (wiped bool, reason string, err error) {
	var storedVersion int
	var storedHash string

	err = c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if v := b.Get(keySchemaVersion); v != nil {
			json.Unmarshal(v, &storedVersion)
		}
		if h := b.Get(keyConfigHash); h != nil {
			storedHash = string(h)
		}
		return nil
	})
	if err != nil {
		return false, "", err
	}

	newHash := ComputeConfigHash(cfg)

	switch {
	case storedVersion == 0:
		reason = "initializing build cache"
	case storedVersion != CurrentSchemaVersion:
		reason = fmt.Sprintf("cache schema changed (v%d -> v%d)", storedVersion, CurrentSchemaVersion)
	case storedHash != "" && storedHash != newHash:
		reason = "scoring configuration changed"
	}

	if reason == "" {
		return false, "", nil
	}

	if err := c.reset(); err != nil {
		return false, "", err
	}

	err = c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		versionData, err := json.Marshal(CurrentSchemaVersion)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, versionData); err != nil {
			return err
		}
		return b.Put(keyConfigHash, []byte(newHash))
	})
	if err != nil {
		return false, "", err
	}

	return true, reason, nil
}

func (c *Cache) reset() error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketExtract, bucketCompress} {
			if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetExtraction returns the cached RAKE contributions for a document whose
// content hashes to key, if present.
func (c *Cache) GetExtraction(key string) ([]domain.Contribution, bool, error) {
	var contributions []domain.Contribution
	found := false
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketExtract).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		raw, err := c.dec.DecodeAll(data, nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, &contributions)
	})
	return contributions, found, err
}

// PutExtraction stores the RAKE contributions for content hash key.
func (c *Cache) PutExtraction(key string, contributions []domain.Contribution) error {
	data, err := json.Marshal(contributions)
	if err != nil {
		return err
	}
	compressed := c.enc.EncodeAll(data, nil)
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketExtract).Put([]byte(key), compressed)
	})
}

// GetCompressed returns the cached FSST-compressed blob for content hash
// key, if present.
func (c *Cache) GetCompressed(key string) ([]byte, bool, error) {
	var blob []byte
	found := false
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCompress).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		blob = append([]byte(nil), data...)
		return nil
	})
	return blob, found, err
}

// PutCompressed stores the FSST-compressed blob for content hash key.
func (c *Cache) PutCompressed(key string, blob []byte) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCompress).Put([]byte(key), blob)
	})
}
