package index

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hypnagonia/docfind/internal/adapter/aggregate"
	"github.com/hypnagonia/docfind/internal/adapter/buildcache"
	"github.com/hypnagonia/docfind/internal/adapter/fstindex"
	"github.com/hypnagonia/docfind/internal/adapter/textcompress"
	"github.com/hypnagonia/docfind/internal/domain"
	"github.com/hypnagonia/docfind/internal/port"
)

// Builder assembles the full index image from ingested documents,
// orchestrating C2-C5. Keyword extraction and string compression run
// concurrently against each other as two errgroup branches, and each
// fans out over its own items through a bounded ants worker pool.
type Builder struct {
	extractor   port.Extractor
	sampleBytes int64
	cache       *buildcache.Cache
	log         *logrus.Entry
	showBars    bool
}

func NewBuilder(extractor port.Extractor, sampleBytes int64, cache *buildcache.Cache, log *logrus.Entry, showBars bool) *Builder {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Builder{extractor: extractor, sampleBytes: sampleBytes, cache: cache, log: log, showBars: showBars}
}

// Build runs C2-C5 and returns the finished, validated (unserialized) image.
func (b *Builder) Build(docs []domain.Document) (*domain.Image, error) {
	b.log.WithField("docs", len(docs)).Info("building index image")

	var contributions []domain.Contribution
	var compressedStrings [][]byte
	var compressorBlob []byte
	var docRecords []domain.DocRecord

	g := new(errgroup.Group)
	g.Go(func() error {
		var err error
		contributions, err = b.extractAll(docs)
		return err
	})
	g.Go(func() error {
		var err error
		compressedStrings, compressorBlob, docRecords, err = b.compressAll(docs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	keywordPostings := aggregate.Aggregate(contributions)
	b.log.WithField("keywords", len(keywordPostings)).Info("aggregated postings")

	fstBytes, err := fstindex.Build(keywordPostings)
	if err != nil {
		return nil, err
	}

	postings := make([][]domain.Posting, len(keywordPostings))
	for i, kp := range keywordPostings {
		postings[i] = kp.Postings
	}

	img := &domain.Image{
		Version:        domain.CurrentImageVersion,
		FSTBytes:       fstBytes,
		Postings:       postings,
		CompressorBlob: compressorBlob,
		Strings:        compressedStrings,
		Docs:           docRecords,
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}

	b.log.Info("index image assembled")
	return img, nil
}

// extractAll runs C2 over every document through a bounded worker pool,
// consulting the build cache per document when configured.
func (b *Builder) extractAll(docs []domain.Document) ([]domain.Contribution, error) {
	results := make([][]domain.Contribution, len(docs))

	pool, err := ants.NewPool(workerCount(len(docs)))
	if err != nil {
		return nil, fmt.Errorf("create extraction worker pool: %w", err)
	}
	defer pool.Release()

	var bar *progressbar.ProgressBar
	if b.showBars {
		bar = progressbar.Default(int64(len(docs)), "extracting keywords")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, doc := range docs {
		doc := doc
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if bar != nil {
				defer bar.Add(1)
			}
			contributions, err := b.extractOne(doc)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			results[doc.ID] = contributions
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
		}
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	var all []domain.Contribution
	for _, c := range results {
		all = append(all, c...)
	}
	return all, nil
}

func (b *Builder) extractOne(doc domain.Document) ([]domain.Contribution, error) {
	key := ""
	if b.cache != nil {
		key = buildcache.HashContent(docContentKey(doc.Title, doc.Category, doc.Href, doc.Body, doc.Keywords))
		if cached, found, err := b.cache.GetExtraction(key); err == nil && found {
			return remapDocID(cached, doc.ID), nil
		}
	}

	contributions, err := b.extractor.Extract(doc)
	if err != nil {
		return nil, err
	}

	if b.cache != nil {
		if err := b.cache.PutExtraction(key, stripDocID(contributions)); err != nil {
			b.log.WithError(err).Warn("failed to write extraction cache entry")
		}
	}
	return contributions, nil
}

func stripDocID(contributions []domain.Contribution) []domain.Contribution {
	out := make([]domain.Contribution, len(contributions))
	for i, c := range contributions {
		c.DocID = 0
		out[i] = c
	}
	return out
}

func remapDocID(contributions []domain.Contribution, docID int) []domain.Contribution {
	out := make([]domain.Contribution, len(contributions))
	for i, c := range contributions {
		c.DocID = uint32(docID)
		out[i] = c
	}
	return out
}

// compressAll runs C4: interning every document string in deterministic
// first-occurrence order, training the FSST-family compressor over a
// capped sample, then compressing each unique string through a bounded
// worker pool.
func (b *Builder) compressAll(docs []domain.Document) ([][]byte, []byte, []domain.DocRecord, error) {
	interner := newStringInterner()
	docRecords := make([]domain.DocRecord, len(docs))
	for _, doc := range docs {
		docRecords[doc.ID] = domain.DocRecord{
			Title:    interner.intern(doc.Title),
			Category: interner.intern(doc.Category),
			Href:     interner.intern(doc.Href),
			Body:     interner.intern(doc.Body),
		}
	}

	sample := buildSample(interner.order, b.sampleBytes)
	compressor := textcompress.NewCompressor()
	compressor.Train(sample)
	tableFingerprint := buildcache.HashContent(compressor.Blob())

	compressed := make([][]byte, len(interner.order))

	pool, err := ants.NewPool(workerCount(len(interner.order)))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create compression worker pool: %w", err)
	}
	defer pool.Release()

	var bar *progressbar.ProgressBar
	if b.showBars {
		bar = progressbar.Default(int64(len(interner.order)), "compressing strings")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, s := range interner.order {
		i, s := i, s
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if bar != nil {
				defer bar.Add(1)
			}
			blob, err := b.compressOne(compressor, tableFingerprint, s)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			compressed[i] = blob
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
		}
	}
	wg.Wait()
	if firstErr != nil {
		return nil, nil, nil, firstErr
	}

	return compressed, compressor.Blob(), docRecords, nil
}

// compressOne compresses s through compressor, consulting the cache under a
// key scoped to both the string's content and the fingerprint of the symbol
// table that trained it: a cached blob from a different table (because the
// corpus's interned-string sample changed since it was written) simply
// misses instead of being decompressed against the wrong table.
func (b *Builder) compressOne(compressor *textcompress.Compressor, tableFingerprint, s string) ([]byte, error) {
	key := ""
	if b.cache != nil {
		key = tableFingerprint + ":" + buildcache.HashContent([]byte(s))
		if cached, found, err := b.cache.GetCompressed(key); err == nil && found {
			return cached, nil
		}
	}

	blob := compressor.Compress([]byte(s))

	if b.cache != nil {
		if err := b.cache.PutCompressed(key, blob); err != nil {
			b.log.WithError(err).Warn("failed to write compression cache entry")
		}
	}
	return blob, nil
}

func buildSample(strs []string, capBytes int64) [][]byte {
	var sample [][]byte
	var total int64
	for _, s := range strs {
		if total >= capBytes {
			break
		}
		remaining := capBytes - total
		bs := []byte(s)
		if int64(len(bs)) > remaining {
			bs = bs[:remaining]
		}
		sample = append(sample, bs)
		total += int64(len(bs))
	}
	return sample
}

func workerCount(items int) int {
	n := runtime.NumCPU()
	if items < n {
		n = items
	}
	if n < 1 {
		n = 1
	}
	return n
}
