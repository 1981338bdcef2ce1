// Package ingest turns a directory of source materials into an exported
// chunk corpus and a run report.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/gamma-omg/mgmt-knowledge/chunker"
	"github.com/gamma-omg/mgmt-knowledge/corpus"
	"github.com/gamma-omg/mgmt-knowledge/readers"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

var ErrMaterialsNotFound = errors.New("materials directory not found")

type DirExtractor interface {
	ExtractDir(root string) ([]readers.RawDocument, error)
}

type Chunker interface {
	Chunk(ctx context.Context, doc readers.RawDocument) (chunker.Result, error)
}

// fingerprinter is implemented by chunkers whose output depends on settings.
type fingerprinter interface {
	Fingerprint() string
}

type Pipeline struct {
	extractor DirExtractor
	chunker   Chunker
	pool      *ants.Pool
	cache     *ChunkCache
	scope     string
	log       *slog.Logger
	formats   []string
	gzip      bool
	provider  string
	target    chunker.WordRange
}

type Option func(*Pipeline) error

// WithPoolSize sets how many documents are chunked concurrently.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) error {
		if l != nil {
			p.log = l
		}
		return nil
	}
}

func WithCache(c *ChunkCache) Option {
	return func(p *Pipeline) error {
		p.cache = c
		return nil
	}
}

func WithFormats(formats ...string) Option {
	return func(p *Pipeline) error {
		f, err := ParseFormats(formats)
		if err != nil {
			return err
		}
		p.formats = f
		return nil
	}
}

// WithGzip compresses the chromadb export.
func WithGzip(on bool) Option {
	return func(p *Pipeline) error {
		p.gzip = on
		return nil
	}
}

// WithProvider records the AI provider name in the report.
func WithProvider(name string) Option {
	return func(p *Pipeline) error {
		p.provider = name
		return nil
	}
}

func WithTarget(r chunker.WordRange) Option {
	return func(p *Pipeline) error {
		p.target = r
		return nil
	}
}

func NewPipeline(extractor DirExtractor, c Chunker, opts ...Option) (*Pipeline, error) {
	if extractor == nil || c == nil {
		return nil, errors.New("extractor and chunker are required")
	}

	p := &Pipeline{
		extractor: extractor,
		chunker:   c,
		log:       slog.Default(),
		formats:   DefaultFormats,
		target:    chunker.DefaultTarget,
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}

	if p.pool == nil {
		if err := WithPoolSize(max(1, runtime.NumCPU()/2))(p); err != nil {
			return nil, err
		}
	}
	if f, ok := c.(fingerprinter); ok {
		p.scope = f.Fingerprint()
	}
	p.log = p.log.With("component", "ingest")

	return p, nil
}

func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

type outcome struct {
	chunks   []corpus.Chunk
	skipped  bool
	fallback bool
	cached   bool
	err      error
}

// Run extracts, chunks, audits and exports every supported document under
// materialsDir, then writes the run report into outputDir.
func (p *Pipeline) Run(ctx context.Context, materialsDir, outputDir string) (*Report, error) {
	if info, err := os.Stat(materialsDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrMaterialsNotFound, materialsDir)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	runID := uuid.NewString()
	log := p.log.With("run_id", runID)

	log.Info("extracting text", "dir", materialsDir)
	docs, err := p.extractor.ExtractDir(materialsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to extract documents: %w", err)
	}
	summary := readers.Summarize(docs)
	log.Info("extraction done", "files", summary.TotalFiles, "successful", summary.Successful)

	outcomes := p.chunkAll(ctx, log, docs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		all     []corpus.Chunk
		failed  = []FailedDocument{}
		results ChunkingResults
	)
	for i, doc := range docs {
		o := outcomes[i]
		switch {
		case !doc.OK():
			failed = append(failed, FailedDocument{RawDocument: doc})
		case o.err != nil:
			doc.Content = ""
			failed = append(failed, FailedDocument{RawDocument: doc, ChunkingError: o.err.Error()})
		case o.skipped:
			results.SkippedDocuments++
		default:
			all = append(all, o.chunks...)
			if o.fallback {
				results.FallbackDocuments++
			}
			if o.cached {
				results.CachedDocuments++
			}
		}
	}

	all = uniqueIDs(all)
	results.TotalChunksCreated = len(all)
	results.FailedDocuments = len(failed)
	results.SuccessfulDocuments = len(docs) - len(failed)
	if len(all) > 0 {
		words := 0
		for _, c := range all {
			words += c.WordCount
		}
		results.AverageChunkSizeWords = float64(words) / float64(len(all))
	}

	log.Info("analyzing chunk quality", "chunks", len(all))
	quality := chunker.Audit(all, p.target)

	exports, err := p.export(all, outputDir)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:             runID,
		IngestionDate:     time.Now(),
		AIProvider:        p.provider,
		SourceDirectory:   materialsDir,
		OutputDirectory:   outputDir,
		ProcessingSummary: summary,
		ChunkingResults:   results,
		QualityMetrics:    quality,
		ExportResults:     exports,
		FailedDocuments:   failed,
	}

	path := filepath.Join(outputDir, ReportFile)
	if err := writeReport(path, report); err != nil {
		return nil, err
	}
	log.Info("ingestion complete", "report", path, "chunks", len(all), "failed", len(failed))

	return report, nil
}

func (p *Pipeline) chunkAll(ctx context.Context, log *slog.Logger, docs []readers.RawDocument) []outcome {
	outcomes := make([]outcome, len(docs))
	var wg sync.WaitGroup

	for i, doc := range docs {
		if !doc.OK() {
			continue
		}

		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			outcomes[i] = p.chunkOne(ctx, log, doc)
		})
		if err != nil {
			wg.Done()
			outcomes[i] = outcome{err: fmt.Errorf("failed to schedule chunking: %w", err)}
		}
	}

	wg.Wait()
	return outcomes
}

func (p *Pipeline) chunkOne(ctx context.Context, log *slog.Logger, doc readers.RawDocument) outcome {
	if err := ctx.Err(); err != nil {
		return outcome{err: err}
	}

	if p.cache != nil {
		entry, ok, err := p.cache.Get(p.scope, doc)
		if err != nil {
			log.Warn("chunk cache lookup failed", "file", doc.Filename, "err", err)
		} else if ok {
			log.Debug("using cached chunks", "file", doc.Filename, "chunks", len(entry.Chunks))
			return outcome{chunks: entry.Chunks, cached: true}
		}
	}

	res, err := p.chunker.Chunk(ctx, doc)
	if err != nil {
		log.Error("failed to chunk document", "file", doc.Filename, "err", err)
		return outcome{err: err}
	}
	if res.Skipped {
		return outcome{skipped: true}
	}

	// only model output is cached
	if p.cache != nil && !res.Fallback {
		if err := p.cache.Put(p.scope, doc, CacheEntry{Chunks: res.Chunks}); err != nil {
			log.Warn("failed to cache chunks", "file", doc.Filename, "err", err)
		}
	}

	log.Info("chunked document", "file", doc.Filename, "chunks", len(res.Chunks), "fallback", res.Fallback)
	return outcome{chunks: res.Chunks, fallback: res.Fallback}
}

func (p *Pipeline) export(chunks []corpus.Chunk, outputDir string) (ExportResults, error) {
	var res ExportResults
	for _, f := range p.formats {
		switch f {
		case FormatChromaDB:
			e, err := exportChroma(chunks, outputDir, p.gzip)
			if err != nil {
				return res, fmt.Errorf("chromadb export failed: %w", err)
			}
			res.ChromaDB = e
		case FormatCustomGPT:
			e, err := exportCustomGPT(chunks, outputDir)
			if err != nil {
				return res, fmt.Errorf("custom_gpt export failed: %w", err)
			}
			res.CustomGPT = e
		}
	}
	return res, nil
}

// uniqueIDs suffixes repeated chunk ids, which occur when documents in
// different directories share a file name.
func uniqueIDs(chunks []corpus.Chunk) []corpus.Chunk {
	taken := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		taken[c.ID] = true
	}

	used := make(map[string]bool, len(chunks))
	for i := range chunks {
		id := chunks[i].ID
		if !used[id] {
			used[id] = true
			continue
		}
		for n := 1; ; n++ {
			candidate := fmt.Sprintf("%s_%d", id, n)
			if !taken[candidate] && !used[candidate] {
				chunks[i].ID = candidate
				used[candidate] = true
				break
			}
		}
	}
	return chunks
}
