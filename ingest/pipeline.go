// Package ingest turns the configured websites into a populated vector index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloudwalk-rag/cache"
	"cloudwalk-rag/chunker"
	"cloudwalk-rag/db"
	"cloudwalk-rag/models"
)

const defaultBatchSize = 100

// Crawler produces documents from seed URLs.
type Crawler interface {
	Crawl(ctx context.Context, seeds []string) ([]models.Document, error)
}

// DocumentEmbedder embeds chunk texts.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Index stores embedded chunks.
type Index interface {
	Count() int
	Upsert(ctx context.Context, chunks []models.Chunk) error
	Reset() error
}

// Config holds the pipeline settings.
type Config struct {
	Seeds         []string
	DocumentsPath string
	IndexPath     string
	MinLength     int
	BatchSize     int
}

// Stats summarizes a run.
type Stats struct {
	Documents int  // documents after filtering
	Chunks    int  // chunks produced
	Indexed   int  // chunks in the index at the end
	FromCache bool // documents came from the snapshot
	Reused    bool // an existing index was loaded and nothing was rebuilt
}

// Pipeline runs crawl-or-load, filter, chunk, embed and index.
type Pipeline struct {
	cfg      Config
	crawler  Crawler
	splitter *chunker.Splitter
	embedder DocumentEmbedder
	index    Index
	log      *slog.Logger
}

// New creates a Pipeline. embedder and index may be nil when only documents are needed.
func New(cfg Config, crawler Crawler, splitter *chunker.Splitter, embedder DocumentEmbedder, index Index, log *slog.Logger) *Pipeline {
	if cfg.MinLength <= 0 {
		cfg.MinLength = cache.DefaultMinLength
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		cfg:      cfg,
		crawler:  crawler,
		splitter: splitter,
		embedder: embedder,
		index:    index,
		log:      log,
	}
}

// LoadDocuments returns filtered documents from the snapshot when one exists,
// without touching the network. Otherwise it crawls, saves the unfiltered
// result as the new snapshot and returns it filtered.
func (p *Pipeline) LoadDocuments(ctx context.Context) ([]models.Document, bool, error) {
	docs, err := cache.Load(p.cfg.DocumentsPath)
	switch {
	case err == nil:
		p.log.Info("loaded documents from snapshot", "path", p.cfg.DocumentsPath, "documents", len(docs))
		return p.filter(docs), true, nil
	case !errors.Is(err, cache.ErrNotFound):
		return nil, false, fail(StageLoad, err)
	}

	p.log.Warn("document snapshot not found, crawling", "path", p.cfg.DocumentsPath)
	docs, err = p.Crawl(ctx)
	if err != nil {
		return nil, false, err
	}
	return p.filter(docs), false, nil
}

// Crawl always crawls the seeds and overwrites the snapshot with the
// unfiltered documents.
func (p *Pipeline) Crawl(ctx context.Context) ([]models.Document, error) {
	if cache.Exists(p.cfg.DocumentsPath) {
		p.log.Info("existing document snapshot will be replaced", "path", p.cfg.DocumentsPath)
	}
	docs, err := p.crawler.Crawl(ctx, p.cfg.Seeds)
	if err != nil {
		return nil, fail(StageCrawl, err)
	}
	if err := cache.Save(p.cfg.DocumentsPath, docs); err != nil {
		return nil, fail(StageCrawl, err)
	}
	p.log.Info("saved document snapshot", "path", p.cfg.DocumentsPath, "documents", len(docs))
	return docs, nil
}

func (p *Pipeline) filter(docs []models.Document) []models.Document {
	kept := cache.Filter(docs, p.cfg.MinLength)
	p.log.Info("filtered documents", "before", len(docs), "after", len(kept), "min_length", p.cfg.MinLength)
	if len(kept) > 0 {
		p.log.Debug("first document sample", "source", kept[0].SourceURL, "text", preview(kept[0].Text, 500))
	}
	return kept
}

// EnsureIndex loads the existing index when it is present and populated,
// unless rebuild is set. Otherwise it builds the index from documents.
func (p *Pipeline) EnsureIndex(ctx context.Context, rebuild bool) (Stats, error) {
	if !rebuild && db.Exists(p.cfg.IndexPath) && p.index.Count() > 0 {
		n := p.index.Count()
		p.log.Info("loaded existing vector index", "path", p.cfg.IndexPath, "chunks", n)
		return Stats{Indexed: n, Reused: true}, nil
	}
	if rebuild {
		if err := p.index.Reset(); err != nil {
			return Stats{}, fail(StageIndex, err)
		}
	}
	p.log.Info("vector index not found or empty, building it", "path", p.cfg.IndexPath)
	return p.BuildIndex(ctx)
}

// BuildIndex loads documents, splits them, embeds the chunks and writes them
// to the index batch by batch. If a batch fails after earlier ones were
// written, the index is reset so the next run builds it again instead of
// reusing a partial index.
func (p *Pipeline) BuildIndex(ctx context.Context) (Stats, error) {
	docs, fromCache, err := p.LoadDocuments(ctx)
	if err != nil {
		return Stats{}, err
	}
	if len(docs) == 0 {
		return Stats{}, fail(StageLoad, ErrNoDocuments)
	}

	chunks := p.splitter.Split(docs)
	if len(chunks) == 0 {
		return Stats{}, fail(StageChunk, ErrNoChunks)
	}
	p.log.Info("split documents", "documents", len(docs), "chunks", len(chunks),
		"chunk_size", p.splitter.ChunkSize(), "overlap", p.splitter.Overlap())

	for start := 0; start < len(chunks); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := p.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return Stats{}, p.abort(StageEmbed, err, start)
		}
		if len(vectors) != len(batch) {
			return Stats{}, p.abort(StageEmbed, fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(batch)), start)
		}
		for i := range batch {
			batch[i].Vector = vectors[i]
		}

		if err := p.index.Upsert(ctx, batch); err != nil {
			return Stats{}, p.abort(StageIndex, err, end)
		}
		p.log.Info("indexed chunks", "done", end, "total", len(chunks))
	}

	return Stats{
		Documents: len(docs),
		Chunks:    len(chunks),
		Indexed:   p.index.Count(),
		FromCache: fromCache,
	}, nil
}

// abort discards a partially written index and returns the stage error.
// written is an upper bound on the chunks stored so far.
func (p *Pipeline) abort(stage Stage, err error, written int) error {
	if written == 0 {
		return fail(stage, err)
	}
	p.log.Warn("discarding partial vector index", "stage", stage, "chunks_written", written, "error", err)
	if rerr := p.index.Reset(); rerr != nil {
		return fail(stage, errors.Join(err, fmt.Errorf("reset partial index: %w", rerr)))
	}
	return fail(stage, err)
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
