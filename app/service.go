// Package app assembles the crawler, index and assistant into one service
// with an explicit lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloudwalk-rag/chunker"
	"cloudwalk-rag/config"
	"cloudwalk-rag/crawler"
	"cloudwalk-rag/db"
	"cloudwalk-rag/embedding"
	"cloudwalk-rag/ingest"
	"cloudwalk-rag/models"
	"cloudwalk-rag/rag"
)

// Service owns every long-lived component. Build it with Init and release it
// with Close.
type Service struct {
	cfg       *config.Config
	log       *slog.Logger
	store     *db.Store
	embedder  embedding.Embedder
	pipeline  *ingest.Pipeline
	assistant *rag.Assistant
}

// NewCrawler builds the page crawler from cfg. It needs no credentials.
func NewCrawler(cfg *config.Config, log *slog.Logger) *crawler.Crawler {
	fetcher := crawler.NewHTTPFetcher(crawler.FetcherConfig{
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
	})
	return crawler.New(fetcher, log,
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithDelay(cfg.RequestDelay),
	)
}

// Crawl always fetches the seeds and overwrites the document snapshot.
// It needs no credentials.
func Crawl(ctx context.Context, cfg *config.Config, log *slog.Logger) ([]models.Document, error) {
	return ingest.New(pipelineConfig(cfg), NewCrawler(cfg, log), nil, nil, nil, log).Crawl(ctx)
}

func pipelineConfig(cfg *config.Config) ingest.Config {
	return ingest.Config{
		Seeds:         cfg.SeedURLs,
		DocumentsPath: cfg.DocumentsPath,
		IndexPath:     cfg.DBPath,
		MinLength:     cfg.MinDocumentLength,
		BatchSize:     embedding.DefaultBatchSize,
	}
}

// Init wires every component. It opens the index directory but does not
// build it; call EnsureIndex before Ask.
func Init(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	apiKey, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}

	embedder, llm, err := newProvider(ctx, cfg, apiKey)
	if err != nil {
		return nil, err
	}

	store, err := db.NewStore(cfg.DBPath, cfg.Collection)
	if err != nil {
		_ = embedder.Close()
		_ = llm.Close()
		return nil, &ingest.IngestError{Stage: ingest.StageIndex, Err: err}
	}

	splitter, err := chunker.New(
		chunker.WithChunkSize(cfg.ChunkSize),
		chunker.WithOverlap(cfg.ChunkOverlap),
	)
	if err != nil {
		_ = embedder.Close()
		_ = llm.Close()
		return nil, fmt.Errorf("failed to create splitter: %w", err)
	}

	pipeline := ingest.New(pipelineConfig(cfg), NewCrawler(cfg, log), splitter, embedder, store, log)

	assistant := rag.NewAssistant(embedder, store, llm,
		rag.WithTopK(cfg.TopK),
		rag.WithMinSimilarity(cfg.MinSimilarity),
		rag.WithLogger(log),
	)

	log.Info("service initialized",
		"provider", cfg.Provider,
		"db_path", cfg.DBPath,
		"collection", cfg.Collection,
		"top_k", cfg.TopK)

	return &Service{
		cfg:       cfg,
		log:       log,
		store:     store,
		embedder:  embedder,
		pipeline:  pipeline,
		assistant: assistant,
	}, nil
}

func newProvider(ctx context.Context, cfg *config.Config, apiKey string) (embedding.Embedder, rag.Completer, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		api := embedding.NewOpenAI(apiKey, cfg.EmbeddingModel)
		return embedding.NewClient(api, embedding.DefaultBatchSize),
			rag.NewOpenAI(apiKey, cfg.ChatModel, cfg.Temperature), nil
	case config.ProviderGemini:
		api, err := embedding.NewGemini(ctx, apiKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create embedding client: %w", err)
		}
		llm, err := rag.NewGemini(ctx, apiKey, cfg.ChatModel, cfg.Temperature)
		if err != nil {
			_ = api.Close()
			return nil, nil, fmt.Errorf("failed to create chat client: %w", err)
		}
		return embedding.NewClient(api, embedding.DefaultBatchSize), llm, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// EnsureIndex loads the persisted index or builds it from the snapshot or a
// fresh crawl. rebuild drops whatever is stored first.
func (s *Service) EnsureIndex(ctx context.Context, rebuild bool) (ingest.Stats, error) {
	return s.pipeline.EnsureIndex(ctx, rebuild)
}

// Ask answers question using history as prior turns.
func (s *Service) Ask(ctx context.Context, history []models.Message, question string) (rag.Answer, error) {
	return s.assistant.Ask(ctx, history, question)
}

// Chunks returns the number of indexed chunks.
func (s *Service) Chunks() int {
	return s.store.Count()
}

func (s *Service) Close() error {
	return errors.Join(s.assistant.Close(), s.embedder.Close(), s.store.Close())
}
