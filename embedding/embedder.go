package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultBatchSize is the largest number of texts sent in one API call.
const DefaultBatchSize = 100

var (
	// ErrEmptyText is returned when a text to embed is blank.
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrCountMismatch is returned when the API returns a different number of vectors than requested.
	ErrCountMismatch = errors.New("embedding count does not match input count")
	// ErrEmptyVector is returned when the API returns an empty embedding.
	ErrEmptyVector = errors.New("embedding response is empty")
)

// Task tells the provider how the vector will be used.
type Task int

const (
	// TaskDocument embeds text that will be stored and searched.
	TaskDocument Task = iota
	// TaskQuery embeds a search query.
	TaskQuery
)

// API is a provider embedding endpoint.
type API interface {
	EmbedBatch(ctx context.Context, texts []string, task Task) ([][]float32, error)
	Close() error
}

// Embedder turns text into vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Close() error
}

// Client validates input, batches requests and checks provider responses.
type Client struct {
	api       API
	batchSize int
}

// NewClient wraps api. A batchSize of zero uses DefaultBatchSize.
func NewClient(api API, batchSize int) *Client {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Client{api: api, batchSize: batchSize}
}

// EmbedDocuments embeds texts in order, batchSize at a time.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("text %d: %w", i, ErrEmptyText)
		}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		batch := texts[start:end]

		vectors, err := c.api.EmbedBatch(ctx, batch, TaskDocument)
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings for texts %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(vectors), len(batch))
		}
		for i, v := range vectors {
			if len(v) == 0 {
				return nil, fmt.Errorf("text %d: %w", start+i, ErrEmptyVector)
			}
		}
		out = append(out, vectors...)
	}

	return out, nil
}

// EmbedQuery embeds a single search query.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	vectors, err := c.api.EmbedBatch(ctx, []string{text}, TaskQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d, want 1", ErrCountMismatch, len(vectors))
	}
	if len(vectors[0]) == 0 {
		return nil, ErrEmptyVector
	}

	return vectors[0], nil
}

// Close releases the provider client.
func (c *Client) Close() error {
	return c.api.Close()
}
