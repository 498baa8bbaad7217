package embedding

import (
	"context"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is the OpenAI embedding model.
const DefaultOpenAIModel = openai.SmallEmbedding3

// OpenAI calls the OpenAI embeddings endpoint.
type OpenAI struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAI creates an OpenAI embedding adapter.
func NewOpenAI(apiKey, model string) *OpenAI {
	m := openai.EmbeddingModel(model)
	if m == "" {
		m = DefaultOpenAIModel
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: m}
}

// EmbedBatch embeds texts with one request. OpenAI has no task types.
func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string, _ Task) ([][]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: o.model,
	})
	if err != nil {
		return nil, err
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}

// Close is a no-op; the HTTP client needs no cleanup.
func (o *OpenAI) Close() error { return nil }
