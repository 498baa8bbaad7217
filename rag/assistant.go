// Package rag answers questions from retrieved website chunks and chat history.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloudwalk-rag/models"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 4

// systemTemplate frames the retrieved context for the model.
const systemTemplate = "You are a helpful assistant. Use the following context to answer the user's question:\n\n%s"

var (
	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question cannot be empty")
	// ErrEmptyAnswer is returned when the model produced no text.
	ErrEmptyAnswer = errors.New("model returned no answer")
)

// QueryEmbedder embeds a search query.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Retriever finds the chunks nearest to a query vector.
type Retriever interface {
	Search(ctx context.Context, queryVector []float32, topK int, minSimilarity float32) ([]models.SearchResult, error)
}

// Prompt is one chat-completion request.
type Prompt struct {
	System  string
	History []models.Message
	User    string
}

// Completer is a hosted chat model.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
	Close() error
}

// Answer is a generated reply plus the chunks it was grounded on.
type Answer struct {
	Text    string
	Sources []models.SearchResult
}

// Assistant combines retrieval with a chat model.
type Assistant struct {
	embedder      QueryEmbedder
	retriever     Retriever
	llm           Completer
	topK          int
	minSimilarity float32
	log           *slog.Logger
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithTopK sets how many chunks are retrieved.
func WithTopK(k int) Option {
	return func(a *Assistant) {
		if k > 0 {
			a.topK = k
		}
	}
}

// WithMinSimilarity drops retrieved chunks scoring below s.
func WithMinSimilarity(s float32) Option {
	return func(a *Assistant) { a.minSimilarity = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assistant) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAssistant creates an Assistant.
func NewAssistant(embedder QueryEmbedder, retriever Retriever, llm Completer, opts ...Option) *Assistant {
	a := &Assistant{
		embedder:  embedder,
		retriever: retriever,
		llm:       llm,
		topK:      DefaultTopK,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ask answers question given the prior conversation. history must not contain
// question itself. Embedding, retrieval and model failures are returned as-is
// wrapped with the failing step; nothing is retried.
func (a *Assistant) Ask(ctx context.Context, history []models.Message, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}

	vector, err := a.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return Answer{}, fmt.Errorf("embed question: %w", err)
	}

	results, err := a.retriever.Search(ctx, vector, a.topK, a.minSimilarity)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve context: %w", err)
	}
	a.log.Debug("retrieved context", "question", question, "chunks", len(results))

	text, err := a.llm.Complete(ctx, Prompt{
		System:  SystemPrompt(results),
		History: history,
		User:    question,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return Answer{}, ErrEmptyAnswer
	}

	return Answer{Text: text, Sources: results}, nil
}

// Close releases the chat model.
func (a *Assistant) Close() error {
	return a.llm.Close()
}

// SystemPrompt builds the system message from retrieved chunks, separated by blank lines.
func SystemPrompt(results []models.SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Chunk.Text)
	}
	return fmt.Sprintf(systemTemplate, strings.Join(parts, "\n\n"))
}
