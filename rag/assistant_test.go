package rag

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cloudwalk-rag/models"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockRetriever struct{ mock.Mock }

func (m *MockRetriever) Search(ctx context.Context, v []float32, topK int, minSim float32) ([]models.SearchResult, error) {
	args := m.Called(ctx, v, topK, minSim)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SearchResult), args.Error(1)
}

type MockCompleter struct{ mock.Mock }

func (m *MockCompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *MockCompleter) Close() error { return m.Called().Error(0) }

func results(texts ...string) []models.SearchResult {
	out := make([]models.SearchResult, len(texts))
	for i, t := range texts {
		out[i] = models.SearchResult{Chunk: models.Chunk{ID: t, Text: t}, Similarity: 0.9}
	}
	return out
}

func TestAssistant_Ask(t *testing.T) {
	ctx := context.Background()
	emb, ret, llm := new(MockEmbedder), new(MockRetriever), new(MockCompleter)
	history := []models.Message{
		{Role: models.RoleUser, Content: "Hi"},
		{Role: models.RoleAssistant, Content: "Hello! How can I help?"},
	}
	found := results("InfinitePay is a payments app.", "Tap turns phones into card readers.")

	emb.On("EmbedQuery", ctx, "What is Tap?").Return([]float32{0.1, 0.2}, nil)
	ret.On("Search", ctx, []float32{0.1, 0.2}, DefaultTopK, float32(0)).Return(found, nil)
	llm.On("Complete", ctx, Prompt{
		System: "You are a helpful assistant. Use the following context to answer the user's question:\n\n" +
			"InfinitePay is a payments app.\n\nTap turns phones into card readers.",
		History: history,
		User:    "What is Tap?",
	}).Return("Tap lets you accept cards on your phone.", nil)

	a := NewAssistant(emb, ret, llm)
	answer, err := a.Ask(ctx, history, "  What is Tap?  ")

	require.NoError(t, err)
	assert.Equal(t, "Tap lets you accept cards on your phone.", answer.Text)
	assert.Equal(t, found, answer.Sources)
	emb.AssertExpectations(t)
	ret.AssertExpectations(t)
	llm.AssertExpectations(t)
}

func TestAssistant_Ask_Options(t *testing.T) {
	ctx := context.Background()
	emb, ret, llm := new(MockEmbedder), new(MockRetriever), new(MockCompleter)

	emb.On("EmbedQuery", ctx, "q").Return([]float32{1}, nil)
	ret.On("Search", ctx, []float32{1}, 8, float32(0.5)).Return(nil, nil)
	llm.On("Complete", ctx, mock.MatchedBy(func(p Prompt) bool {
		return p.System == SystemPrompt(nil) && p.User == "q"
	})).Return("no context answer", nil)

	a := NewAssistant(emb, ret, llm, WithTopK(8), WithMinSimilarity(0.5))
	answer, err := a.Ask(ctx, nil, "q")

	require.NoError(t, err)
	assert.Equal(t, "no context answer", answer.Text)
	ret.AssertExpectations(t)
}

func TestAssistant_Ask_EmptyQuestion(t *testing.T) {
	emb := new(MockEmbedder)
	a := NewAssistant(emb, new(MockRetriever), new(MockCompleter))

	_, err := a.Ask(context.Background(), nil, "   ")

	assert.ErrorIs(t, err, ErrEmptyQuestion)
	emb.AssertNotCalled(t, "EmbedQuery", mock.Anything, mock.Anything)
}

func TestAssistant_Ask_Failures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	t.Run("embedding", func(t *testing.T) {
		emb, ret, llm := new(MockEmbedder), new(MockRetriever), new(MockCompleter)
		emb.On("EmbedQuery", ctx, "q").Return(nil, boom)

		_, err := NewAssistant(emb, ret, llm).Ask(ctx, nil, "q")

		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "embed question")
	})

	t.Run("retrieval", func(t *testing.T) {
		emb, ret, llm := new(MockEmbedder), new(MockRetriever), new(MockCompleter)
		emb.On("EmbedQuery", ctx, "q").Return([]float32{1}, nil)
		ret.On("Search", ctx, []float32{1}, DefaultTopK, float32(0)).Return(nil, boom)

		_, err := NewAssistant(emb, ret, llm).Ask(ctx, nil, "q")

		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "retrieve context")
	})

	t.Run("model", func(t *testing.T) {
		emb, ret, llm := new(MockEmbedder), new(MockRetriever), new(MockCompleter)
		emb.On("EmbedQuery", ctx, "q").Return([]float32{1}, nil)
		ret.On("Search", ctx, []float32{1}, DefaultTopK, float32(0)).Return(results("x"), nil)
		llm.On("Complete", ctx, mock.Anything).Return("", boom).Once()

		_, err := NewAssistant(emb, ret, llm).Ask(ctx, nil, "q")

		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "generate answer")
		llm.AssertNumberOfCalls(t, "Complete", 1)
	})

	t.Run("blank answer", func(t *testing.T) {
		emb, ret, llm := new(MockEmbedder), new(MockRetriever), new(MockCompleter)
		emb.On("EmbedQuery", ctx, "q").Return([]float32{1}, nil)
		ret.On("Search", ctx, []float32{1}, DefaultTopK, float32(0)).Return(nil, nil)
		llm.On("Complete", ctx, mock.Anything).Return("  ", nil)

		_, err := NewAssistant(emb, ret, llm).Ask(ctx, nil, "q")

		assert.ErrorIs(t, err, ErrEmptyAnswer)
	})
}

func TestSystemPrompt(t *testing.T) {
	assert.Equal(t,
		"You are a helpful assistant. Use the following context to answer the user's question:\n\n",
		SystemPrompt(nil))
	assert.Equal(t,
		"You are a helpful assistant. Use the following context to answer the user's question:\n\na\n\nb",
		SystemPrompt(results("a", "b")))
}

func TestGeminiHistory(t *testing.T) {
	h := geminiHistory([]models.Message{
		{Role: models.RoleUser, Content: "q1"},
		{Role: models.RoleAssistant, Content: "a1"},
	})

	require.Len(t, h, 2)
	assert.Equal(t, "user", h[0].Role)
	assert.Equal(t, "model", h[1].Role)
}

func TestOpenAIRequest_Temperature(t *testing.T) {
	req := NewOpenAI("sk-test", "", 0.2).request(Prompt{User: "hi"})
	assert.Equal(t, DefaultOpenAIModel, req.Model)
	assert.InDelta(t, 0.2, req.Temperature, 1e-6)

	// Zero must survive omitempty encoding.
	zero := NewOpenAI("sk-test", "", 0).request(Prompt{User: "hi"})
	assert.NotZero(t, zero.Temperature)
	body, err := json.Marshal(zero)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"temperature"`)
}

func TestOpenAIMessages(t *testing.T) {
	msgs := openAIMessages(Prompt{
		System:  "sys",
		History: []models.Message{{Role: models.RoleUser, Content: "q1"}, {Role: models.RoleAssistant, Content: "a1"}},
		User:    "q2",
	})

	assert.Equal(t, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "sys"},
		{Role: openai.ChatMessageRoleUser, Content: "q1"},
		{Role: openai.ChatMessageRoleAssistant, Content: "a1"},
		{Role: openai.ChatMessageRoleUser, Content: "q2"},
	}, msgs)
}

func TestAssistant_Close(t *testing.T) {
	llm := new(MockCompleter)
	llm.On("Close").Return(nil)

	assert.NoError(t, NewAssistant(new(MockEmbedder), new(MockRetriever), llm).Close())
	llm.AssertExpectations(t)
}
