package rag

import (
	"context"
	"math"

	"cloudwalk-rag/models"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is the OpenAI chat model.
const DefaultOpenAIModel = openai.GPT4oMini

// OpenAI completes prompts with the chat completions endpoint.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAI creates an OpenAI completer.
func NewOpenAI(apiKey, model string, temperature float32) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model, temperature: temperature}
}

// Complete sends system, history and user messages in one request.
func (o *OpenAI) Complete(ctx context.Context, p Prompt) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.request(p))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyAnswer
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) request(p Prompt) openai.ChatCompletionRequest {
	// Temperature is omitempty on the wire, so an exact zero would fall back
	// to the provider default of 1.
	temperature := o.temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	return openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    openAIMessages(p),
		Temperature: temperature,
	}
}

// Close is a no-op.
func (o *OpenAI) Close() error { return nil }

func openAIMessages(p Prompt) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(p.History)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	for _, m := range p.History {
		role := openai.ChatMessageRoleUser
		if m.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.User})
	return msgs
}
