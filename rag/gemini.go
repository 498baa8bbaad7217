package rag

import (
	"context"
	"fmt"
	"strings"

	"cloudwalk-rag/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is the Gemini chat model.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini completes prompts with a Gemini chat session.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGemini creates a Gemini completer.
func NewGemini(ctx context.Context, apiKey, model string, temperature float32) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model, temperature: temperature}, nil
}

// Complete sends the user message on a chat session seeded with history.
func (g *Gemini) Complete(ctx context.Context, p Prompt) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(g.temperature)
	model.SystemInstruction = genai.NewUserContent(genai.Text(p.System))

	cs := model.StartChat()
	cs.History = geminiHistory(p.History)

	resp, err := cs.SendMessage(ctx, genai.Text(p.User))
	if err != nil {
		return "", err
	}

	var parts []string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				parts = append(parts, string(text))
			}
		}
	}
	return strings.Join(parts, "\n"), nil
}

// Close closes the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

func geminiHistory(history []models.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return out
}
