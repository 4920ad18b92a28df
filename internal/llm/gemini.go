package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/act-mass/pendo/internal/state"
)

const (
	defaultGeminiModel   = "gemini-2.5-flash"
	defaultGeminiTimeout = 30 * time.Second
)

// GeminiGenerator calls the Gemini API through the official genai client.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultGeminiModel
	}
	if timeout <= 0 {
		timeout = defaultGeminiTimeout
	}

	return &GeminiGenerator{client: client, model: model, timeout: timeout}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var contents []*genai.Content
	for _, m := range req.History {
		contents = append(contents, genai.NewContentFromText(m.Text, historyRole(m)))
	}
	contents = append(contents, genai.NewContentFromText(req.UserMessage, genai.RoleUser))

	temp := float32(0.7)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemPrompt, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   int32(2048),
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	return text, nil
}

func historyRole(m state.Message) genai.Role {
	if m.Role == "assistant" {
		return genai.RoleModel
	}
	return genai.RoleUser
}
