package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/act-mass/pendo/internal/state"
)

// Request is the normalized input for one generation call. A specialist
// makes exactly one of these per turn.
type Request struct {
	SystemPrompt string
	History      []state.Message
	UserMessage  string
}

// Generator produces a single assistant reply for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Config controls generator construction.
type Config struct {
	Mode    string
	APIKey  string
	Model   string
	HTTPURL string
	Timeout time.Duration
}

// NewGenerator builds a Generator for the configured mode. "auto" prefers
// the Gemini API when a key is present, then a plain HTTP endpoint, then
// the deterministic mock.
func NewGenerator(ctx context.Context, cfg Config) (Generator, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, cfg.Timeout)
		}
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPGenerator(cfg.HTTPURL, cfg.Timeout), nil
		}
		return NewMockGenerator(), nil
	case "gemini":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("gemini API key is required for gemini mode")
		}
		return NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, cfg.Timeout)
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("generation HTTP url is required for http mode")
		}
		return NewHTTPGenerator(cfg.HTTPURL, cfg.Timeout), nil
	case "mock":
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported generator mode %q", cfg.Mode)
	}
}
