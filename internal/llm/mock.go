package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockGenerator provides deterministic local replies when no provider is
// configured.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

func (g *MockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	msg := strings.TrimSpace(req.UserMessage)
	if msg == "" {
		return "Tell me a bit about what kind of clean energy work interests you.", nil
	}
	return fmt.Sprintf("Thanks for sharing. Let's dig into this together: %s", msg), nil
}
