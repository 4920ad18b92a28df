package memory

import (
	"context"
	"strings"
)

// NewBackend creates a postgres backend when configured, otherwise
// in-memory.
func NewBackend(ctx context.Context, databaseURL string) (Backend, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryBackend(), nil
	}
	return NewPostgresBackend(ctx, databaseURL)
}
