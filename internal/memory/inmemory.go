package memory

import (
	"context"
	"sync"

	"github.com/act-mass/pendo/internal/state"
)

// InMemoryBackend is a simple in-process backend for local/dev use.
type InMemoryBackend struct {
	mu    sync.RWMutex
	snaps map[string]state.MemoryState
}

func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{snaps: make(map[string]state.MemoryState)}
}

func (b *InMemoryBackend) LoadSnapshot(_ context.Context, userID string) (state.MemoryState, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snap, ok := b.snaps[userID]
	if !ok {
		return state.MemoryState{}, false, nil
	}
	return snap.Clone(), true, nil
}

func (b *InMemoryBackend) SaveSnapshot(_ context.Context, snap state.MemoryState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snaps[snap.UserID] = snap.Clone()
	return nil
}

func (b *InMemoryBackend) Close() error { return nil }
