// Package memory owns per-user durable MemoryState: loading it before a
// turn, folding in new facts after a turn, and persisting the result
// best-effort. Persistence failure never aborts a turn.
package memory

import (
	"context"

	"github.com/act-mass/pendo/internal/state"
)

// Backend persists memory snapshots. Implementations must be safe for
// concurrent use; the Store serializes writes per user on top of this.
type Backend interface {
	LoadSnapshot(ctx context.Context, userID string) (snap state.MemoryState, found bool, err error)
	SaveSnapshot(ctx context.Context, snap state.MemoryState) error
	Close() error
}
