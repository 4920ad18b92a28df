package memory

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/act-mass/pendo/internal/reliability"
	"github.com/act-mass/pendo/internal/state"
)

var ErrUserIDRequired = errors.New("user id is required")

const (
	persistTimeout   = 2 * time.Second
	retryBackoffBase = 250 * time.Millisecond
	retryBackoffCap  = 2 * time.Second
)

// Store is the process-wide memory store. It keeps the authoritative
// snapshot in memory and persists to the backend best-effort: a failed write
// is retried once in the background, then the loss is reported and the turn
// still succeeds. Writes for a given user are serialized by a per-user lock.
type Store struct {
	backend    Backend
	retryDelay time.Duration
	onLoss     func(userID string, err error)

	mu           sync.Mutex
	locks        map[string]*sync.Mutex
	persistLocks map[string]*sync.Mutex
	cache        map[string]state.MemoryState

	// Snapshots are cumulative, so a newer persisted snapshot subsumes any
	// older in-flight one. Sequence numbers let late writers notice and bail.
	seq       map[string]uint64
	persisted map[string]uint64

	inflight sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithLossHandler registers a callback invoked when a snapshot could not be
// persisted after the retry.
func WithLossHandler(fn func(userID string, err error)) Option {
	return func(s *Store) { s.onLoss = fn }
}

// WithRetryDelay overrides the backoff before the single persistence retry.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Store) { s.retryDelay = d }
}

func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:      backend,
		retryDelay:   reliability.ExponentialBackoff(1, retryBackoffBase, retryBackoffCap),
		locks:        make(map[string]*sync.Mutex),
		persistLocks: make(map[string]*sync.Mutex),
		cache:        make(map[string]state.MemoryState),
		seq:          make(map[string]uint64),
		persisted:    make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func (s *Store) persistLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.persistLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.persistLocks[userID] = l
	}
	return l
}

// Load returns the user's memory snapshot. A user with no prior record gets
// a zero-value MemoryState, not an error. A backend failure also degrades to
// the zero value; the returned error lets the caller count the loss.
func (s *Store) Load(ctx context.Context, userID string) (state.MemoryState, error) {
	if userID == "" {
		return state.MemoryState{}, ErrUserIDRequired
	}
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.loadLocked(ctx, userID)
}

func (s *Store) loadLocked(ctx context.Context, userID string) (state.MemoryState, error) {
	if snap, ok := s.cache[userID]; ok {
		return snap.Clone(), nil
	}
	snap, found, err := s.backend.LoadSnapshot(ctx, userID)
	if err != nil {
		return state.MemoryState{UserID: userID}, err
	}
	if !found {
		return state.MemoryState{UserID: userID}, nil
	}
	snap.UserID = userID
	s.cache[userID] = snap.Clone()
	return snap, nil
}

// Record folds the delta into the user's snapshot and schedules persistence.
// It never fails on a missing prior record, and it returns the merged
// snapshot even when the backend is unreachable.
func (s *Store) Record(ctx context.Context, userID string, delta state.MemoryDelta) (state.MemoryState, error) {
	if userID == "" {
		return state.MemoryState{}, ErrUserIDRequired
	}
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	base, loadErr := s.loadLocked(ctx, userID)
	merged := base.Apply(delta)
	merged.UserID = userID
	merged.UpdatedAt = time.Now().UTC()
	s.cache[userID] = merged.Clone()

	if !delta.Empty() || loadErr != nil {
		s.persistAsync(merged.Clone())
	}
	return merged, loadErr
}

func (s *Store) persistAsync(snap state.MemoryState) {
	s.mu.Lock()
	s.seq[snap.UserID]++
	seq := s.seq[snap.UserID]
	s.mu.Unlock()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		// Backend writes for one user run one at a time so an older snapshot
		// can never overwrite a newer one.
		lock := s.persistLock(snap.UserID)
		lock.Lock()
		defer lock.Unlock()

		stale := func() bool {
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.persisted[snap.UserID] >= seq
		}
		markDone := func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.persisted[snap.UserID] < seq {
				s.persisted[snap.UserID] = seq
			}
		}
		save := func() error {
			// Detached from the turn context: the turn may already be over.
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			return s.backend.SaveSnapshot(ctx, snap)
		}

		if stale() {
			return
		}
		if err := save(); err == nil {
			markDone()
			return
		}
		time.Sleep(s.retryDelay)
		if stale() {
			return
		}
		if err := save(); err != nil {
			log.Printf("memory persist failed for user %s after retry: %v", snap.UserID, err)
			if s.onLoss != nil {
				s.onLoss(snap.UserID, err)
			}
			return
		}
		markDone()
	}()
}

// Flush blocks until all scheduled persistence attempts have finished.
func (s *Store) Flush() {
	s.inflight.Wait()
}

func (s *Store) Close() error {
	s.Flush()
	return s.backend.Close()
}
