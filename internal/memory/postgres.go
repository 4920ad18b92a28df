package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/act-mass/pendo/internal/state"
)

// PostgresBackend persists memory snapshots in PostgreSQL, one JSONB row per
// user.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

func NewPostgresBackend(ctx context.Context, databaseURL string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresBackend{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_memory (
			user_id TEXT PRIMARY KEY,
			snapshot JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_user_memory_updated ON user_memory (updated_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (b *PostgresBackend) LoadSnapshot(ctx context.Context, userID string) (state.MemoryState, bool, error) {
	var raw []byte
	err := b.pool.QueryRow(ctx,
		`SELECT snapshot FROM user_memory WHERE user_id=$1`,
		userID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return state.MemoryState{}, false, nil
	}
	if err != nil {
		return state.MemoryState{}, false, fmt.Errorf("load memory snapshot: %w", err)
	}

	var snap state.MemoryState
	if err := json.Unmarshal(raw, &snap); err != nil {
		return state.MemoryState{}, false, fmt.Errorf("decode memory snapshot for %s: %w", userID, err)
	}
	return snap, true, nil
}

func (b *PostgresBackend) SaveSnapshot(ctx context.Context, snap state.MemoryState) error {
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode memory snapshot: %w", err)
	}

	_, err = b.pool.Exec(ctx,
		`INSERT INTO user_memory (user_id, snapshot, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = EXCLUDED.updated_at`,
		snap.UserID,
		raw,
		snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save memory snapshot: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}
