package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createTurnsTable = `
CREATE TABLE IF NOT EXISTS interview_turns (
	id         BIGSERIAL PRIMARY KEY,
	thread_id  TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	phase      INT  NOT NULL,
	created_ms TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS interview_turns_thread_idx ON interview_turns (thread_id, created_ms);
`

// PostgresStore persists transcripts in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool and makes sure the transcript table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, createTurnsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure transcript schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// PersistTurn inserts one transcript record.
func (s *PostgresStore) PersistTurn(ctx context.Context, turn Turn) error {
	if turn.ThreadID == "" {
		return ErrThreadRequired
	}
	if turn.Timestamp == "" {
		turn.Timestamp = NowMillis()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO interview_turns (thread_id, user_id, role, content, phase, created_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		turn.ThreadID, turn.UserID, turn.Role, turn.Content, turn.Phase, turn.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("persist turn: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
