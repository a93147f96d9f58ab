package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mikermcconnell/BusScheduler-sub001/core/model"
	corestore "github.com/mikermcconnell/BusScheduler-sub001/core/store"
)

// PostgresStore keeps the full revision history in a Postgres table. Load
// returns the most recent revision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS schedule_revisions (
    id         TEXT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL,
    op         TEXT NOT NULL DEFAULT '',
    schedule   JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS schedule_revisions_created_at_idx
    ON schedule_revisions (created_at DESC);
`

// NewPostgresStore connects to dsn and ensures the revisions table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: connect: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("postgres store: ensure schema: %w", err)
	}
	return nil
}

// Save appends the revision to the history table.
func (s *PostgresStore) Save(ctx context.Context, rev corestore.Revision) error {
	data, err := json.Marshal(rev.Schedule)
	if err != nil {
		return fmt.Errorf("postgres store: marshal: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO schedule_revisions (id, created_at, op, schedule) VALUES ($1, $2, $3, $4)`,
		rev.ID, rev.Time, rev.Op, data)
	if err != nil {
		return fmt.Errorf("postgres store: insert: %w", err)
	}
	return nil
}

// Load returns the latest saved revision.
func (s *PostgresStore) Load(ctx context.Context) (corestore.Revision, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, created_at, op, schedule FROM schedule_revisions ORDER BY created_at DESC LIMIT 1`)
	var (
		rev  corestore.Revision
		data []byte
	)
	if err := row.Scan(&rev.ID, &rev.Time, &rev.Op, &data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return corestore.Revision{}, corestore.ErrNoSnapshot
		}
		return corestore.Revision{}, fmt.Errorf("postgres store: query: %w", err)
	}
	var sched model.Schedule
	if err := json.Unmarshal(data, &sched); err != nil {
		return corestore.Revision{}, fmt.Errorf("postgres store: decode: %w", err)
	}
	rev.Schedule = sched
	return rev, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
