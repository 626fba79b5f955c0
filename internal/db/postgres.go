package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/13maks37/sanctions-checker/internal/types"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS screening_runs (
	id         UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	companies  INTEGER NOT NULL,
	flagged    INTEGER NOT NULL,
	sources    TEXT[] NOT NULL,
	report     JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS screening_runs_created_at_idx ON screening_runs (created_at DESC);`

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

var _ Store = (*DB)(nil)

// Connect establishes a connection pool to the database and creates the
// runs table when missing.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// SaveRun stores rep and returns the new run id.
func (db *DB) SaveRun(ctx context.Context, rep *types.ScreeningReport) (uuid.UUID, error) {
	content, err := json.Marshal(rep)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	companies, flagged := summarize(rep)
	createdAt := rep.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	id := uuid.New()
	_, err = db.pool.Exec(ctx,
		`INSERT INTO screening_runs (id, created_at, companies, flagged, sources, report)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, createdAt, companies, flagged, rep.Sources, content,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save run: %w", err)
	}
	return id, nil
}

// GetRun returns the run with id, or ErrNotFound.
func (db *DB) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	run := &Run{ID: id}
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT created_at, report FROM screening_runs WHERE id = $1`, id,
	).Scan(&run.CreatedAt, &content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	run.Report = &types.ScreeningReport{}
	if err := json.Unmarshal(content, run.Report); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, created_at, companies, flagged, sources
		 FROM screening_runs ORDER BY created_at DESC LIMIT $1`,
		limitOrDefault(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.Companies, &s.Flagged, &s.Sources); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return out, nil
}
