package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/13maks37/sanctions-checker/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS screening_runs (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	companies  INTEGER NOT NULL,
	flagged    INTEGER NOT NULL,
	sources    TEXT NOT NULL,
	report     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS screening_runs_created_at_idx ON screening_runs (created_at DESC);`

// SQLite is a Store in a single SQLite file.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at dsn, a file path or a
// "file:" URI.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; SQLite serializes writes anyway.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLite{db: conn}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// SaveRun stores rep and returns the new run id.
func (s *SQLite) SaveRun(ctx context.Context, rep *types.ScreeningReport) (uuid.UUID, error) {
	content, err := json.Marshal(rep)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	srcs, err := json.Marshal(rep.Sources)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal sources: %w", err)
	}
	companies, flagged := summarize(rep)
	createdAt := rep.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	id := uuid.New()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO screening_runs (id, created_at, companies, flagged, sources, report)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), createdAt.UnixNano(), companies, flagged, string(srcs), string(content),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save run: %w", err)
	}
	return id, nil
}

// GetRun returns the run with id, or ErrNotFound.
func (s *SQLite) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	var createdAt int64
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, report FROM screening_runs WHERE id = ?`, id.String(),
	).Scan(&createdAt, &content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	run := &Run{ID: id, CreatedAt: time.Unix(0, createdAt).UTC(), Report: &types.ScreeningReport{}}
	if err := json.Unmarshal([]byte(content), run.Report); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (s *SQLite) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, companies, flagged, sources
		 FROM screening_runs ORDER BY created_at DESC LIMIT ?`,
		limitOrDefault(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []RunSummary{}
	for rows.Next() {
		var (
			id, srcs  string
			createdAt int64
			sum       RunSummary
		)
		if err := rows.Scan(&id, &createdAt, &sum.Companies, &sum.Flagged, &srcs); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if sum.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("bad run id %q: %w", id, err)
		}
		if err := json.Unmarshal([]byte(srcs), &sum.Sources); err != nil {
			return nil, fmt.Errorf("bad sources of run %s: %w", id, err)
		}
		sum.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return out, nil
}
