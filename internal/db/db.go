// Package db stores screening runs. PostgreSQL (pgx) and SQLite (modernc)
// back the same Store interface; Open picks one from the database URL.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/13maks37/sanctions-checker/internal/types"
)

// ErrNotFound is returned by GetRun for an unknown id.
var ErrNotFound = errors.New("run not found")

// DefaultListLimit caps ListRuns when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Run is a stored screening run.
type Run struct {
	ID        uuid.UUID              `json:"id"`
	CreatedAt time.Time              `json:"created_at"`
	Report    *types.ScreeningReport `json:"report"`
}

// RunSummary is a run without its report.
type RunSummary struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Companies int       `json:"companies"`
	Flagged   int       `json:"flagged"`
	Sources   []string  `json:"sources"`
}

// Store persists screening runs.
type Store interface {
	SaveRun(ctx context.Context, rep *types.ScreeningReport) (uuid.UUID, error)
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	Close() error
}

// Open connects to the store named by databaseURL:
//
//	postgres://... or postgresql://...  PostgreSQL
//	sqlite://path or file:path          SQLite
//
// An empty URL returns a nil Store and no error.
func Open(ctx context.Context, databaseURL string) (Store, error) {
	switch {
	case databaseURL == "":
		return nil, nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return Connect(ctx, databaseURL)
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(databaseURL, "sqlite://"))
	case strings.HasPrefix(databaseURL, "file:"):
		return OpenSQLite(ctx, databaseURL)
	}
	return nil, fmt.Errorf("unsupported database URL scheme in %q", redact(databaseURL))
}

// redact drops credentials from a URL for error messages.
func redact(u string) string {
	scheme, rest, ok := strings.Cut(u, "://")
	if !ok {
		return u
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***@" + rest[at+1:]
	}
	return scheme + "://" + rest
}

func summarize(rep *types.ScreeningReport) (companies, flagged int) {
	return len(rep.Companies), rep.FlaggedCount()
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
