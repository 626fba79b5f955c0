package fetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/13maks37/sanctions-checker/internal/sources"
)

// CachedFetcher keeps a downloaded copy of every source in a directory and
// serves it again while it is younger than TTL. A zero TTL always refetches
// but still writes the copy, which is what the extract command reads back.
type CachedFetcher struct {
	next   Fetcher
	dir    string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewCachedFetcher wraps next with a file cache under dir.
func NewCachedFetcher(next Fetcher, dir string, ttl time.Duration, logger *slog.Logger) *CachedFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedFetcher{next: next, dir: dir, ttl: ttl, now: time.Now, logger: logger}
}

// Fetch implements Fetcher.
func (f *CachedFetcher) Fetch(ctx context.Context, src sources.Source) ([]byte, error) {
	path := CachePath(f.dir, src)

	if f.ttl > 0 {
		if info, err := os.Stat(path); err == nil && f.now().Sub(info.ModTime()) < f.ttl {
			if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
				f.logger.Debug("using cached copy", slog.String("source", src.Name), slog.String("path", path))
				return data, nil
			}
		}
	}

	data, err := f.next.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		f.logger.Warn("cannot create download directory", slog.String("dir", f.dir), slog.Any("error", err))
		return data, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		f.logger.Warn("cannot store downloaded copy", slog.String("source", src.Name), slog.Any("error", err))
	}
	return data, nil
}

// DirFetcher reads sources from local files named like CachePath, for
// offline runs against previously downloaded lists.
type DirFetcher struct {
	Dir string
}

// Fetch implements Fetcher.
func (f DirFetcher) Fetch(_ context.Context, src sources.Source) ([]byte, error) {
	path := CachePath(f.Dir, src)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{URL: path, Message: "cannot read local copy", Cause: err}
	}
	if len(data) == 0 {
		return nil, &Error{URL: path, Message: "empty local copy"}
	}
	return data, nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// CachePath returns dir/<name><ext> for src, with the name made file-safe.
func CachePath(dir string, src sources.Source) string {
	name := unsafeFileChars.ReplaceAllString(src.Name, "_")
	return filepath.Join(dir, name+src.Format.Ext())
}

// Cleanup empties every directory in dirs, keeping the directories
// themselves. Missing directories are skipped.
func Cleanup(dirs ...string) error {
	var errs []error
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to list %s: %w", dir, err))
			continue
		}
		for _, e := range entries {
			if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
