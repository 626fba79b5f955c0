// Package pipeline runs a screening: it normalizes the company names once,
// then fetches, extracts and matches every configured source concurrently,
// and merges the per-source match sets into a ScreeningReport.
//
// A source that fails in any step is recorded as unavailable with an empty
// match set; the run itself always completes.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/13maks37/sanctions-checker/internal/extraction"
	"github.com/13maks37/sanctions-checker/internal/fetch"
	"github.com/13maks37/sanctions-checker/internal/matching"
	"github.com/13maks37/sanctions-checker/internal/normalize"
	"github.com/13maks37/sanctions-checker/internal/similarity"
	"github.com/13maks37/sanctions-checker/internal/sources"
	"github.com/13maks37/sanctions-checker/internal/types"
)

// Defaults for New.
const (
	DefaultWorkers       = 4
	DefaultSourceTimeout = 2 * time.Minute
)

// State is a step of a run.
type State string

// Run states, in order.
const (
	StateIdle          State = "idle"
	StateNormalizing   State = "normalizing"
	StatePerSource     State = "per_source_processing"
	StateAggregating   State = "aggregating"
	StateComplete      State = "complete"
	stateSourceDone    State = "source_done"
	stateSourceFailure State = "source_failed"
)

// ProgressEvent represents a progress update during a run. Source is set for
// per-source events.
type ProgressEvent struct {
	State   State  `json:"state"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message"`
}

// ProgressCallback is called when pipeline progress occurs. It may be called
// from several goroutines at once.
type ProgressCallback func(event ProgressEvent)

// Pipeline screens company names against a fixed set of sources.
type Pipeline struct {
	fetcher    fetch.Fetcher
	sources    []sources.Source
	scorer     similarity.Scorer
	threshold  float64
	workers    int
	timeout    time.Duration
	logger     *slog.Logger
	onProgress ProgressCallback
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithThreshold sets the match threshold (0..100).
func WithThreshold(t float64) Option {
	return func(p *Pipeline) { p.threshold = t }
}

// WithScorer sets the similarity scorer.
func WithScorer(s similarity.Scorer) Option {
	return func(p *Pipeline) { p.scorer = s }
}

// WithWorkers bounds how many sources are processed at once.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithSourceTimeout bounds the fetch of each source.
func WithSourceTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}

// WithSources replaces the built-in source table.
func WithSources(srcs []sources.Source) Option {
	return func(p *Pipeline) { p.sources = srcs }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithProgress registers a progress callback.
func WithProgress(cb ProgressCallback) Option {
	return func(p *Pipeline) { p.onProgress = cb }
}

// New returns a pipeline reading sources through fetcher. Configuration
// problems are reported as *sources.ConfigError.
func New(fetcher fetch.Fetcher, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		fetcher:   fetcher,
		sources:   sources.Defaults(),
		scorer:    similarity.TokenSet{},
		threshold: similarity.DefaultThreshold,
		workers:   DefaultWorkers,
		timeout:   DefaultSourceTimeout,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	switch {
	case p.fetcher == nil:
		return nil, &sources.ConfigError{Message: "no fetcher configured"}
	case p.scorer == nil:
		return nil, &sources.ConfigError{Message: "no similarity scorer configured"}
	case p.threshold < 0 || p.threshold > 100:
		return nil, &sources.ConfigError{Message: fmt.Sprintf("threshold %v outside 0..100", p.threshold)}
	case p.workers < 1:
		return nil, &sources.ConfigError{Message: fmt.Sprintf("workers must be at least 1, got %d", p.workers)}
	case p.timeout <= 0:
		return nil, &sources.ConfigError{Message: fmt.Sprintf("source timeout must be positive, got %s", p.timeout)}
	}
	if err := sources.ValidateAll(p.sources); err != nil {
		return nil, err
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// Sources returns the sources of the pipeline in report order.
func (p *Pipeline) Sources() []sources.Source {
	out := make([]sources.Source, len(p.sources))
	copy(out, p.sources)
	return out
}

// Threshold returns the match threshold.
func (p *Pipeline) Threshold() float64 {
	return p.threshold
}

// sourceResult is the outcome of one source. Each task owns one slot.
type sourceResult struct {
	name       string
	matches    matching.Set
	candidates int
	err        error
	duration   time.Duration
}

func (p *Pipeline) emit(state State, source, message string) {
	if p.onProgress != nil {
		p.onProgress(ProgressEvent{State: state, Source: source, Message: message})
	}
}

// Run screens names against every source. It returns an error only when ctx
// is already done before the run starts.
func (p *Pipeline) Run(ctx context.Context, names []string) (*types.ScreeningReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started := p.now()

	p.emit(StateNormalizing, "", fmt.Sprintf("Normalizing %d company names", len(names)))
	companies := types.NewCompanies(names)
	queries := uniqueQueries(companies)

	p.emit(StatePerSource, "", fmt.Sprintf("Screening against %d sources", len(p.sources)))
	engine := matching.New(p.scorer, p.threshold)
	results := make([]sourceResult, len(p.sources))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, src := range p.sources {
		g.Go(func() error {
			results[i] = p.processSource(ctx, src, engine, queries)
			return nil
		})
	}
	_ = g.Wait()

	p.emit(StateAggregating, "", "Aggregating results")
	report := p.aggregate(companies, results)
	report.CreatedAt = started

	p.logger.Info("screening complete",
		slog.Int("companies", len(companies)),
		slog.Int("sources", len(p.sources)),
		slog.Int("flagged", report.FlaggedCount()),
		slog.Any("unavailable", report.UnavailableSources()),
		slog.Duration("elapsed", p.now().Sub(started)))
	p.emit(StateComplete, "", fmt.Sprintf("%d of %d companies flagged", report.FlaggedCount(), len(companies)))
	return report, nil
}

// uniqueQueries returns the distinct non-empty normalized names.
func uniqueQueries(companies []types.Company) []string {
	seen := make(map[string]struct{}, len(companies))
	out := make([]string, 0, len(companies))
	for _, c := range companies {
		if c.Normalized == "" {
			continue
		}
		if _, ok := seen[c.Normalized]; ok {
			continue
		}
		seen[c.Normalized] = struct{}{}
		out = append(out, c.Normalized)
	}
	return out
}

// processSource fetches, extracts and matches one source. Errors and panics
// leave the result with an empty match set.
func (p *Pipeline) processSource(ctx context.Context, src sources.Source, engine *matching.Engine, queries []string) (res sourceResult) {
	start := time.Now()
	res = sourceResult{name: src.Name, matches: matching.Set{}}
	logger := p.logger.With(slog.String("source", src.Name))

	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("panic while processing source: %v", r)
			res.matches = matching.Set{}
		}
		res.duration = time.Since(start)
		if res.err != nil {
			logger.Error("source failed", slog.String("url", src.URL), slog.Any("error", res.err), slog.Duration("elapsed", res.duration))
			p.emit(stateSourceFailure, src.Name, res.err.Error())
			return
		}
		logger.Info("source processed",
			slog.Int("candidates", res.candidates),
			slog.Int("matches", res.matches.Len()),
			slog.Duration("elapsed", res.duration))
		p.emit(stateSourceDone, src.Name, fmt.Sprintf("%d candidates, %d matches", res.candidates, res.matches.Len()))
	}()

	candidates, err := p.candidates(ctx, src)
	if err != nil {
		res.err = err
		return res
	}
	if src.NormalizeCandidates {
		candidates = normalize.Names(candidates)
	}
	res.candidates = len(candidates)
	res.matches = engine.Match(queries, candidates)
	return res
}

func (p *Pipeline) candidates(ctx context.Context, src sources.Source) ([]string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	raw, err := p.fetcher.Fetch(fetchCtx, src)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, &fetch.Error{URL: src.URL, Message: "empty response body"}
	}
	return extraction.Extract(raw, src)
}

// aggregate merges the per-source results. It runs after every task has
// finished and is the only writer of the report.
func (p *Pipeline) aggregate(companies []types.Company, results []sourceResult) *types.ScreeningReport {
	report := types.NewScreeningReport(companies, sources.Names(p.sources))
	report.Threshold = p.threshold
	report.Statuses = make([]types.SourceStatus, len(results))

	for i, res := range results {
		for _, c := range companies {
			if res.matches.Has(c.Normalized) {
				report.Matches[c.Normalized][res.name] = true
			}
		}
		status := types.SourceStatus{
			Name:       res.name,
			Available:  res.err == nil,
			Candidates: res.candidates,
			Matches:    res.matches.Len(),
			Duration:   res.duration,
		}
		if res.err != nil {
			status.Error = res.err.Error()
		}
		report.Statuses[i] = status
	}

	report.Summarize()
	return report
}
