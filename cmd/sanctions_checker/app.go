package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/13maks37/sanctions-checker/internal/config"
	"github.com/13maks37/sanctions-checker/internal/fetch"
	"github.com/13maks37/sanctions-checker/internal/logging"
	"github.com/13maks37/sanctions-checker/internal/pipeline"
	"github.com/13maks37/sanctions-checker/internal/sources"
)

// loadConfig returns the effective configuration: defaults, the file at path
// (if any) and the environment.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the logger of a command. Verbose forces debug level.
func newLogger(cfg *config.Config, verbose bool, w io.Writer) (*slog.Logger, io.Closer, error) {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, closer, err := logging.New(logging.Options{
		Level:    level,
		Format:   cfg.LogFormat,
		ErrorLog: cfg.ErrorLog,
		Writer:   w,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	slog.SetDefault(logger)
	return logger, closer, nil
}

// newFetcher returns the source fetcher. With offlineDir set, lists are read
// from previously downloaded copies instead of the network.
func newFetcher(cfg *config.Config, offlineDir string, logger *slog.Logger) fetch.Fetcher {
	if offlineDir != "" {
		return fetch.DirFetcher{Dir: offlineDir}
	}

	opts := fetch.DefaultOptions()
	if t := cfg.Timeout(); t > 0 {
		opts.Timeout = t
	}

	var renderer fetch.Renderer
	if !cfg.DisableBrowser {
		renderer = fetch.NewChromeRenderer(opts.Timeout, logger)
	}
	return fetch.NewCachedFetcher(fetch.NewHTTPFetcher(opts, renderer, logger), cfg.DownloadDir, cfg.CacheDuration(), logger)
}

// newPipeline builds the screening pipeline for srcs.
func newPipeline(cfg *config.Config, f fetch.Fetcher, srcs []sources.Source, logger *slog.Logger, progress pipeline.ProgressCallback) (*pipeline.Pipeline, error) {
	scorer, err := cfg.SimilarityScorer()
	if err != nil {
		return nil, err
	}
	opts := []pipeline.Option{
		pipeline.WithSources(srcs),
		pipeline.WithThreshold(cfg.Threshold),
		pipeline.WithScorer(scorer),
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithLogger(logger),
	}
	if t := cfg.Timeout(); t > 0 {
		opts = append(opts, pipeline.WithSourceTimeout(t))
	}
	if progress != nil {
		opts = append(opts, pipeline.WithProgress(progress))
	}
	return pipeline.New(f, opts...)
}

// selectSources returns the configured sources, narrowed to names when given.
func selectSources(cfg *config.Config, names []string) ([]sources.Source, error) {
	all, err := cfg.BuildSources()
	if err != nil {
		return nil, err
	}
	return sources.Select(all, names)
}
