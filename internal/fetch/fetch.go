// Package fetch downloads the raw content of sanctions-list sources.
//
// Plain sources are fetched over HTTP; sources flagged RenderJS are rendered
// in a headless browser first. Every failure is reported as *Error so callers
// can tell transport problems from parse problems.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/13maks37/sanctions-checker/internal/sources"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 60 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; SanctionsChecker/1.0)"

// DefaultMaxBytes caps a single download. The consolidated XML lists are tens
// of megabytes.
const DefaultMaxBytes = 256 << 20

// Fetcher returns the raw content of a source.
type Fetcher interface {
	Fetch(ctx context.Context, src sources.Source) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, src sources.Source) ([]byte, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, src sources.Source) ([]byte, error) {
	return f(ctx, src)
}

// Result holds the content of a URL fetch.
type Result struct {
	URL         string
	Body        []byte
	ContentType string
	StatusCode  int
}

// Error represents an error during fetching. Empty content is an error too.
type Error struct {
	URL        string
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	MaxBytes  int64
	Client    *http.Client
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
		MaxBytes:  DefaultMaxBytes,
	}
}

func (o *Options) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return &http.Client{Timeout: o.Timeout}
}

// URL downloads urlStr. A non-200 status is returned as *Error together with
// the partial result.
func URL(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := opts.client().Do(req)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var body io.Reader = resp.Body
	if opts.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, opts.MaxBytes+1)
	}
	bodyBytes, err := io.ReadAll(body)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to read response body", StatusCode: resp.StatusCode, Cause: err}
	}
	if opts.MaxBytes > 0 && int64(len(bodyBytes)) > opts.MaxBytes {
		return nil, &Error{URL: urlStr, Message: fmt.Sprintf("response larger than %d bytes", opts.MaxBytes), StatusCode: resp.StatusCode}
	}

	result := &Result{
		URL:         urlStr,
		Body:        bodyBytes,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode != http.StatusOK {
		return result, &Error{URL: urlStr, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode), StatusCode: resp.StatusCode}
	}

	return result, nil
}

// HTTPFetcher fetches sources over HTTP, using a Renderer for RenderJS
// sources.
type HTTPFetcher struct {
	options  *Options
	renderer Renderer
	logger   *slog.Logger
}

// NewHTTPFetcher returns a fetcher. A nil renderer makes RenderJS sources
// fall back to a plain HTTP GET.
func NewHTTPFetcher(opts *Options, renderer Renderer, logger *slog.Logger) *HTTPFetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{options: opts, renderer: renderer, logger: logger}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, src sources.Source) ([]byte, error) {
	start := time.Now()

	var body []byte
	if src.RenderJS && f.renderer != nil {
		html, err := f.renderer.Render(ctx, src.URL)
		if err != nil {
			return nil, &Error{URL: src.URL, Message: "browser rendering failed", Cause: err}
		}
		body = []byte(html)
	} else {
		result, err := URL(ctx, src.URL, f.options)
		if err != nil {
			return nil, err
		}
		body = result.Body
	}

	if len(body) == 0 {
		return nil, &Error{URL: src.URL, Message: "empty response body"}
	}

	f.logger.Debug("source downloaded",
		slog.String("source", src.Name),
		slog.Int("bytes", len(body)),
		slog.Bool("rendered", src.RenderJS && f.renderer != nil),
		slog.Duration("elapsed", time.Since(start)))
	return body, nil
}
