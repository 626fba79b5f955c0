package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

// Renderer returns the HTML of a page after its scripts have run.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// ChromeRenderer renders pages in headless Chrome. Requires Chrome or
// Chromium on the host.
type ChromeRenderer struct {
	Timeout time.Duration
	// Settle is how long to wait after the body is ready for client-side
	// rendering to finish.
	Settle time.Duration
	Logger *slog.Logger
}

// NewChromeRenderer returns a renderer with the given page timeout.
func NewChromeRenderer(timeout time.Duration, logger *slog.Logger) *ChromeRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromeRenderer{Timeout: timeout, Settle: 3 * time.Second, Logger: logger}
}

// Render implements Renderer.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("starting headless browser", slog.String("url", url))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(r.Settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	logger.Debug("page rendered", slog.String("url", url), slog.Int("bytes", len(html)))
	return html, nil
}
