package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"NewsSentiment/internal/fetch"
	"NewsSentiment/internal/ports"
)

const (
	defaultSettleTime  = 3 * time.Second
	defaultPageTimeout = 30 * time.Second
)

// Options tune the headless Chrome session.
type Options struct {
	UserAgent   string
	SettleTime  time.Duration
	PageTimeout time.Duration
}

// Renderer drives headless Chrome to load client-side rendered pages. One
// browser process is shared; each Render runs in a fresh tab.
type Renderer struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	settle      time.Duration
	pageTimeout time.Duration
	policy      fetch.Policy
	logger      *slog.Logger
}

var _ ports.Renderer = (*Renderer)(nil)

// New prepares the Chrome allocator. The browser process itself starts lazily
// on the first Render.
func New(ctx context.Context, opts Options, policy fetch.Policy, logger *slog.Logger) *Renderer {
	if opts.SettleTime <= 0 {
		opts.SettleTime = defaultSettleTime
	}
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = defaultPageTimeout
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	return &Renderer{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		settle:      opts.SettleTime,
		pageTimeout: opts.PageTimeout,
		policy:      policy,
		logger:      logger,
	}
}

// Render loads url in a fresh tab, waits a fixed settle time for client-side
// rendering, and returns the document HTML. Retries follow the same schedule
// as the plain HTTP fetcher. The tab is torn down on every exit path.
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	var html string
	err := fetch.Retry(ctx, r.policy, func() error {
		tabCtx, cancelTab := chromedp.NewContext(r.allocCtx)
		defer cancelTab()

		runCtx, cancelRun := context.WithTimeout(tabCtx, r.pageTimeout)
		defer cancelRun()

		// chromedp contexts descend from the allocator, so propagate the
		// caller's cancellation by hand.
		stop := context.AfterFunc(ctx, cancelRun)
		defer stop()

		if err := chromedp.Run(runCtx,
			chromedp.Navigate(url),
			chromedp.Sleep(r.settle),
			chromedp.OuterHTML("html", &html),
		); err != nil {
			return fmt.Errorf("render %s: %w", url, err)
		}
		return nil
	})
	if err != nil {
		r.debug("render failed", "url", url, "error", err)
		return "", err
	}
	r.debug("rendered url", "url", url, "bytes", len(html))
	return html, nil
}

// Close terminates the shared browser process.
func (r *Renderer) Close() {
	if r.allocCancel != nil {
		r.allocCancel()
	}
}

func (r *Renderer) debug(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
