package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Browser-like identity; several finance sites reject default Go clients.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

	maxBodyBytes = 4 << 20
)

// Policy describes the retry/backoff schedule shared by the plain HTTP client
// and the browser renderer. A nil Rand draws jitter from the locked
// package-level generator, which is what concurrently shared policies need;
// set Rand only for deterministic single-goroutine use such as tests.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxJitter    time.Duration
	Rand         *rand.Rand
}

// DefaultPolicy returns the production schedule: 3 retries, 1s initial delay
// doubling each attempt, up to 500ms of jitter per wait.
func DefaultPolicy(rng *rand.Rand) Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxJitter:    500 * time.Millisecond,
		Rand:         rng,
	}
}

func (p Policy) jitter() time.Duration {
	if p.MaxJitter <= 0 {
		return 0
	}
	if p.Rand != nil {
		return time.Duration(p.Rand.Int63n(int64(p.MaxJitter)))
	}
	return time.Duration(rand.Int63n(int64(p.MaxJitter)))
}

// Retry runs fn until it succeeds or the schedule is exhausted, sleeping
// delay+jitter between attempts. The last error is returned; callers decide
// whether exhaustion means "no content" or a hard failure.
func Retry(ctx context.Context, p Policy, fn func() error) error {
	delay := p.InitialDelay
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == p.MaxRetries {
			break
		}
		wait := delay + p.jitter()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return lastErr
}

// Client is a retrying HTTP fetcher with a browser-like identity and optional
// request pacing.
type Client struct {
	http    *http.Client
	policy  Policy
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient wires the fetcher; timeout bounds each individual attempt, not the
// whole retry schedule. A nil limiter disables pacing.
func NewClient(policy Policy, timeout time.Duration, limiter *rate.Limiter, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		policy:  policy,
		limiter: limiter,
		logger:  logger,
	}
}

// Get downloads url, retrying transport errors and non-2xx statuses per the
// policy. After exhausting retries it returns the last error.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := Retry(ctx, c.policy, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", defaultUserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.5")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("request %s: %w", url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return fmt.Errorf("unexpected status %s for %s", resp.Status, url)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		body = data
		return nil
	})
	if err != nil {
		c.debug("fetch failed", "url", url, "error", err)
		return nil, err
	}
	c.debug("fetched url", "url", url, "bytes", len(body))
	return body, nil
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
