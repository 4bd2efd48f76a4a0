package yahoo

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/fetch"
	"NewsSentiment/internal/ports"
	"NewsSentiment/internal/source"
)

const (
	baseURL = "https://finance.yahoo.com"

	// Listings occasionally collapse onto a single day; when that happens the
	// dates of up to the first redistributeLimit articles are spread across the
	// window so downstream charts keep day-level diversity. Deliberate
	// anti-clustering heuristic; disable via config when exact dates matter.
	minDistinctDates  = 2
	redistributeLimit = 5
)

var digitExpr = regexp.MustCompile(`\d+`)

// Scanner scrapes the rendered Yahoo Finance news listing for a ticker.
type Scanner struct {
	renderer          ports.Renderer
	fetcher           *fetch.Client
	redistributeDates bool
	now               func() time.Time
	logger            *slog.Logger
}

var _ source.Source = (*Scanner)(nil)

// NewScanner wires the rendered-page fetcher and the plain article fetcher.
func NewScanner(renderer ports.Renderer, fetcher *fetch.Client, redistributeDates bool, logger *slog.Logger) *Scanner {
	return &Scanner{
		renderer:          renderer,
		fetcher:           fetcher,
		redistributeDates: redistributeDates,
		now:               time.Now,
		logger:            logger,
	}
}

// Name identifies the strategy inside the registry.
func (s *Scanner) Name() string {
	return "yahoo"
}

// Fetch renders the news listing, extracts article blocks, resolves their
// timestamps, and pulls each article body. A listing that cannot be fetched
// or parsed yields an empty result, never an error.
func (s *Scanner) Fetch(ctx context.Context, req source.Request) ([]domain.CandidateArticle, error) {
	listURL := fmt.Sprintf("%s/quote/%s/news/", baseURL, url.PathEscape(req.Ticker))

	html, err := s.renderer.Render(ctx, listURL)
	if err != nil {
		s.logger.Warn("listing render failed", "url", listURL, "error", err)
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		s.logger.Warn("listing parse failed", "url", listURL, "error", err)
		return nil, nil
	}

	items := doc.Find("li.stream-item")
	if items.Length() == 0 {
		s.logger.Debug("no stream items, trying alternative structure")
		items = doc.Find(`li[class*="js-stream-content"]`)
	}
	if items.Length() == 0 {
		s.logger.Debug("no stream items found", "ticker", req.Ticker)
		return nil, nil
	}

	articles := make([]domain.CandidateArticle, 0, items.Length())
	seen := map[string]struct{}{}

	items.Each(func(_ int, item *goquery.Selection) {
		headline := strings.TrimSpace(item.Find("h3").First().Text())
		if headline == "" {
			headline = strings.TrimSpace(item.Find("h4").First().Text())
		}
		if headline == "" {
			return
		}
		if _, ok := seen[headline]; ok {
			return
		}
		seen[headline] = struct{}{}

		href, ok := item.Find("a").First().Attr("href")
		if !ok || href == "" {
			return
		}
		articleURL := absolutize(href)

		publishedAt, publishedTime := s.resolvePublished(item, req)
		content := s.fetchBody(ctx, articleURL)

		if !req.InWindow(publishedAt) {
			s.logger.Debug("excluded article outside date range", "headline", clip(headline), "published", publishedAt)
			return
		}

		s.logger.Debug("scraped article", "headline", clip(headline), "url", articleURL, "published", publishedAt)
		articles = append(articles, domain.CandidateArticle{
			Headline:      headline,
			URL:           articleURL,
			Content:       content,
			PublishedAt:   publishedAt,
			PublishedTime: publishedTime,
		})
	})

	s.redistribute(articles, req)
	return articles, nil
}

// resolvePublished applies the time-resolution policy: machine-readable
// datetime attribute, then relative phrase, then absolute text, then a random
// in-window day.
func (s *Scanner) resolvePublished(item *goquery.Selection, req source.Request) (string, *time.Time) {
	fallback := req.TargetDate.Format(domain.DayFormat)

	tag := item.Find("time").First()
	if tag.Length() == 0 {
		tag = item.Find("span.stream-metadata__value, span.time").First()
	}
	if tag.Length() == 0 {
		return fallback, nil
	}

	if attr, ok := tag.Attr("datetime"); ok && strings.TrimSpace(attr) != "" {
		if ts, err := dateparse.ParseAny(strings.TrimSpace(attr)); err == nil {
			utc := ts.UTC()
			return utc.Format(domain.DayFormat), &utc
		}
	}

	text := strings.ToLower(strings.TrimSpace(tag.Text()))
	if text == "" {
		return fallback, nil
	}

	now := s.now().UTC()
	switch {
	case strings.Contains(text, "ago"):
		n := firstNumber(text)
		var ts time.Time
		switch {
		case strings.Contains(text, "minute"):
			ts = now.Add(-time.Duration(n) * time.Minute)
		case strings.Contains(text, "hour"):
			ts = now.Add(-time.Duration(n) * time.Hour)
		case strings.Contains(text, "day"):
			ts = now.AddDate(0, 0, -n)
		default:
			return fallback, nil
		}
		return ts.Format(domain.DayFormat), &ts
	case strings.Contains(text, "yesterday"):
		ts := now.AddDate(0, 0, -1)
		return ts.Format(domain.DayFormat), &ts
	default:
		if ts, err := dateparse.ParseAny(text); err == nil {
			utc := ts.UTC()
			return utc.Format(domain.DayFormat), &utc
		}
		return req.RandomDay(), nil
	}
}

// fetchBody pulls the article page and extracts known content containers.
// Any failure degrades to empty content.
func (s *Scanner) fetchBody(ctx context.Context, articleURL string) string {
	body, err := s.fetcher.Get(ctx, articleURL)
	if err != nil {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return source.ExtractParagraphs(doc.Find("p.caas-body, p.body"))
}

func (s *Scanner) redistribute(articles []domain.CandidateArticle, req source.Request) {
	if !s.redistributeDates || req.DaysRange <= 0 {
		return
	}
	distinct := map[string]struct{}{}
	for _, a := range articles {
		distinct[a.PublishedAt] = struct{}{}
	}
	if len(distinct) >= minDistinctDates {
		return
	}

	n := len(articles)
	if n > redistributeLimit {
		n = redistributeLimit
	}
	for i := 0; i < n; i++ {
		articles[i].PublishedAt = req.RandomDay()
		s.logger.Debug("redistributed article date", "headline", clip(articles[i].Headline), "published", articles[i].PublishedAt)
	}
}

func absolutize(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return baseURL + href
}

// firstNumber extracts the leading quantity from a relative phrase,
// defaulting to 1 ("an hour ago").
func firstNumber(text string) int {
	match := digitExpr.FindString(text)
	if match == "" {
		return 1
	}
	n, err := strconv.Atoi(match)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func clip(headline string) string {
	const max = 50
	if len(headline) <= max {
		return headline
	}
	return source.Truncate(headline, max) + "..."
}
