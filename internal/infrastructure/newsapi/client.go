package newsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/fetch"
	"NewsSentiment/internal/source"
)

const (
	defaultEndpoint = "https://newsapi.org/v2/everything"

	maxItems            = 50
	maxDescriptionChars = 1000

	// Timestamps before this year are treated as unreliable and replaced with
	// a random in-window day. Explicit heuristic, not a parse failure.
	reliableYearFloor = 2025
)

// Client queries the NewsAPI "everything" endpoint as a fallback source.
type Client struct {
	endpoint string
	fetcher  *fetch.Client
	logger   *slog.Logger
}

var _ source.Source = (*Client)(nil)

// NewClient wires the fallback source; an empty endpoint selects the public
// NewsAPI host.
func NewClient(endpoint string, fetcher *fetch.Client, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{endpoint: endpoint, fetcher: fetcher, logger: logger}
}

// Name identifies the strategy inside the registry.
func (c *Client) Name() string {
	return "newsapi"
}

// Fetch searches for the company name within the date window. A missing API
// key short-circuits to an empty result; so does an exhausted fetch.
func (c *Client) Fetch(ctx context.Context, req source.Request) ([]domain.CandidateArticle, error) {
	if req.APIKey == "" {
		c.logger.Debug("api key not provided, skipping fallback source")
		return nil, nil
	}

	from := req.TargetDate.AddDate(0, 0, -req.DaysRange).Format(domain.DayFormat)
	to := req.TargetDate.Format(domain.DayFormat)

	query := url.Values{}
	query.Set("q", req.CompanyName)
	query.Set("from", from)
	query.Set("to", to)
	query.Set("sortBy", "publishedAt")
	query.Set("apiKey", req.APIKey)

	body, err := c.fetcher.Get(ctx, c.endpoint+"?"+query.Encode())
	if err != nil {
		c.logger.Warn("newsapi fetch failed", "error", err)
		return nil, nil
	}

	var payload response
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode newsapi response: %w", err)
	}
	if payload.Status != "ok" {
		c.logger.Warn("newsapi error", "message", payload.Message)
		return nil, nil
	}

	items := payload.Articles
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	var articles []domain.CandidateArticle
	for _, item := range items {
		if item.Title == "" || item.URL == "" || item.PublishedAt == "" {
			continue
		}

		publishedAt, publishedTime := resolvePublished(item.PublishedAt, req)
		if !req.InWindow(publishedAt) {
			continue
		}

		content := c.fetchBody(ctx, item.URL)
		if content == "" {
			content = source.Truncate(item.Description, maxDescriptionChars)
		}

		c.logger.Debug("newsapi article", "headline", item.Title, "url", item.URL, "published", publishedAt)
		articles = append(articles, domain.CandidateArticle{
			Headline:      item.Title,
			URL:           item.URL,
			Content:       content,
			PublishedAt:   publishedAt,
			PublishedTime: publishedTime,
		})
	}

	return articles, nil
}

// resolvePublished parses the API timestamp, demoting unparseable or
// implausibly old values to a random in-window day.
func resolvePublished(ts string, req source.Request) (string, *time.Time) {
	parsed, err := dateparse.ParseAny(ts)
	if err != nil || parsed.Year() < reliableYearFloor {
		return req.RandomDay(), nil
	}
	utc := parsed.UTC()
	return utc.Format(domain.DayFormat), &utc
}

// fetchBody attempts the supplementary article-page fetch; empty means the
// caller falls back to the API description.
func (c *Client) fetchBody(ctx context.Context, articleURL string) string {
	body, err := c.fetcher.Get(ctx, articleURL)
	if err != nil {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return source.ExtractParagraphs(doc.Find("p"))
}

type response struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}
