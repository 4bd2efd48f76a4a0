package newsapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"NewsSentiment/internal/fetch"
	"NewsSentiment/internal/source"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFetcher() *fetch.Client {
	policy := fetch.Policy{MaxRetries: 0, InitialDelay: time.Millisecond, Rand: rand.New(rand.NewSource(1))}
	return fetch.NewClient(policy, time.Second, nil, nil)
}

func testRequest(apiKey string) source.Request {
	return source.Request{
		Ticker:      "AAPL",
		CompanyName: "Apple",
		TargetDate:  time.Date(2025, time.August, 20, 12, 0, 0, 0, time.UTC),
		DaysRange:   30,
		APIKey:      apiKey,
		Rand:        rand.New(rand.NewSource(11)),
	}
}

type apiArticle struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	PublishedAt string `json:"publishedAt"`
}

func newAPIServer(t *testing.T, articles func(serverURL string) []apiArticle) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v2/everything"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status":   "ok",
				"articles": articles(server.URL),
			})
		case strings.HasPrefix(r.URL.Path, "/body"):
			_, _ = w.Write([]byte(`<html><body><p>Apple article body text.</p></body></html>`))
		default:
			// Empty page: no paragraphs, forcing the description fallback.
			_, _ = w.Write([]byte(`<html><body></body></html>`))
		}
	}))
	return server
}

func TestFetchWithoutKeySkips(t *testing.T) {
	t.Parallel()

	c := NewClient("http://unreachable.invalid", testFetcher(), discardLogger())
	articles, err := c.Fetch(context.Background(), testRequest(""))
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if articles != nil {
		t.Fatalf("expected no articles without an api key, got %d", len(articles))
	}
}

func TestFetchParsesArticles(t *testing.T) {
	t.Parallel()

	server := newAPIServer(t, func(serverURL string) []apiArticle {
		return []apiArticle{
			{Title: "Apple expands services", URL: serverURL + "/body/1", Description: "short", PublishedAt: "2025-08-18T09:00:00Z"},
			{Title: "", URL: serverURL + "/body/2", PublishedAt: "2025-08-18T09:00:00Z"},
			{Title: "No link", URL: "", PublishedAt: "2025-08-18T09:00:00Z"},
			{Title: "No timestamp", URL: serverURL + "/body/3", PublishedAt: ""},
		}
	})
	defer server.Close()

	c := NewClient(server.URL+"/v2/everything", testFetcher(), discardLogger())
	articles, err := c.Fetch(context.Background(), testRequest("key"))
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if len(articles) != 1 {
		t.Fatalf("expected incomplete items skipped, got %d articles", len(articles))
	}
	got := articles[0]
	if got.Headline != "Apple expands services" {
		t.Fatalf("unexpected headline: %s", got.Headline)
	}
	if got.PublishedAt != "2025-08-18" {
		t.Fatalf("unexpected published date: %s", got.PublishedAt)
	}
	if got.Content != "Apple article body text." {
		t.Fatalf("unexpected content: %q", got.Content)
	}
}

func TestFetchDescriptionFallback(t *testing.T) {
	t.Parallel()

	server := newAPIServer(t, func(serverURL string) []apiArticle {
		return []apiArticle{
			{Title: "Apple brief", URL: serverURL + "/empty", Description: "Apple summary only.", PublishedAt: "2025-08-18T09:00:00Z"},
		}
	})
	defer server.Close()

	c := NewClient(server.URL+"/v2/everything", testFetcher(), discardLogger())
	articles, err := c.Fetch(context.Background(), testRequest("key"))
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	if articles[0].Content != "Apple summary only." {
		t.Fatalf("expected description fallback, got %q", articles[0].Content)
	}
}

func TestFetchOldTimestampGetsRandomDay(t *testing.T) {
	t.Parallel()

	server := newAPIServer(t, func(serverURL string) []apiArticle {
		return []apiArticle{
			{Title: "Apple archive item", URL: serverURL + "/empty", Description: "d", PublishedAt: "2001-01-01T00:00:00Z"},
		}
	})
	defer server.Close()

	c := NewClient(server.URL+"/v2/everything", testFetcher(), discardLogger())
	req := testRequest("key")
	articles, err := c.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	got := articles[0]
	if got.PublishedAt == "2001-01-01" {
		t.Fatal("implausibly old timestamp must be replaced")
	}
	if !req.InWindow(got.PublishedAt) {
		t.Fatalf("replacement day %s outside window", got.PublishedAt)
	}
	if got.PublishedTime != nil {
		t.Fatalf("fabricated day must carry no timestamp, got %v", got.PublishedTime)
	}
}

func TestFetchAPIErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "message": "rate limited"})
	}))
	defer server.Close()

	c := NewClient(server.URL, testFetcher(), discardLogger())
	articles, err := c.Fetch(context.Background(), testRequest("key"))
	if err != nil {
		t.Fatalf("api-level error must degrade to empty, got %v", err)
	}
	if articles != nil {
		t.Fatalf("expected no articles, got %d", len(articles))
	}
}

func TestFetchTransportFailureDegrades(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(server.URL, testFetcher(), discardLogger())
	articles, err := c.Fetch(context.Background(), testRequest("key"))
	if err != nil {
		t.Fatalf("transport failure must degrade to empty, got %v", err)
	}
	if articles != nil {
		t.Fatalf("expected no articles, got %d", len(articles))
	}
}

func TestFetchQueryParameters(t *testing.T) {
	t.Parallel()

	var query map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "articles": []apiArticle{}})
	}))
	defer server.Close()

	c := NewClient(server.URL, testFetcher(), discardLogger())
	if _, err := c.Fetch(context.Background(), testRequest("secret")); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if got := query["q"]; len(got) != 1 || got[0] != "Apple" {
		t.Fatalf("unexpected q: %v", got)
	}
	if got := query["from"]; len(got) != 1 || got[0] != "2025-07-21" {
		t.Fatalf("unexpected from: %v", got)
	}
	if got := query["to"]; len(got) != 1 || got[0] != "2025-08-20" {
		t.Fatalf("unexpected to: %v", got)
	}
	if got := query["apiKey"]; len(got) != 1 || got[0] != "secret" {
		t.Fatalf("unexpected apiKey: %v", got)
	}
}
