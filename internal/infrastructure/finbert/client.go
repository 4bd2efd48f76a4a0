package finbert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/ports"
)

// Client talks to the FinBERT inference service. The model is loaded once by
// the service process; this client is built at startup and shared across runs.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.Classifier = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Classify submits one batch of texts and returns per-class probabilities in
// negative/neutral/positive order, one entry per text.
func (c *Client) Classify(ctx context.Context, texts []string) ([]domain.Probabilities, error) {
	payload := map[string]any{
		"texts": texts,
	}

	var resp struct {
		Results []struct {
			Negative float64 `json:"negative"`
			Neutral  float64 `json:"neutral"`
			Positive float64 `json:"positive"`
		} `json:"results"`
	}

	if err := c.post(ctx, "/classify", payload, &resp); err != nil {
		return nil, err
	}

	if len(resp.Results) != len(texts) {
		return nil, fmt.Errorf("classifier returned %d results for %d texts", len(resp.Results), len(texts))
	}

	probs := make([]domain.Probabilities, 0, len(resp.Results))
	for _, r := range resp.Results {
		probs = append(probs, domain.Probabilities{
			Negative: r.Negative,
			Neutral:  r.Neutral,
			Positive: r.Positive,
		})
	}
	return probs, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
