package ports

import (
	"context"

	"NewsSentiment/internal/domain"
)

// Renderer loads a URL in a headless browser and returns the rendered document.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
	Close()
}

// Classifier scores one batch of texts into 3-way class probabilities, one
// entry per input text.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([]domain.Probabilities, error)
}

// Exporter persists the final table to flat artifacts. Callers treat export
// failures as best-effort and never propagate them.
type Exporter interface {
	Export(results []domain.ScoredArticle, debug bool) error
}

// RunRepository persists completed runs for audit and history.
type RunRepository interface {
	SaveRun(ctx context.Context, ticker string, results []domain.SentimentResult) error
}
