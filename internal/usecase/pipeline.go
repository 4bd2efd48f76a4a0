package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/normalize"
	"NewsSentiment/internal/ports"
	"NewsSentiment/internal/sentiment"
	"NewsSentiment/internal/source"
)

// fallbackThreshold is the primary-source article count below which the
// fallback source is consulted (when an API key is available).
const fallbackThreshold = 5

// Request carries the inbound analysis parameters.
type Request struct {
	Ticker      string
	DaysRange   int
	MaxArticles int
	APIKey      string
	Debug       bool
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Sources      *source.Registry
	Primary      string
	Fallback     string
	Normalizer   *normalize.Normalizer
	Scorer       *sentiment.Scorer
	Exporter     ports.Exporter
	Repository   ports.RunRepository
	CompanyNames map[string]string
	Location     *time.Location
	NewRand      func() *rand.Rand
	Logger       *slog.Logger
}

// Pipeline implements the ticker sentiment workflow: fetch, normalize, score,
// assemble. One invocation is one independent, stateless batch job.
type Pipeline struct {
	sources      *source.Registry
	primary      string
	fallback     string
	normalizer   *normalize.Normalizer
	scorer       *sentiment.Scorer
	exporter     ports.Exporter
	repository   ports.RunRepository
	companyNames map[string]string
	location     *time.Location
	newRand      func() *rand.Rand
	logger       *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.NewRand == nil {
		deps.NewRand = func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pipeline{
		sources:      deps.Sources,
		primary:      deps.Primary,
		fallback:     deps.Fallback,
		normalizer:   deps.Normalizer,
		scorer:       deps.Scorer,
		exporter:     deps.Exporter,
		repository:   deps.Repository,
		companyNames: deps.CompanyNames,
		location:     deps.Location,
		newRand:      deps.NewRand,
		logger:       deps.Logger,
	}
}

// Analyze runs one acquisition/normalization/scoring pass for the ticker. An
// empty result with a nil error means nothing was found or nothing survived
// filtering; callers map that to their own "not found" signal. Only the
// classifier stage and truly unexpected failures surface as errors.
func (p *Pipeline) Analyze(ctx context.Context, req Request) ([]domain.SentimentResult, error) {
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	if req.DaysRange <= 0 {
		req.DaysRange = 30
	}
	if req.MaxArticles <= 0 {
		req.MaxArticles = 50
	}

	companyName := p.companyName(ticker)
	srcReq := source.Request{
		Ticker:      ticker,
		CompanyName: companyName,
		TargetDate:  time.Now().In(p.location),
		DaysRange:   req.DaysRange,
		APIKey:      req.APIKey,
		Rand:        p.newRand(),
	}

	p.logger.Info("scraping news data", "ticker", ticker, "company", companyName, "days_range", req.DaysRange)

	primary, err := p.sources.Resolve(p.primary)
	if err != nil {
		return nil, err
	}
	candidates, err := primary.Fetch(ctx, srcReq)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", primary.Name(), err)
	}
	p.logger.Info("primary source done", "source", primary.Name(), "articles", len(candidates))

	if len(candidates) < fallbackThreshold && req.APIKey != "" && p.fallback != "" {
		fallback, err := p.sources.Resolve(p.fallback)
		if err != nil {
			return nil, err
		}
		extra, err := fallback.Fetch(ctx, srcReq)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", fallback.Name(), err)
		}
		p.logger.Info("fallback source done", "source", fallback.Name(), "articles", len(extra))
		candidates = append(candidates, extra...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		p.logger.Info("no articles available", "ticker", ticker)
		return nil, nil
	}

	retained := p.normalizer.Normalize(candidates, ticker, companyName, req.MaxArticles)
	if len(retained) == 0 {
		p.logger.Info("no relevant articles after filtering", "ticker", ticker)
		return nil, nil
	}

	p.logger.Info("processing articles for sentiment", "count", len(retained))
	scored, err := p.scorer.Score(ctx, retained)
	if err != nil {
		return nil, fmt.Errorf("score articles: %w", err)
	}

	if p.exporter != nil {
		if err := p.exporter.Export(scored, req.Debug); err != nil {
			p.logger.Warn("export failed", "error", err)
		}
	}

	results := make([]domain.SentimentResult, 0, len(scored))
	for _, s := range scored {
		results = append(results, s.Result)
	}

	if p.repository != nil {
		if err := p.repository.SaveRun(ctx, ticker, results); err != nil {
			p.logger.Warn("run history save failed", "error", err)
		}
	}

	return results, nil
}

func (p *Pipeline) companyName(ticker string) string {
	if name, ok := p.companyNames[ticker]; ok && name != "" {
		return name
	}
	return ticker
}
