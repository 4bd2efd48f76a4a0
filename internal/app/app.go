package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"golang.org/x/time/rate"

	"NewsSentiment/internal/config"
	"NewsSentiment/internal/fetch"
	"NewsSentiment/internal/handler"
	"NewsSentiment/internal/infrastructure/browser"
	"NewsSentiment/internal/infrastructure/export"
	"NewsSentiment/internal/infrastructure/finbert"
	"NewsSentiment/internal/infrastructure/newsapi"
	"NewsSentiment/internal/infrastructure/storage"
	"NewsSentiment/internal/infrastructure/yahoo"
	"NewsSentiment/internal/normalize"
	"NewsSentiment/internal/ports"
	"NewsSentiment/internal/sentiment"
	"NewsSentiment/internal/source"
	"NewsSentiment/internal/usecase"
)

// App owns the wired object graph and the HTTP server lifecycle.
type App struct {
	cfg      config.Config
	logger   *slog.Logger
	server   *http.Server
	renderer ports.Renderer
	db       *sql.DB
}

// New wires every adapter into the pipeline and mounts the HTTP routes.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	// Nil Rand: the policy is shared by the fetcher and the renderer across
	// concurrent requests, so jitter must come from the locked generator.
	policy := fetch.DefaultPolicy(nil)
	if cfg.Fetch.MaxRetries > 0 {
		policy.MaxRetries = cfg.Fetch.MaxRetries
	}

	var limiter *rate.Limiter
	if cfg.Fetch.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Fetch.RatePerSecond), 1)
	}
	fetcher := fetch.NewClient(policy,
		time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second,
		limiter,
		logger.With("component", "fetch"))

	renderer := browser.New(ctx, browser.Options{
		UserAgent:   cfg.Browser.UserAgent,
		SettleTime:  time.Duration(cfg.Browser.SettleSeconds) * time.Second,
		PageTimeout: time.Duration(cfg.Browser.PageTimeoutSeconds) * time.Second,
	}, policy, logger.With("component", "browser"))

	registry := source.NewRegistry()
	registry.Register(yahoo.NewScanner(renderer, fetcher,
		cfg.Analysis.RedistributeEnabled(),
		logger.With("component", "yahoo")))
	registry.Register(newsapi.NewClient(cfg.NewsAPI.Endpoint, fetcher,
		logger.With("component", "newsapi")))

	var db *sql.DB
	var repository ports.RunRepository
	if cfg.Database.DSN != "" {
		conn, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			renderer.Close()
			return nil, fmt.Errorf("open database: %w", err)
		}
		db = conn
		repository = storage.NewPostgresRepository(db)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Sources:  registry,
		Primary:  cfg.Analysis.PrimarySource,
		Fallback: cfg.Analysis.FallbackSource,
		Normalizer: normalize.New(cfg.KeywordTable(),
			cfg.Analysis.ExclusionPhrases,
			cfg.Analysis.ExcludeGroupsEnabled(),
			logger.With("component", "normalize")),
		Scorer: sentiment.NewScorer(
			finbert.NewClient(cfg.Classifier.InferenceURL, cfg.Classifier.APIKey),
			logger.With("component", "sentiment")),
		Exporter:     export.NewCSVExporter(cfg.Export.Path, cfg.Export.DebugPath, logger.With("component", "export")),
		Repository:   repository,
		CompanyNames: cfg.CompanyNames(),
		Location:     cfg.Analysis.Location(),
		Logger:       logger.With("component", "pipeline"),
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	h := handler.NewSentimentHandler(pipeline, logger.With("component", "handler"))
	router.GET("/", h.GetRoot)
	router.GET("/health", h.GetHealth)
	router.POST("/analyze-sentiment", h.AnalyzeSentiment)

	return &App{
		cfg:    cfg,
		logger: logger,
		server: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		renderer: renderer,
		db:       db,
	}, nil
}

// Run serves HTTP until the context is canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return <-errCh
}

// Close releases the browser process and the database pool.
func (a *App) Close() {
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", "error", err)
		}
	}
}
