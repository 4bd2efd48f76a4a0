package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/usecase"
)

// Analyzer runs one sentiment pipeline pass.
type Analyzer interface {
	Analyze(ctx context.Context, req usecase.Request) ([]domain.SentimentResult, error)
}

// SentimentHandler exposes the pipeline over HTTP.
type SentimentHandler struct {
	pipeline Analyzer
	logger   *slog.Logger
}

// NewSentimentHandler wires the pipeline into the HTTP boundary.
func NewSentimentHandler(pipeline Analyzer, logger *slog.Logger) *SentimentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SentimentHandler{pipeline: pipeline, logger: logger}
}

type analyzeRequest struct {
	Ticker      string `json:"ticker" binding:"required"`
	DaysRange   int    `json:"days_range"`
	MaxArticles int    `json:"max_articles"`
	NewsAPIKey  string `json:"newsapi_key"`
	ShowDebug   bool   `json:"show_debug"`
}

// AnalyzeSentiment runs the pipeline for one ticker. An empty result maps to
// 404; internal failures map to 500 with the failure message.
func (h *SentimentHandler) AnalyzeSentiment(c *gin.Context) {
	req := analyzeRequest{DaysRange: 30, MaxArticles: 50, ShowDebug: true}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.pipeline.Analyze(c.Request.Context(), usecase.Request{
		Ticker:      req.Ticker,
		DaysRange:   req.DaysRange,
		MaxArticles: req.MaxArticles,
		APIKey:      req.NewsAPIKey,
		Debug:       req.ShowDebug,
	})
	if err != nil {
		h.logger.Error("sentiment analysis failed", "ticker", req.Ticker, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if len(results) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No sentiment data found"})
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetRoot returns the service banner.
func (h *SentimentHandler) GetRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Sentiment Analysis API"})
}

// GetHealth reports liveness.
func (h *SentimentHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
