package domain

import "time"

// DayFormat is the date-only representation used across the pipeline.
const DayFormat = "2006-01-02"

// CandidateArticle is a normalized article produced by a source adapter.
// Immutable once returned; the normalizer filters but never edits it.
type CandidateArticle struct {
	Headline      string
	URL           string
	Content       string
	PublishedAt   string // YYYY-MM-DD
	PublishedTime *time.Time
}

// RetainedArticle passed every dedupe and relevance filter; exactly one output
// row is derived from it.
type RetainedArticle struct {
	Headline     string
	URL          string
	PublishedAt  string
	CombinedText string
}

// Probabilities is a 3-way class distribution from the sentiment classifier.
// Class order is fixed: negative, neutral, positive.
type Probabilities struct {
	Negative float64
	Neutral  float64
	Positive float64
}

// SentimentResult is the terminal entity returned to the caller.
type SentimentResult struct {
	Date           string  `json:"date"`
	SentimentScore float64 `json:"sentiment_score"`
	Headline       string  `json:"headline"`
	Confidence     float64 `json:"confidence"`
	URL            string  `json:"url"`
}

// ScoredArticle carries the intermediate values behind a SentimentResult,
// surfaced in the debug export.
type ScoredArticle struct {
	Result    SentimentResult
	RawScore  float64
	Weight    float64
	WordCount int
}
