package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/ports"
)

const (
	batchSize = 8

	weightWordDivisor     = 100.0
	confidenceWordDivisor = 50.0
)

// financePolarityWords are always kept during stop-word removal; several of
// them ("down", "cut") appear in generic stop lists but carry the sentiment
// signal the classifier needs.
var financePolarityWords = map[string]struct{}{
	"decreased": {}, "reduced": {}, "loss": {}, "down": {}, "decline": {},
	"rise": {}, "profit": {}, "growth": {}, "innovation": {}, "cut": {},
}

// Scorer converts retained articles into weighted sentiment results.
type Scorer struct {
	classifier ports.Classifier
	logger     *slog.Logger
}

// NewScorer wires the classifier capability into the scoring stage.
func NewScorer(classifier ports.Classifier, logger *slog.Logger) *Scorer {
	return &Scorer{classifier: classifier, logger: logger}
}

// Score batches cleaned article text through the classifier and derives the
// weighted score and confidence per article. Classifier failures abort the
// whole run; there is no partial degradation at this stage.
func (s *Scorer) Score(ctx context.Context, articles []domain.RetainedArticle) ([]domain.ScoredArticle, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	cleaned := make([]string, len(articles))
	for i, a := range articles {
		cleaned[i] = CleanText(a.CombinedText)
	}

	raw := make([]float64, 0, len(cleaned))
	for start := 0; start < len(cleaned); start += batchSize {
		end := start + batchSize
		if end > len(cleaned) {
			end = len(cleaned)
		}
		probs, err := s.classifier.Classify(ctx, cleaned[start:end])
		if err != nil {
			return nil, fmt.Errorf("classify batch %d: %w", start/batchSize, err)
		}
		if len(probs) != end-start {
			return nil, fmt.Errorf("classifier returned %d results for batch of %d", len(probs), end-start)
		}
		for _, p := range probs {
			raw = append(raw, p.Positive-p.Negative)
		}
	}

	results := make([]domain.ScoredArticle, 0, len(articles))
	for i, a := range articles {
		// Word count is taken on the raw combined text, before stop-word
		// removal, same text the relevance filter saw.
		words := len(strings.Fields(a.CombinedText))
		weight := math.Min(1.0, float64(words)/weightWordDivisor)
		confidence := math.Min(1.0, float64(words)/confidenceWordDivisor)

		if s.logger != nil {
			s.logger.Debug("article scored",
				"headline", a.Headline,
				"raw_score", raw[i],
				"weighted_score", weight*raw[i],
				"confidence", confidence)
		}

		results = append(results, domain.ScoredArticle{
			Result: domain.SentimentResult{
				Date:           a.PublishedAt,
				SentimentScore: weight * raw[i],
				Headline:       a.Headline,
				Confidence:     confidence,
				URL:            a.URL,
			},
			RawScore:  raw[i],
			Weight:    weight,
			WordCount: words,
		})
	}

	return results, nil
}

// CleanText lowercases and tokenizes text, dropping generic stop-words while
// keeping punctuation tokens and finance-polarity words.
func CleanText(text string) string {
	tokens := Tokenize(strings.ToLower(text))
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := stopWords[tok]; !stop {
			kept = append(kept, tok)
			continue
		}
		if _, keep := financePolarityWords[tok]; keep {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// Tokenize splits text into word and punctuation tokens: runs of letters,
// digits, and apostrophes form words; every other non-space rune stands alone.
func Tokenize(text string) []string {
	var tokens []string
	var word []rune
	flush := func() {
		if len(word) > 0 {
			tokens = append(tokens, string(word))
			word = word[:0]
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			word = append(word, r)
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			tokens = append(tokens, string(r))
		}
	}
	flush()
	return tokens
}
