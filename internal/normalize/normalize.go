package normalize

import (
	"log/slog"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"NewsSentiment/internal/domain"
)

// similarityThreshold is the headline ratio above which an article is dropped
// as a near-duplicate of one already retained.
const similarityThreshold = 0.90

// Normalizer merges adapter outputs and applies dedupe, relevance, and
// multi-entity filters in order.
type Normalizer struct {
	keywords           map[string][]string
	exclusionPhrases   []string
	excludeMultiEntity bool
	logger             *slog.Logger
}

// New builds a normalizer. keywords maps upper-case tickers to hand-tuned
// lowercase aliases; tickers without an entry fall back to company name and
// symbol. exclusionPhrases mark broad-market "group of companies" articles.
func New(keywords map[string][]string, exclusionPhrases []string, excludeMultiEntity bool, logger *slog.Logger) *Normalizer {
	return &Normalizer{
		keywords:           keywords,
		exclusionPhrases:   exclusionPhrases,
		excludeMultiEntity: excludeMultiEntity,
		logger:             logger,
	}
}

// Keywords returns the relevance alias set for a ticker.
func (n *Normalizer) Keywords(ticker, companyName string) []string {
	if aliases, ok := n.keywords[strings.ToUpper(ticker)]; ok && len(aliases) > 0 {
		return aliases
	}
	return []string{strings.ToLower(companyName), strings.ToLower(ticker)}
}

// Normalize consumes at most maxArticles candidates in merge order and returns
// the retained articles in the same relative order. Re-running on the same
// input yields the same output.
func (n *Normalizer) Normalize(candidates []domain.CandidateArticle, ticker, companyName string, maxArticles int) []domain.RetainedArticle {
	keywords := n.Keywords(ticker, companyName)

	seen := map[string]struct{}{}
	var retainedHeadlines []string
	var retained []domain.RetainedArticle

	consumed := 0
	for _, cand := range candidates {
		if maxArticles > 0 && consumed >= maxArticles {
			break
		}
		consumed++

		if _, ok := seen[cand.Headline]; ok {
			continue
		}
		seen[cand.Headline] = struct{}{}

		if n.isNearDuplicate(cand.Headline, retainedHeadlines) {
			n.debug("excluded article (duplicate)", "headline", cand.Headline)
			continue
		}

		combined := strings.TrimSpace(cand.Headline + " " + cand.Content)
		lowered := strings.ToLower(combined)

		if !containsAny(lowered, keywords) {
			n.debug("excluded article (no keyword match)", "headline", cand.Headline, "keywords", keywords)
			continue
		}

		if n.excludeMultiEntity && containsAny(lowered, n.exclusionPhrases) && !containsAny(lowered, keywords) {
			n.debug("excluded article (mentions multiple companies)", "headline", cand.Headline)
			continue
		}

		retained = append(retained, domain.RetainedArticle{
			Headline:     cand.Headline,
			URL:          cand.URL,
			PublishedAt:  cand.PublishedAt,
			CombinedText: combined,
		})
		retainedHeadlines = append(retainedHeadlines, cand.Headline)
		n.debug("article retained", "headline", cand.Headline)
	}

	return retained
}

func (n *Normalizer) isNearDuplicate(headline string, retained []string) bool {
	for _, other := range retained {
		if Similarity(headline, other) > similarityThreshold {
			return true
		}
	}
	return false
}

// Similarity returns the character-sequence ratio between two headlines,
// matching difflib.SequenceMatcher semantics.
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

func containsAny(text string, substrings []string) bool {
	for _, sub := range substrings {
		if sub != "" && strings.Contains(text, sub) {
			return true
		}
	}
	return false
}

func (n *Normalizer) debug(msg string, args ...interface{}) {
	if n.logger != nil {
		n.logger.Debug(msg, args...)
	}
}
