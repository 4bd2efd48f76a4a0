package sentiment

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"NewsSentiment/internal/domain"
)

type fakeClassifier struct {
	batches [][]string
	probs   domain.Probabilities
	err     error
}

func (f *fakeClassifier) Classify(_ context.Context, texts []string) ([]domain.Probabilities, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, texts)
	out := make([]domain.Probabilities, len(texts))
	for i := range out {
		out[i] = f.probs
	}
	return out, nil
}

func article(headline string, words int) domain.RetainedArticle {
	return domain.RetainedArticle{
		Headline:     headline,
		URL:          "https://example.com/a",
		PublishedAt:  "2025-08-20",
		CombinedText: strings.TrimSpace(strings.Repeat("word ", words)),
	}
}

func TestScoreFormula(t *testing.T) {
	t.Parallel()

	clf := &fakeClassifier{probs: domain.Probabilities{Negative: 0.1, Neutral: 0.2, Positive: 0.7}}
	scorer := NewScorer(clf, nil)

	out, err := scorer.Score(context.Background(), []domain.RetainedArticle{article("short", 25)})
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out))
	}

	got := out[0]
	if math.Abs(got.RawScore-0.6) > 1e-9 {
		t.Fatalf("raw score = %f, want 0.6", got.RawScore)
	}
	if math.Abs(got.Weight-0.25) > 1e-9 {
		t.Fatalf("weight = %f, want 0.25", got.Weight)
	}
	if math.Abs(got.Result.SentimentScore-0.15) > 1e-9 {
		t.Fatalf("weighted score = %f, want 0.15", got.Result.SentimentScore)
	}
	if math.Abs(got.Result.Confidence-0.5) > 1e-9 {
		t.Fatalf("confidence = %f, want 0.5", got.Result.Confidence)
	}
	if got.WordCount != 25 {
		t.Fatalf("word count = %d, want 25", got.WordCount)
	}
}

func TestScoreCapsWeightAndConfidence(t *testing.T) {
	t.Parallel()

	clf := &fakeClassifier{probs: domain.Probabilities{Negative: 0.8, Neutral: 0.1, Positive: 0.1}}
	scorer := NewScorer(clf, nil)

	out, err := scorer.Score(context.Background(), []domain.RetainedArticle{article("long", 500)})
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}

	got := out[0]
	if got.Weight != 1.0 {
		t.Fatalf("weight must cap at 1.0, got %f", got.Weight)
	}
	if got.Result.Confidence != 1.0 {
		t.Fatalf("confidence must cap at 1.0, got %f", got.Result.Confidence)
	}
	if got.Result.SentimentScore < -1.0 || got.Result.SentimentScore > 1.0 {
		t.Fatalf("score out of range: %f", got.Result.SentimentScore)
	}
}

func TestScoreBatching(t *testing.T) {
	t.Parallel()

	clf := &fakeClassifier{probs: domain.Probabilities{Neutral: 1}}
	scorer := NewScorer(clf, nil)

	articles := make([]domain.RetainedArticle, 19)
	for i := range articles {
		articles[i] = article("a", 10)
	}

	out, err := scorer.Score(context.Background(), articles)
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if len(out) != 19 {
		t.Fatalf("expected 19 results, got %d", len(out))
	}
	if len(clf.batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(clf.batches))
	}
	if len(clf.batches[0]) != 8 || len(clf.batches[1]) != 8 || len(clf.batches[2]) != 3 {
		t.Fatalf("unexpected batch sizes: %d %d %d",
			len(clf.batches[0]), len(clf.batches[1]), len(clf.batches[2]))
	}
}

func TestScoreClassifierFailureAbortsRun(t *testing.T) {
	t.Parallel()

	clf := &fakeClassifier{err: errors.New("inference unavailable")}
	scorer := NewScorer(clf, nil)

	if _, err := scorer.Score(context.Background(), []domain.RetainedArticle{article("a", 10)}); err == nil {
		t.Fatal("expected classifier failure to abort the run")
	}
}

func TestScoreEmptyInput(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(&fakeClassifier{}, nil)
	out, err := scorer.Score(context.Background(), nil)
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil output for empty input, got %v", out)
	}
}

func TestCleanTextKeepsPolarityWords(t *testing.T) {
	t.Parallel()

	got := CleanText("The profit is down but growth was up")
	for _, want := range []string{"profit", "down", "growth"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q to survive cleaning, got %q", want, got)
		}
	}
	for _, dropped := range []string{"the", "is", "but", "was", "up"} {
		for _, tok := range strings.Fields(got) {
			if tok == dropped {
				t.Errorf("stop-word %q survived cleaning: %q", dropped, got)
			}
		}
	}
}

func TestCleanTextKeepsPunctuation(t *testing.T) {
	t.Parallel()

	got := CleanText("Shares fell, analysts worried.")
	if !strings.Contains(got, ",") || !strings.Contains(got, ".") {
		t.Fatalf("punctuation must survive cleaning, got %q", got)
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	got := Tokenize("apple's q3, up 5%")
	want := []string{"apple's", "q3", ",", "up", "5", "%"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}
