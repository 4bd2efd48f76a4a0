package source

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"NewsSentiment/internal/domain"
)

const (
	maxParagraphs     = 10
	maxParagraphChars = 500
	maxContentChars   = 2000
)

// Request carries all parameters required to pull news for one ticker.
type Request struct {
	Ticker      string
	CompanyName string
	TargetDate  time.Time
	DaysRange   int
	APIKey      string

	// Rand feeds the fallback-date heuristics; inject a fixed seed in tests.
	Rand *rand.Rand
}

// InWindow reports whether a YYYY-MM-DD day falls inside
// [TargetDate-DaysRange, TargetDate] inclusive, comparing dates only.
func (r Request) InWindow(day string) bool {
	parsed, err := time.Parse(domain.DayFormat, day)
	if err != nil {
		return false
	}
	target, err := time.Parse(domain.DayFormat, r.TargetDate.Format(domain.DayFormat))
	if err != nil {
		return false
	}
	min := target.AddDate(0, 0, -r.DaysRange)
	return !parsed.Before(min) && !parsed.After(target)
}

// RandomDay picks a uniformly random day 1..DaysRange before the target date.
// Explicit fallback for unresolvable timestamps, in window by construction.
func (r Request) RandomDay() string {
	if r.DaysRange <= 0 {
		return r.TargetDate.Format(domain.DayFormat)
	}
	offset := 1 + r.rng().Intn(r.DaysRange)
	return r.TargetDate.AddDate(0, 0, -offset).Format(domain.DayFormat)
}

func (r Request) rng() *rand.Rand {
	if r.Rand != nil {
		return r.Rand
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Source captures a single acquisition strategy (rendered site, JSON API, ...).
type Source interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]domain.CandidateArticle, error)
}

// Registry keeps a mapping from strategy names to their implementations.
type Registry struct {
	sources map[string]Source
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: map[string]Source{}}
}

// Register adds or replaces a source implementation.
func (r *Registry) Register(src Source) {
	if r.sources == nil {
		r.sources = map[string]Source{}
	}
	r.sources[src.Name()] = src
}

// Resolve returns a source by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Source, error) {
	if src, ok := r.sources[name]; ok {
		return src, nil
	}
	return nil, fmt.Errorf("source %s is not registered", name)
}

// ExtractParagraphs joins the first paragraphs of an article body, bounding
// each paragraph to 500 characters and the total to 2000.
func ExtractParagraphs(sel *goquery.Selection) string {
	var parts []string
	sel.EachWithBreak(func(i int, p *goquery.Selection) bool {
		if i >= maxParagraphs {
			return false
		}
		text := strings.TrimSpace(p.Text())
		if text == "" {
			return true
		}
		parts = append(parts, Truncate(text, maxParagraphChars))
		return true
	})
	return Truncate(strings.Join(parts, " "), maxContentChars)
}

// Truncate bounds s to at most n bytes, backing up so a multi-byte rune is
// never split.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
