package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/ports"
)

// CSVExporter writes the public results artifact and, on demand, an
// unrestricted debug artifact with the intermediate columns.
type CSVExporter struct {
	path      string
	debugPath string
	logger    *slog.Logger
}

var _ ports.Exporter = (*CSVExporter)(nil)

// NewCSVExporter registers the artifact paths; empty paths disable the
// corresponding file.
func NewCSVExporter(path, debugPath string, logger *slog.Logger) *CSVExporter {
	return &CSVExporter{path: path, debugPath: debugPath, logger: logger}
}

// Export writes the configured artifacts. Errors from both files are joined
// and returned; the pipeline logs and swallows them.
func (e *CSVExporter) Export(results []domain.ScoredArticle, debug bool) error {
	var errs []error

	if e.path != "" {
		if err := e.writePublic(results); err != nil {
			errs = append(errs, fmt.Errorf("public export: %w", err))
		} else if e.logger != nil {
			e.logger.Info("results export successful", "rows", len(results), "path", e.path)
		}
	}

	if debug && e.debugPath != "" {
		if err := e.writeDebug(results); err != nil {
			errs = append(errs, fmt.Errorf("debug export: %w", err))
		} else if e.logger != nil {
			e.logger.Info("debug export successful", "rows", len(results), "path", e.debugPath)
		}
	}

	return errors.Join(errs...)
}

func (e *CSVExporter) writePublic(results []domain.ScoredArticle) error {
	rows := [][]string{{"date", "sentiment_score", "headline", "confidence", "url"}}
	for _, r := range results {
		rows = append(rows, []string{
			r.Result.Date,
			formatFloat(r.Result.SentimentScore),
			r.Result.Headline,
			formatFloat(r.Result.Confidence),
			r.Result.URL,
		})
	}
	return writeCSV(e.path, rows)
}

func (e *CSVExporter) writeDebug(results []domain.ScoredArticle) error {
	rows := [][]string{{"date", "sentiment_score", "headline", "confidence", "url", "raw_score", "weight", "word_count"}}
	for _, r := range results {
		rows = append(rows, []string{
			r.Result.Date,
			formatFloat(r.Result.SentimentScore),
			r.Result.Headline,
			formatFloat(r.Result.Confidence),
			r.Result.URL,
			formatFloat(r.RawScore),
			formatFloat(r.Weight),
			strconv.Itoa(r.WordCount),
		})
	}
	return writeCSV(e.debugPath, rows)
}

func writeCSV(path string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		_ = file.Close()
		return fmt.Errorf("write rows: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
