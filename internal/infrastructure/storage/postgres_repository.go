package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/ports"
)

// PostgresRepository persists completed analysis runs for audit and history.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.RunRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// SaveRun inserts one row per result under a shared run timestamp. A nil DB
// turns the repository into a no-op.
func (r *PostgresRepository) SaveRun(ctx context.Context, ticker string, results []domain.SentimentResult) error {
	if r.db == nil || len(results) == 0 {
		return nil
	}

	ranAt := time.Now().UTC()
	insert := r.builder.
		Insert("sentiment_results").
		Columns("ticker", "published_on", "sentiment_score", "headline", "confidence", "url", "ran_at")

	for _, res := range results {
		insert = insert.Values(ticker, res.Date, res.SentimentScore, res.Headline, res.Confidence, res.URL, ranAt)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert results: %w", err)
	}

	return nil
}
