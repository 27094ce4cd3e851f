package filings

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// PostgresConfig configures the Postgres backed index.
type PostgresConfig struct {
	DSN      string `envconfig:"DSN"`
	Language string `split_words:"true" default:"english"`
}

type chunkRow struct {
	bun.BaseModel `bun:"table:filing_chunks,alias:fc"`

	ID         string  `bun:"id,pk"`
	Ticker     string  `bun:"ticker,notnull"`
	FilingType string  `bun:"filing_type,notnull"`
	Section    string  `bun:"section,notnull"`
	Content    string  `bun:"content,notnull"`
	Score      float64 `bun:"score,scanonly"`
}

// PostgresIndex stores chunks in Postgres and ranks them with full-text
// search (ts_rank over plainto_tsquery).
type PostgresIndex struct {
	db       *bun.DB
	language string
}

// OpenPostgres connects with pgdriver and returns a bun handle.
func OpenPostgres(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// NewPostgresIndex wraps db. Call Migrate once before use.
func NewPostgresIndex(db *bun.DB, language string) *PostgresIndex {
	if language == "" {
		language = "english"
	}
	return &PostgresIndex{db: db, language: language}
}

// NewPostgresIndexFromConfig opens the database named by cfg and migrates it.
func NewPostgresIndexFromConfig(ctx context.Context, cfg PostgresConfig) (*PostgresIndex, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("filings: postgres dsn is required")
	}

	ix := NewPostgresIndex(OpenPostgres(cfg.DSN), cfg.Language)
	if err := ix.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("filings: ping postgres: %w", err)
	}
	if err := ix.Migrate(ctx); err != nil {
		return nil, err
	}

	return ix, nil
}

// Migrate creates the chunk table and its indexes when missing.
func (ix *PostgresIndex) Migrate(ctx context.Context) error {
	if _, err := ix.db.NewCreateTable().Model((*chunkRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("filings: create table: %w", err)
	}

	if _, err := ix.db.NewCreateIndex().
		Model((*chunkRow)(nil)).
		Index("filing_chunks_ticker_idx").
		IfNotExists().
		Column("ticker", "section").
		Exec(ctx); err != nil {
		return fmt.Errorf("filings: create ticker index: %w", err)
	}

	if _, err := ix.db.NewCreateIndex().
		Model((*chunkRow)(nil)).
		Index("filing_chunks_fts_idx").
		IfNotExists().
		Using("GIN").
		ColumnExpr("to_tsvector(?, content)", ix.language).
		Exec(ctx); err != nil {
		return fmt.Errorf("filings: create fts index: %w", err)
	}

	return nil
}

// Add upserts chunks by id.
func (ix *PostgresIndex) Add(ctx context.Context, chunks ...Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	rows := make([]chunkRow, len(chunks))
	for i, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("filings: chunk %d has no id", i)
		}
		rows[i] = chunkRow{
			ID:         c.ID,
			Ticker:     strings.ToUpper(c.Ticker),
			FilingType: c.FilingType,
			Section:    c.Section,
			Content:    c.Content,
		}
	}

	_, err := ix.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("ticker = EXCLUDED.ticker").
		Set("filing_type = EXCLUDED.filing_type").
		Set("section = EXCLUDED.section").
		Set("content = EXCLUDED.content").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("filings: insert chunks: %w", err)
	}

	return nil
}

// DeleteByTicker removes every chunk of ticker.
func (ix *PostgresIndex) DeleteByTicker(ctx context.Context, ticker string) (int, error) {
	res, err := ix.db.NewDelete().
		Model((*chunkRow)(nil)).
		Where("ticker = ?", strings.ToUpper(ticker)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("filings: delete chunks: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Search implements Retriever.
func (ix *PostgresIndex) Search(ctx context.Context, query string, filter Filter, topK int) ([]Chunk, error) {
	if topK <= 0 {
		return []Chunk{}, nil
	}

	filter = filter.Normalize()

	var rows []chunkRow
	q := ix.db.NewSelect().Model(&rows).ColumnExpr("fc.id, fc.ticker, fc.filing_type, fc.section, fc.content")

	if strings.TrimSpace(query) != "" {
		q = q.ColumnExpr("ts_rank(to_tsvector(?, fc.content), plainto_tsquery(?, ?)) AS score", ix.language, ix.language, query).
			Where("to_tsvector(?, fc.content) @@ plainto_tsquery(?, ?)", ix.language, ix.language, query).
			OrderExpr("score DESC")
	} else {
		q = q.ColumnExpr("1.0 AS score")
	}

	if filter.Ticker != "" {
		q = q.Where("fc.ticker = ?", filter.Ticker)
	}
	if filter.Section != "" {
		q = q.Where("lower(fc.section) = lower(?)", filter.Section)
	}
	if filter.FilingType != "" {
		q = q.Where("upper(fc.filing_type) = ?", filter.FilingType)
	}

	if err := q.OrderExpr("fc.id ASC").Limit(topK).Scan(ctx); err != nil {
		return nil, fmt.Errorf("filings: search: %w", err)
	}

	out := make([]Chunk, len(rows))
	for i, r := range rows {
		out[i] = Chunk{
			ID:         r.ID,
			Ticker:     r.Ticker,
			FilingType: r.FilingType,
			Section:    r.Section,
			Content:    r.Content,
			Score:      r.Score,
		}
	}

	return out, nil
}

// Close releases the database handle.
func (ix *PostgresIndex) Close() error { return ix.db.Close() }
