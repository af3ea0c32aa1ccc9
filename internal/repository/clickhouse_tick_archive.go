package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"CoinFolio/internal/domain/models"
	pkgch "CoinFolio/pkg/clickhouse"
	applogger "CoinFolio/pkg/logger"
	"CoinFolio/pkg/util"
)

// CHTickArchive implements TickArchive backed by ClickHouse. Fetched daily
// series are persisted so they survive restarts and can back-fill the price
// cache when the upstream feed is down.
type CHTickArchive struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

func NewCHTickArchive(ch *pkgch.Client) *CHTickArchive {
	return &CHTickArchive{ch: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (a *CHTickArchive) SetLogger(l *applogger.Logger) { a.l = l }

var tickSchema = []string{
	`CREATE DATABASE IF NOT EXISTS coinfolio`,
	`CREATE TABLE IF NOT EXISTS coinfolio.daily_ticks (
        symbol     LowCardinality(String),
        day        Date,
        close      Float64,
        fetched_at DateTime DEFAULT now()
    ) ENGINE = ReplacingMergeTree(fetched_at)
    ORDER BY (symbol, day)`,
}

// Init ensures the database and tick table exist (idempotent).
func (a *CHTickArchive) Init(ctx context.Context) error {
	return a.ch.InitSchema(ctx, tickSchema)
}

// Store upserts a batch of daily ticks. Re-fetched days replace the old row
// via the ReplacingMergeTree version column.
func (a *CHTickArchive) Store(ctx context.Context, symbol string, ticks []models.PriceTick) error {
	if len(ticks) == 0 {
		return nil
	}
	symbol = util.NormalizeSymbol(symbol)
	start := time.Now()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO coinfolio.daily_ticks (symbol, day, close) VALUES (?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, t := range ticks {
		if _, err := stmt.ExecContext(ctx, symbol, util.Day(t.Date), t.Close); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append tick: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	if a.l != nil {
		a.l.Debug("clickhouse ticks stored",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(ticks)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// Load returns archived ticks for symbol inside [from, to], ascending.
func (a *CHTickArchive) Load(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceTick, error) {
	symbol = util.NormalizeSymbol(symbol)
	start := time.Now()

	const q = `
        SELECT symbol, day, close
        FROM coinfolio.daily_ticks FINAL
        WHERE symbol = ? AND day >= ? AND day <= ?
        ORDER BY day ASC
    `
	rows, err := a.db.QueryContext(ctx, q, symbol, util.Day(from), util.Day(to))
	if err != nil {
		if a.l != nil {
			a.l.Error("clickhouse load_ticks query error",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("load ticks: %w", err)
	}
	defer rows.Close()

	out := make([]models.PriceTick, 0, 512)
	for rows.Next() {
		var t models.PriceTick
		var day time.Time
		if err := rows.Scan(&t.Symbol, &day, &t.Close); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		t.Date = util.Day(day)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if a.l != nil {
		a.l.Debug("clickhouse ticks loaded",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// Health performs a connectivity check.
func (a *CHTickArchive) Health(ctx context.Context) error {
	return a.ch.Health(ctx)
}

// Close closes the underlying pool.
func (a *CHTickArchive) Close() error {
	return a.ch.Close()
}
