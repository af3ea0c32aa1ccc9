package repository

import (
	"context"
	"time"

	"CoinFolio/internal/domain/models"
)

// MarketDataFetcher is the external collaborator boundary for historical
// prices. Implementations apply their own per-call timeout and must tolerate
// partial results (missing trading days). Unknown symbols yield
// models.ErrSymbolNotFound.
type MarketDataFetcher interface {
	Fetch(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceTick, error)
}

// TickArchive persists fetched price series so they survive restarts and can
// back-fill the cache when the upstream is down.
type TickArchive interface {
	Init(ctx context.Context) error // ensure tables
	Store(ctx context.Context, symbol string, ticks []models.PriceTick) error
	Load(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceTick, error)
	Health(ctx context.Context) error
	Close() error
}

// TransactionPublisher emits accepted ledger entries for downstream
// consumers. Publishing is best-effort; a failed publish never unwinds an
// accepted transaction.
type TransactionPublisher interface {
	Publish(ctx context.Context, t *models.Transaction) error
	Close() error
}

// LiveFeed streams real-time ticker prices over a persistent connection.
type LiveFeed interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols []string) error
	Read(ctx context.Context) (<-chan models.LiveTick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Metrics abstracts the engine's operational counters.
type Metrics interface {
	RecordFetch(symbol, result string)
	RecordCacheHit(symbol string)
	RecordCacheMiss(symbol string)
	RecordStaleServe(symbol string)
	RecordFlightJoin(symbol string)
	RecordLedgerRejection(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
